/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package manager

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sideinput"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/sideinputs/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// versions retrieves "v1", then no update, then "v2" forever.
type versions struct {
	mu    sync.Mutex
	calls int
}

func (v *versions) RetrieveSideInput(context.Context) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	switch v.calls {
	case 1:
		return []byte("v1"), true
	case 2:
		return nil, false
	default:
		return []byte("v2"), true
	}
}

func TestManager_Start(t *testing.T) {
	dir := t.TempDir()
	sim := NewSideInputsManager("config", &versions{}, WithDir(dir), WithSchedule("@every 1s"))
	assert.Equal(t, filepath.Join(dir, "config"), sim.Path())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- sim.Start(ctx) }()

	assert.Eventually(t, func() bool {
		v, err := utils.FetchSideInputFileValue(sim.Path())
		return err == nil && string(v) == "v1"
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		v, err := utils.FetchSideInputFileValue(sim.Path())
		return err == nil && string(v) == "v2"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestManager_InvalidSchedule(t *testing.T) {
	sim := NewSideInputsManager("config", &versions{}, WithDir(t.TempDir()), WithSchedule("every now and then"))
	assert.Error(t, sim.Start(context.Background()))
}

func TestManager_WithAdapter(t *testing.T) {
	env := host.NewEnv()
	fn := env.Register("static", func(*host.Scope, any) (any, error) { return []byte("static"), nil })
	sim := NewSideInputsManager("static", sideinput.NewAdapter(fn), WithDir(t.TempDir()))

	sim.refresh(context.Background())
	v, err := utils.FetchSideInputFileValue(sim.Path())
	require.NoError(t, err)
	assert.Equal(t, []byte("static"), v)
}
