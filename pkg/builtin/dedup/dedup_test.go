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

package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestDedup(t *testing.T) {
	fn, err := New(host.NewEnv(), kwargs.KWArgs{"size": "2"})
	require.NoError(t, err)
	a := mapper.NewAdapter(fn)

	dropped := func(keys []string, value string) bool {
		msgs := a.Map(context.Background(), &mapper.Request{Keys: keys, Value: []byte(value)}).Items()
		require.Len(t, msgs, 1)
		return msgs[0].IsDrop()
	}

	assert.False(t, dropped([]string{"a"}, "1"))
	assert.True(t, dropped([]string{"a"}, "1"))
	assert.False(t, dropped([]string{"b"}, "1"), "same payload under other keys is new")
	assert.False(t, dropped([]string{"a"}, "2"))
	// {a,1} was evicted by the two newer entries
	assert.False(t, dropped([]string{"a"}, "1"))
}

func TestDedup_InvalidSize(t *testing.T) {
	_, err := New(host.NewEnv(), kwargs.KWArgs{"size": "zero"})
	assert.Error(t, err)
}
