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

package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sideinput"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestStatic(t *testing.T) {
	fn, err := New(host.NewEnv(), kwargs.KWArgs{"value": "config-v1"})
	require.NoError(t, err)
	value, ok := sideinput.NewAdapter(fn).RetrieveSideInput(context.Background())
	assert.True(t, ok)
	assert.Equal(t, []byte("config-v1"), value)

	_, err = New(host.NewEnv(), kwargs.KWArgs{})
	assert.EqualError(t, err, `missing "value"`)
}
