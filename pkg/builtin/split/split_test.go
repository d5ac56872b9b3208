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

package split

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapstreamer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		args  kwargs.KWArgs
		value string
		want  []string
	}{
		{"default separator", nil, "a\nb\n\nc\n", []string{"a", "b", "c"}},
		{"custom separator", kwargs.KWArgs{"separator": ", "}, "x, y, z", []string{"x", "y", "z"}},
		{"empty payload", nil, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mapstreamer.NewAdapter(New(host.NewEnv(), tt.args))
			out := make(chan datum.Message)
			go a.MapStream(context.Background(), &mapstreamer.Request{Keys: []string{"k"}, Value: []byte(tt.value)}, out)
			var got []string
			for m := range out {
				assert.Equal(t, []string{"k"}, m.Keys())
				got = append(got, string(m.Value()))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
