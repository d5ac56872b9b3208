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

package blackhole

import (
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sinker"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
)

// New returns a sink function that discards every datum.
func New(env *host.Env) *host.Function {
	return env.Register("blackhole", func(s *host.Scope, arg any) (any, error) {
		it := arg.(*iterator.Iterator[*sinker.Datum])
		responses := sinker.ResponsesBuilder()
		for r := it.Next(s); !r.Done; r = it.Next(s) {
			metrics.BuiltinWriteCount.WithLabelValues("blackhole").Inc()
			responses = responses.Append(sinker.ResponseOK(r.Value.ID()))
		}
		return responses, nil
	})
}
