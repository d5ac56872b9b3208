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

package logger

import (
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sinker"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

// New returns a sink function that logs every datum and acknowledges it.
func New(env *host.Env) *host.Function {
	return env.Register("log", func(s *host.Scope, arg any) (any, error) {
		log := logging.FromContext(s.Context())
		it := arg.(*iterator.Iterator[*sinker.Datum])
		responses := sinker.ResponsesBuilder()
		for r := it.Next(s); !r.Done; r = it.Next(s) {
			d := r.Value
			metrics.BuiltinWriteCount.WithLabelValues("log").Inc()
			log.Infow("Sink",
				zap.String("id", d.ID()),
				zap.ByteString("payload", d.Value()),
				zap.Strings("keys", d.Keys()),
				zap.Int64("eventTime", d.EventTime().UnixMilli()))
			responses = responses.Append(sinker.ResponseOK(d.ID()))
		}
		return responses, nil
	})
}
