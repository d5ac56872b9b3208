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

package mapstreamer

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.MapStream)

// Adapter implements MapStreamer on top of a host function that takes a
// *Datum and returns a continuation yielding datum.Message values, nil
// ending the stream.
type Adapter struct {
	invoker *invoker.StreamInvoker[*Datum, datum.Message]
	hooks   lifecycle.Hooks
}

var _ MapStreamer = (*Adapter)(nil)

func NewAdapter(fn *host.Function, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		invoker: invoker.NewStream[*Datum, datum.Message](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

// MapStream aborts the stream of the request on the first invocation error;
// messages already sent stay sent.
func (a *Adapter) MapStream(ctx context.Context, req *Request, out chan<- datum.Message) {
	defer close(out)
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return
	}
	defer a.hooks.Gate().Exit()

	log := logging.FromContext(ctx).With(zap.Strings("keys", req.Keys))
	stream, err := a.invoker.Invoke(ctx, mapper.NewDatum(req))
	if err == nil {
		err = stream.Drain(ctx, out)
	}
	if err != nil && ctx.Err() == nil {
		log.Errorw("Map stream callback failed, aborting the stream", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
	}
}
