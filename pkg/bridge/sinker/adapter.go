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

package sinker

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.Sink)

// Adapter implements Sinker on top of a host function that takes an
// *iterator.Iterator[*Datum] and returns Responses.
type Adapter struct {
	invoker *invoker.Invoker[*iterator.Iterator[*Datum], Responses]
	hooks   lifecycle.Hooks
}

var _ Sinker = (*Adapter)(nil)

func NewAdapter(fn *host.Function, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		invoker: invoker.New[*iterator.Iterator[*Datum], Responses](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

// Sink returns an empty response list when the invocation fails, which makes
// the runtime retry the whole batch.
func (a *Adapter) Sink(ctx context.Context, requests <-chan *Request) Responses {
	defer iterator.Drain(ctx, requests)
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return ResponsesBuilder()
	}
	defer a.hooks.Gate().Exit()

	responses, err := a.invoker.Invoke(ctx, iterator.NewMapped(requests, NewDatum))
	if err != nil {
		logging.FromContext(ctx).Errorw("Sink callback failed, returning no responses", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return ResponsesBuilder()
	}
	if responses == nil {
		return ResponsesBuilder()
	}
	return responses
}
