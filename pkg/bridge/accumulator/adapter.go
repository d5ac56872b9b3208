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

package accumulator

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

var contract = string(transport.Accumulator)

// Creator implements AccumulatorCreator on top of a host function that takes
// an *iterator.Iterator[*Datum] and returns a continuation yielding Message
// values.
type Creator struct {
	invoker *invoker.StreamInvoker[*iterator.Iterator[*Datum], Message]
	hooks   lifecycle.Hooks
}

var _ AccumulatorCreator = (*Creator)(nil)

func NewCreator(fn *host.Function, opts ...lifecycle.HookOption) *Creator {
	return &Creator{
		invoker: invoker.NewStream[*iterator.Iterator[*Datum], Message](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

func (c *Creator) Create() Accumulator {
	return &accumulator{creator: c}
}

type accumulator struct {
	creator *Creator
}

// Accumulate terminates the stream of the key group on the first invocation
// error. Other key groups are unaffected.
func (a *accumulator) Accumulate(ctx context.Context, requests <-chan *Request, out chan<- Message) {
	defer iterator.Drain(ctx, requests)
	defer close(out)
	gate := a.creator.hooks.Gate()
	if !gate.Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return
	}
	defer gate.Exit()

	stream, err := a.creator.invoker.Invoke(ctx, iterator.NewMapped(requests, NewDatum))
	if err == nil {
		err = stream.Drain(ctx, out)
	}
	if err != nil && ctx.Err() == nil {
		logging.FromContext(ctx).Errorw("Accumulator callback failed, terminating the key group stream", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
	}
}
