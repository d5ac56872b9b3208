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

package reducer

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.Reduce)

// Creator implements ReducerCreator on top of a host function that takes
// *Args and returns datum.Messages. Every reducer it creates shares the
// function.
type Creator struct {
	invoker *invoker.Invoker[*Args, datum.Messages]
	hooks   lifecycle.Hooks
}

var _ ReducerCreator = (*Creator)(nil)

func NewCreator(fn *host.Function, opts ...lifecycle.HookOption) *Creator {
	return &Creator{
		invoker: invoker.New[*Args, datum.Messages](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

func (c *Creator) Create() Reducer {
	return &reducer{creator: c}
}

type reducer struct {
	creator *Creator
}

// Reduce returns an empty list when the invocation fails.
func (r *reducer) Reduce(ctx context.Context, keys []string, requests <-chan *Request, md datum.Metadata) datum.Messages {
	defer iterator.Drain(ctx, requests)
	gate := r.creator.hooks.Gate()
	if !gate.Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return datum.MessagesBuilder()
	}
	defer gate.Exit()

	msgs, err := r.creator.invoker.Invoke(ctx, NewArgs(keys, requests, md))
	if err != nil {
		logging.FromContext(ctx).Errorw("Reduce callback failed, returning no messages",
			zap.Strings("keys", keys), zap.Stringer("window", md.IntervalWindow()), zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return datum.MessagesBuilder()
	}
	if msgs == nil {
		return datum.MessagesBuilder()
	}
	return msgs
}
