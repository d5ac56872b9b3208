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

package reducestreamer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/reducer"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.ReduceStream)

// Creator implements ReduceStreamerCreator on top of a host function that
// takes *Args and returns a continuation yielding datum.Message values.
type Creator struct {
	invoker *invoker.StreamInvoker[*Args, datum.Message]
	hooks   lifecycle.Hooks
}

var _ ReduceStreamerCreator = (*Creator)(nil)

// NewCreator returns a reduce-stream creator. Invocation errors are fatal:
// they are reported to the handler set by lifecycle.WithFatalHandler.
func NewCreator(fn *host.Function, opts ...lifecycle.HookOption) *Creator {
	return &Creator{
		invoker: invoker.NewStream[*Args, datum.Message](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

func (c *Creator) Create() ReduceStreamer {
	return &reduceStreamer{creator: c}
}

type reduceStreamer struct {
	creator *Creator
}

func (r *reduceStreamer) ReduceStream(ctx context.Context, keys []string, requests <-chan *Request, out chan<- datum.Message, md datum.Metadata) error {
	defer iterator.Drain(ctx, requests)
	defer close(out)
	gate := r.creator.hooks.Gate()
	if !gate.Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return lifecycle.ErrShuttingDown
	}
	defer gate.Exit()

	stream, err := r.creator.invoker.Invoke(ctx, reducer.NewArgs(keys, requests, md))
	if err == nil {
		err = stream.Drain(ctx, out)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fmt.Errorf("reduce stream of keys %v in window %s: %w", keys, md.IntervalWindow(), err)
		logging.FromContext(ctx).Errorw("Reduce stream callback failed, shutting down", zap.Error(err))
		r.creator.hooks.Fatal(err)
		return err
	}
	return nil
}
