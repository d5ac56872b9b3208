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

package sourcer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.Source)

// Functions are the host functions backing a source.
type Functions struct {
	// Read takes a *ReadRequest and returns a continuation yielding Message
	// values.
	Read *host.Function
	// Ack and Nack take a []datum.Offset.
	Ack  *host.Function
	Nack *host.Function
	// Pending returns an integer, or nil when unknown.
	Pending *host.Function
	// Partitions returns a list of integers, or nil when unknown.
	Partitions *host.Function
}

// Adapter implements Sourcer on top of Functions.
type Adapter struct {
	read       *invoker.StreamInvoker[*ReadRequest, Message]
	ack        *invoker.Invoker[[]datum.Offset, any]
	nack       *invoker.Invoker[[]datum.Offset, any]
	pending    *invoker.Invoker[any, *int64]
	partitions *invoker.Invoker[any, []int32]
	hooks      lifecycle.Hooks
}

var _ Sourcer = (*Adapter)(nil)

// NewAdapter returns a source adapter. Read errors are fatal and reported to
// the handler set by lifecycle.WithFatalHandler.
func NewAdapter(fns Functions, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		read:       invoker.NewStream[*ReadRequest, Message](fns.Read),
		ack:        invoker.New[[]datum.Offset, any](fns.Ack),
		nack:       invoker.New[[]datum.Offset, any](fns.Nack),
		pending:    invoker.New[any, *int64](fns.Pending),
		partitions: invoker.New[any, []int32](fns.Partitions),
		hooks:      lifecycle.NewHooks(opts...),
	}
}

func (a *Adapter) Read(ctx context.Context, req *ReadRequest, out chan<- Message) error {
	defer close(out)
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return lifecycle.ErrShuttingDown
	}
	defer a.hooks.Gate().Exit()

	stream, err := a.read.Invoke(ctx, req)
	if err == nil {
		err = stream.Drain(ctx, out)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fmt.Errorf("reading %d records: %w", req.NumRecords, err)
		logging.FromContext(ctx).Errorw("Source read callback failed, shutting down", zap.Error(err))
		a.hooks.Fatal(err)
		return err
	}
	return nil
}

// Ack is not retried; a failure is logged.
func (a *Adapter) Ack(ctx context.Context, offsets []datum.Offset) {
	a.settle(ctx, a.ack, "ack", offsets)
}

// Nack is not retried; a failure is logged.
func (a *Adapter) Nack(ctx context.Context, offsets []datum.Offset) {
	a.settle(ctx, a.nack, "nack", offsets)
}

func (a *Adapter) settle(ctx context.Context, inv *invoker.Invoker[[]datum.Offset, any], op string, offsets []datum.Offset) {
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return
	}
	defer a.hooks.Gate().Exit()

	if _, err := inv.Invoke(ctx, offsets); err != nil {
		logging.FromContext(ctx).Errorw("Source callback failed", zap.String("op", op), zap.Int("offsets", len(offsets)), zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
	}
}

// Pending reports unknown when the invocation fails.
func (a *Adapter) Pending(ctx context.Context) (int64, bool) {
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return 0, false
	}
	defer a.hooks.Gate().Exit()

	n, err := a.pending.Invoke(ctx, nil)
	if err != nil {
		logging.FromContext(ctx).Errorw("Source pending callback failed", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return 0, false
	}
	if n == nil {
		return 0, false
	}
	return *n, true
}

// Partitions reports unknown when the invocation fails.
func (a *Adapter) Partitions(ctx context.Context) ([]int32, bool) {
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return nil, false
	}
	defer a.hooks.Gate().Exit()

	partitions, err := a.partitions.Invoke(ctx, nil)
	if err != nil {
		logging.FromContext(ctx).Errorw("Source partitions callback failed", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return nil, false
	}
	if partitions == nil {
		return nil, false
	}
	return partitions, true
}
