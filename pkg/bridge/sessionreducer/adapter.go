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

package sessionreducer

import (
	"context"

	"go.uber.org/atomic"
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

var (
	contract  = string(transport.SessionReduce)
	sessionID = atomic.NewUint64(0)
)

// Creator implements SessionReducerCreator on top of three host functions:
//
//   - reduce takes *Args and returns a continuation yielding datum.Message
//     values;
//   - accumulator takes the *Session and returns its state as []byte;
//   - merge takes *MergeArgs; its result is ignored.
type Creator struct {
	reduce      *invoker.StreamInvoker[*Args, datum.Message]
	accumulator *invoker.Invoker[*Session, []byte]
	merge       *invoker.Invoker[*MergeArgs, any]
	hooks       lifecycle.Hooks
}

var _ SessionReducerCreator = (*Creator)(nil)

func NewCreator(reduce, accumulator, merge *host.Function, opts ...lifecycle.HookOption) *Creator {
	return &Creator{
		reduce:      invoker.NewStream[*Args, datum.Message](reduce),
		accumulator: invoker.New[*Session, []byte](accumulator),
		merge:       invoker.New[*MergeArgs, any](merge),
		hooks:       lifecycle.NewHooks(opts...),
	}
}

func (c *Creator) Create() SessionReducer {
	return &sessionReducer{creator: c, session: &Session{id: sessionID.Inc()}}
}

type sessionReducer struct {
	creator *Creator
	session *Session
}

func (r *sessionReducer) logger(ctx context.Context) *zap.SugaredLogger {
	return logging.FromContext(ctx).With(zap.Uint64("session", r.session.id))
}

// SessionReduce ends the stream of the session on the first invocation error.
func (r *sessionReducer) SessionReduce(ctx context.Context, keys []string, requests <-chan *Request, out chan<- datum.Message) {
	defer iterator.Drain(ctx, requests)
	defer close(out)
	gate := r.creator.hooks.Gate()
	if !gate.Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return
	}
	defer gate.Exit()

	stream, err := r.creator.reduce.Invoke(ctx, NewArgs(r.session, keys, requests))
	if err == nil {
		err = stream.Drain(ctx, out)
	}
	if err != nil && ctx.Err() == nil {
		r.logger(ctx).Errorw("Session reduce callback failed, ending the stream", zap.Strings("keys", keys), zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
	}
}

// Accumulator returns an empty state when the invocation fails.
func (r *sessionReducer) Accumulator(ctx context.Context) []byte {
	gate := r.creator.hooks.Gate()
	if !gate.Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return []byte{}
	}
	defer gate.Exit()

	state, err := r.creator.accumulator.Invoke(ctx, r.session)
	if err != nil {
		r.logger(ctx).Errorw("Accumulator callback failed, returning an empty state", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return []byte{}
	}
	if state == nil {
		return []byte{}
	}
	return state
}

// MergeAccumulator logs and otherwise ignores invocation errors.
func (r *sessionReducer) MergeAccumulator(ctx context.Context, accumulator []byte) {
	gate := r.creator.hooks.Gate()
	if !gate.Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return
	}
	defer gate.Exit()

	if _, err := r.creator.merge.Invoke(ctx, &MergeArgs{Session: r.session, Accumulator: accumulator}); err != nil {
		r.logger(ctx).Errorw("Merge accumulator callback failed, ignoring the accumulator", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
	}
}
