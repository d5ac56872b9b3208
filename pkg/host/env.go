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

// Package host implements the single-lane callback environment user
// functions run in.
//
// An Env executes at most one callback body at a time, in FIFO order of
// scheduling. Callers from any goroutine schedule a registered Function with
// Call and wait for it; the wait for the lane honours the caller's context.
// A running body may suspend with Scope.Await, which hands the lane to the
// next scheduled body until the awaited operation completes.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/numaproj/numaflow-bridge/pkg/metrics"
)

var (
	// ErrClosed is returned when a call is scheduled on a closed Env.
	ErrClosed = errors.New("host environment is closed")
	// ErrSaturated is returned when the pending call limit is reached.
	ErrSaturated = errors.New("host environment is saturated")
)

// Func is the body of a callback. The returned value may be a plain value, a
// *Promise the caller awaits outside the lane, or a Func/*Function
// continuation.
type Func func(s *Scope, arg any) (any, error)

// Function is an immutable handle to a callback registered in an Env. It is
// shared by reference between every adapter that invokes it.
type Function struct {
	name string
	env  *Env
	body Func
}

// Name returns the registration name.
func (f *Function) Name() string {
	return f.name
}

// Env returns the environment the function is registered in.
func (f *Function) Env() *Env {
	return f.env
}

// CallbackError reports a failure raised by the callback itself: a returned
// error, a rejected promise or a panic.
type CallbackError struct {
	Name string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %q failed: %v", e.Name, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking body.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Env is a single execution lane for callbacks.
type Env struct {
	name    string
	lane    *semaphore.Weighted
	pending *semaphore.Weighted

	mu      sync.RWMutex
	closed  bool
	running sync.WaitGroup
	calls   *atomic.Int64
}

type Option func(*Env)

// WithName names the env in metrics.
func WithName(name string) Option {
	return func(e *Env) {
		e.name = name
	}
}

// WithMaxPendingCalls bounds the number of calls scheduled or running at once.
// Calls beyond the bound fail with ErrSaturated instead of queueing.
func WithMaxPendingCalls(n int64) Option {
	return func(e *Env) {
		if n > 0 {
			e.pending = semaphore.NewWeighted(n)
		} else {
			e.pending = nil
		}
	}
}

// NewEnv returns a ready environment.
func NewEnv(opts ...Option) *Env {
	e := &Env{
		name:  "default",
		lane:  semaphore.NewWeighted(1),
		calls: atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the env name.
func (e *Env) Name() string {
	return e.name
}

// Register makes fn callable in the env under name.
func (e *Env) Register(name string, fn Func) *Function {
	return &Function{name: name, env: e, body: fn}
}

// Pending returns the number of calls scheduled or running.
func (e *Env) Pending() int64 {
	return e.calls.Load()
}

// Closed reports whether Close has been called.
func (e *Env) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Call schedules one invocation of f with arg and waits for its result. If
// the body returns a *Promise, Call waits for it with the lane released and
// returns its settled value. Errors raised by the callback are returned as
// *CallbackError; any other error means the body never ran.
func (e *Env) Call(ctx context.Context, f *Function, arg any) (any, error) {
	if f.env != e {
		return nil, fmt.Errorf("function %q is registered in env %q, not %q", f.name, f.env.name, e.name)
	}
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	e.running.Add(1)
	e.mu.RUnlock()
	defer e.running.Done()

	if e.pending != nil {
		if !e.pending.TryAcquire(1) {
			return nil, ErrSaturated
		}
		defer e.pending.Release(1)
	}
	gauge := metrics.PendingCalls.WithLabelValues(e.name)
	gauge.Set(float64(e.calls.Inc()))
	defer func() { gauge.Set(float64(e.calls.Dec())) }()

	start := time.Now()
	if err := e.lane.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for host lane: %w", err)
	}
	metrics.LaneWaitSeconds.WithLabelValues(e.name).Observe(time.Since(start).Seconds())

	scope := &Scope{ctx: ctx, env: e}
	result, err := run(f, scope, arg)
	e.lane.Release(1)
	if err != nil {
		return nil, &CallbackError{Name: f.name, Err: err}
	}
	if p, ok := result.(*Promise); ok {
		v, err := p.Await(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil, err
			}
			return nil, &CallbackError{Name: f.name, Err: err}
		}
		return v, nil
	}
	return result, nil
}

func run(f *Function, s *Scope, arg any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &PanicError{Value: r}
		}
	}()
	return f.body(s, arg)
}

// Close stops accepting new calls and waits until every scheduled call
// returns or ctx is done.
func (e *Env) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scope is handed to a running body.
type Scope struct {
	ctx context.Context
	env *Env
}

// Context returns the context of the caller that scheduled the body.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Env returns the environment the body runs in.
func (s *Scope) Env() *Env {
	return s.env
}

// Await releases the lane, runs wait, and takes the lane back before
// returning wait's error. Other bodies may run while wait blocks.
func (s *Scope) Await(wait func(ctx context.Context) error) error {
	s.env.lane.Release(1)
	// the body must hold the lane again before it continues, even if ctx is
	// done or wait panics
	defer func() { _ = s.env.lane.Acquire(context.Background(), 1) }()
	return wait(s.ctx)
}
