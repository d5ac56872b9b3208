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

// Package invoker calls host functions from native goroutines and converts
// their dynamically typed results.
//
// Invoker is the single-shot form: one call, one result. StreamInvoker is the
// two-phase form used by streaming contracts: the first call returns a
// continuation, which is called repeatedly until it yields no value.
package invoker

import (
	"context"
	"fmt"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
)

func call(ctx context.Context, fn *host.Function, arg any) (any, error) {
	metrics.InvocationsCount.WithLabelValues(fn.Name()).Inc()
	v, err := fn.Env().Call(ctx, fn, arg)
	if err != nil {
		ie := classify(fn.Name(), err)
		metrics.InvocationErrorsCount.WithLabelValues(fn.Name(), ie.Kind.String()).Inc()
		return nil, ie
	}
	return v, nil
}

func conversionError(name string, err error) *Error {
	metrics.InvocationErrorsCount.WithLabelValues(name, ConversionFailed.String()).Inc()
	return &Error{Kind: ConversionFailed, Callback: name, Err: err}
}

// Invoker invokes a host function with an A and expects an R back.
type Invoker[A, R any] struct {
	fn *host.Function
}

func New[A, R any](fn *host.Function) *Invoker[A, R] {
	return &Invoker[A, R]{fn: fn}
}

// Name returns the name of the wrapped function.
func (i *Invoker[A, R]) Name() string {
	return i.fn.Name()
}

// Invoke schedules exactly one invocation and waits for its result. A nil
// result converts to the zero R.
func (i *Invoker[A, R]) Invoke(ctx context.Context, arg A) (R, error) {
	var zero R
	v, err := call(ctx, i.fn, arg)
	if err != nil {
		return zero, err
	}
	r, err := convert[R](v)
	if err != nil {
		return zero, conversionError(i.fn.Name(), err)
	}
	return r, nil
}

// StreamInvoker invokes a host function that returns a continuation.
type StreamInvoker[A, R any] struct {
	fn *host.Function
}

func NewStream[A, R any](fn *host.Function) *StreamInvoker[A, R] {
	return &StreamInvoker[A, R]{fn: fn}
}

func (s *StreamInvoker[A, R]) Name() string {
	return s.fn.Name()
}

// Invoke runs the first phase and returns the continuation. A nil result is
// an empty stream.
func (s *StreamInvoker[A, R]) Invoke(ctx context.Context, arg A) (*Continuation[R], error) {
	v, err := call(ctx, s.fn, arg)
	if err != nil {
		return nil, err
	}
	name := s.fn.Name() + ".next"
	switch next := v.(type) {
	case nil:
		return &Continuation[R]{done: true}, nil
	case *host.Function:
		return &Continuation[R]{next: next}, nil
	case host.Func:
		return &Continuation[R]{next: s.fn.Env().Register(name, next)}, nil
	case func(*host.Scope, any) (any, error):
		return &Continuation[R]{next: s.fn.Env().Register(name, next)}, nil
	default:
		return nil, conversionError(s.fn.Name(), fmt.Errorf("expected a continuation, got %T", v))
	}
}

// Continuation pulls successive values of a lazily produced stream. It is
// not safe for concurrent use.
type Continuation[R any] struct {
	next *host.Function
	done bool
}

// Next invokes the continuation once. ok is false when the stream has ended,
// either because the continuation yielded nil or because of err. After the
// first terminal result every call returns ok=false without invoking.
func (c *Continuation[R]) Next(ctx context.Context) (value R, ok bool, err error) {
	var zero R
	if c.done {
		return zero, false, nil
	}
	v, err := call(ctx, c.next, nil)
	if err != nil {
		c.done = true
		return zero, false, err
	}
	if v == nil || isNilPointer(v) {
		c.done = true
		return zero, false, nil
	}
	r, err := convert[R](v)
	if err != nil {
		c.done = true
		return zero, false, conversionError(c.next.Name(), err)
	}
	return r, true, nil
}

// Done reports whether the stream has ended.
func (c *Continuation[R]) Done() bool {
	return c.done
}

// Drain forwards every value of the stream to out in order, blocking while
// out is full. It returns the error that ended the stream, or ctx.Err() when
// ctx is done first. out is not closed.
func (c *Continuation[R]) Drain(ctx context.Context, out chan<- R) error {
	for {
		v, ok, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		select {
		case out <- v:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
