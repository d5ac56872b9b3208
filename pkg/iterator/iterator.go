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

// Package iterator lets a host callback pull the elements of a channel one
// at a time.
package iterator

import (
	"context"

	"go.uber.org/atomic"

	"github.com/numaproj/numaflow-bridge/pkg/host"
)

// Result is one step of an iteration. Done is true once the channel is
// closed, and Value is then the zero value.
type Result[T any] struct {
	Value T
	Done  bool
}

// Iterator wraps the receiving side of a channel. Only one Next may be
// outstanding at a time.
type Iterator[T any] struct {
	recv func(ctx context.Context) (T, bool)
	busy *atomic.Bool
	done *atomic.Bool
}

// New returns an iterator over ch.
func New[T any](ch <-chan T) *Iterator[T] {
	return NewMapped(ch, func(v T) T { return v })
}

// NewMapped returns an iterator over ch that converts every element with fn
// as it is pulled.
func NewMapped[S, T any](ch <-chan S, fn func(S) T) *Iterator[T] {
	return &Iterator[T]{
		recv: func(ctx context.Context) (T, bool) {
			var zero T
			select {
			case v, ok := <-ch:
				if !ok {
					return zero, false
				}
				return fn(v), true
			case <-ctx.Done():
				return zero, false
			}
		},
		busy: atomic.NewBool(false),
		done: atomic.NewBool(false),
	}
}

// Next suspends the calling body, with the host lane released, until an
// element is available or the channel is closed.
func (it *Iterator[T]) Next(s *host.Scope) Result[T] {
	var r Result[T]
	_ = s.Await(func(ctx context.Context) error {
		r = it.NextContext(ctx)
		return nil
	})
	return r
}

// NextContext is Next for callers outside the host env. A done ctx ends the
// iteration.
func (it *Iterator[T]) NextContext(ctx context.Context) Result[T] {
	if !it.busy.CompareAndSwap(false, true) {
		panic("iterator: concurrent calls to Next")
	}
	defer it.busy.Store(false)
	if it.done.Load() {
		return Result[T]{Done: true}
	}
	v, ok := it.recv(ctx)
	if !ok {
		it.done.Store(true)
		return Result[T]{Done: true}
	}
	return Result[T]{Value: v}
}

// Collect drains the iterator into a slice.
func (it *Iterator[T]) Collect(s *host.Scope) []T {
	var out []T
	for r := it.Next(s); !r.Done; r = it.Next(s) {
		out = append(out, r.Value)
	}
	return out
}

// Drain discards what is left in ch so its producer is never blocked by an
// abandoned iteration. It returns when ch is closed or ctx is done.
func Drain[T any](ctx context.Context, ch <-chan T) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
