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

package host

import (
	"context"
	"sync"
)

// Promise is a value that settles once, either resolved or rejected.
type Promise struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

// NewPromise returns a pending promise and its settle functions. Only the
// first settle call has an effect.
func NewPromise() (p *Promise, resolve func(any), reject func(error)) {
	p = &Promise{done: make(chan struct{})}
	resolve = func(v any) {
		p.once.Do(func() {
			p.value = v
			close(p.done)
		})
	}
	reject = func(err error) {
		p.once.Do(func() {
			p.err = err
			close(p.done)
		})
	}
	return p, resolve, reject
}

// Resolved returns a promise already resolved with v.
func Resolved(v any) *Promise {
	p, resolve, _ := NewPromise()
	resolve(v)
	return p
}

// Rejected returns a promise already rejected with err.
func Rejected(err error) *Promise {
	p, _, reject := NewPromise()
	reject(err)
	return p
}

// Go runs fn in a new goroutine and settles the promise with its result.
func Go(fn func() (any, error)) *Promise {
	p, resolve, reject := NewPromise()
	go func() {
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return p
}

// Await waits for the promise to settle or ctx to be done.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the promise has been resolved or rejected.
func (p *Promise) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
