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

package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/numaproj/numaflow-bridge/pkg/metrics"
)

// ErrShuttingDown is returned by adapters that refuse an invocation because
// the gate is closed and the contract has no degraded result.
var ErrShuttingDown = errors.New("server is shutting down")

// Gate admits adapter invocations until it is closed, and tracks the ones in
// flight so shutdown can wait for them. A nil *Gate admits everything.
type Gate struct {
	contract string
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewGate returns an open gate. contract labels the in-flight gauge.
func NewGate(contract string) *Gate {
	return &Gate{contract: contract}
}

// Enter admits one invocation. It returns false once the gate is closed; the
// caller must then not call Exit.
func (g *Gate) Enter() bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.inflight.Add(1)
	metrics.InflightInvocations.WithLabelValues(g.contract).Inc()
	return true
}

// Exit marks an admitted invocation as finished.
func (g *Gate) Exit() {
	if g == nil {
		return
	}
	metrics.InflightInvocations.WithLabelValues(g.contract).Dec()
	g.inflight.Done()
}

// Close stops admitting invocations. Closing twice is a no-op.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// Closed reports whether Close was called.
func (g *Gate) Closed() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Wait blocks until every admitted invocation has exited, or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
