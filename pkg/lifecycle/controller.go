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

// Package lifecycle starts an adapter's transport and drains it on stop.
//
// A Controller owns a one-shot shutdown signal created with the controller,
// so Stop is safe before, during and after Run. Once the signal fires, the
// gate refuses new invocations, the transport stops accepting calls, and Run
// returns only after every admitted invocation has finished.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// ErrAlreadyStarted is returned by a second call to Run.
var ErrAlreadyStarted = errors.New("server already started")

type Controller struct {
	contract string
	gate     *Gate

	shutdown     chan struct{}
	shutdownOnce sync.Once

	mu      sync.Mutex
	started bool
	fatal   error
}

// NewController returns a controller for the named contract.
func NewController(contract string) *Controller {
	return &Controller{
		contract: contract,
		gate:     NewGate(contract),
		shutdown: make(chan struct{}),
	}
}

// Gate returns the gate adapters enter for every invocation.
func (c *Controller) Gate() *Gate {
	return c.gate
}

// Done is closed once shutdown has been requested.
func (c *Controller) Done() <-chan struct{} {
	return c.shutdown
}

// Stop requests shutdown. It can be called any number of times, before or
// after Run.
func (c *Controller) Stop() {
	c.shutdownOnce.Do(func() {
		close(c.shutdown)
	})
}

// Fail records a streaming-fatal error and requests shutdown. The error is
// returned by Run.
func (c *Controller) Fail(err error) {
	metrics.FatalErrorsCount.WithLabelValues(c.contract).Inc()
	c.mu.Lock()
	c.fatal = multierr.Append(c.fatal, err)
	c.mu.Unlock()
	c.Stop()
}

// Err returns the fatal errors recorded so far.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// Run serves t until shutdown is requested, t fails, or ctx is done, then
// waits for in-flight invocations.
func (c *Controller) Run(ctx context.Context, t transport.Transport) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	log := logging.FromContext(ctx).With(zap.String("contract", c.contract))
	stopping := make(chan struct{})
	go func() {
		select {
		case <-c.shutdown:
		case <-ctx.Done():
		case <-stopping:
		}
		c.gate.Close()
	}()

	log.Info("Starting server")
	serveErr := t.Serve(ctx, c.shutdown)
	close(stopping)
	c.gate.Close()
	if serveErr != nil {
		serveErr = fmt.Errorf("serving %s: %w", c.contract, serveErr)
	}

	log.Info("Waiting for in-flight invocations to finish")
	// in-flight invocations finish even when ctx is already done
	_ = c.gate.Wait(context.Background())
	err := multierr.Append(serveErr, c.Err())
	if err != nil {
		log.Errorw("Server stopped with error", zap.Error(err))
	} else {
		log.Info("Server has shutdown")
	}
	return err
}
