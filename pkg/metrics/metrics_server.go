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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/shared/util"
)

const DefaultPort = 2469

// HealthChecker reports whether a component is able to serve.
type HealthChecker interface {
	IsHealthy(ctx context.Context) error
}

// metricsServer runs an HTTP server to:
// 1. Expose metrics;
// 2. Serve readiness and liveness endpoints.
type metricsServer struct {
	port int
	// Functions that health check executes
	healthCheckExecutors []func() error
	pprof                bool
}

type Option func(*metricsServer)

// WithPort sets the listening port, 0 picks a free one.
func WithPort(port int) Option {
	return func(m *metricsServer) {
		m.port = port
	}
}

// WithHealthCheckExecutor appends a health check executor
func WithHealthCheckExecutor(f func() error) Option {
	return func(m *metricsServer) {
		m.healthCheckExecutors = append(m.healthCheckExecutors, f)
	}
}

// WithHealthCheckers turns each checker into an executor bounded by a timeout.
func WithHealthCheckers(ctx context.Context, checkers ...HealthChecker) Option {
	return func(m *metricsServer) {
		for _, hc := range checkers {
			hc := hc
			m.healthCheckExecutors = append(m.healthCheckExecutors, func() error {
				cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				return hc.IsHealthy(cctx)
			})
		}
	}
}

// NewMetricsServer returns a Prometheus metrics server.
func NewMetricsServer(opts ...Option) *metricsServer {
	m := &metricsServer{
		port:  DefaultPort,
		pprof: util.LookupEnvBoolOr("NUMAFLOW_DEBUG", false),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (ms *metricsServer) handler(log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, ex := range ms.healthCheckExecutors {
			if err := ex(); err != nil {
				log.Errorw("Failed to execute health check", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if ms.pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// Start starts the HTTP service in the background. It returns the bound
// address and a shutdown function.
func (ms *metricsServer) Start(ctx context.Context) (string, func(ctx context.Context) error, error) {
	log := logging.FromContext(ctx)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", ms.port))
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on port %d: %w", ms.port, err)
	}
	httpServer := &http.Server{
		Handler:           ms.handler(log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("Starting metrics HTTP server", zap.String("addr", lis.Addr().String()))
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics server stopped unexpectedly", zap.Error(err))
		}
		log.Info("Metrics server shutdown")
	}()
	return lis.Addr().String(), httpServer.Shutdown, nil
}
