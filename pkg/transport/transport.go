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

// Package transport is the seam between the adapters and the RPC server
// that speaks the UDF protocol.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/numaproj/numaflow-go/pkg/info"

	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

//go:generate mockgen -destination transportmock/transportmock.go -package transportmock github.com/numaproj/numaflow-bridge/pkg/transport Transport

// Transport serves the protocol until shutdown is closed or ctx is done.
// Serve returns once the transport accepts no more calls.
type Transport interface {
	Serve(ctx context.Context, shutdown <-chan struct{}) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, shutdown <-chan struct{}) error

func (f TransportFunc) Serve(ctx context.Context, shutdown <-chan struct{}) error {
	return f(ctx, shutdown)
}

// Registration registers protocol services on the gRPC server.
type Registration func(s grpc.ServiceRegistrar)

type options struct {
	sockAddr       string
	serverInfoFile string
	maxMessageSize int
	registrations  []Registration
	infoMetadata   map[string]string
}

type Option func(*options)

// WithSockAddr overrides the kind's socket path. Empty keeps the default.
func WithSockAddr(addr string) Option {
	return func(o *options) {
		if addr != "" {
			o.sockAddr = addr
		}
	}
}

// WithServerInfoFilePath overrides the kind's server info file. Empty keeps the default.
func WithServerInfoFilePath(f string) Option {
	return func(o *options) {
		if f != "" {
			o.serverInfoFile = f
		}
	}
}

// WithMaxMessageSize sets the max send and receive message size.
func WithMaxMessageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.maxMessageSize = size
		}
	}
}

// WithRegistration adds a protocol service registration.
func WithRegistration(r Registration) Option {
	return func(o *options) {
		if r != nil {
			o.registrations = append(o.registrations, r)
		}
	}
}

// WithServerInfoMetadata adds a metadata entry to the server info file.
func WithServerInfoMetadata(key, value string) Option {
	return func(o *options) {
		if o.infoMetadata == nil {
			o.infoMetadata = map[string]string{}
		}
		o.infoMetadata[key] = value
	}
}

// GRPCServer serves a UDF kind over a unix domain socket.
type GRPCServer struct {
	kind Kind
	opts *options
}

// NewGRPCServer returns the gRPC transport of kind. Serve fails when no
// protocol service has been registered.
func NewGRPCServer(kind Kind, inputOptions ...Option) *GRPCServer {
	opts := &options{
		sockAddr:       kind.SockAddr(),
		serverInfoFile: kind.ServerInfoFile(),
		maxMessageSize: DefaultGRPCMaxMessageSize,
	}
	for _, o := range inputOptions {
		o(opts)
	}
	return &GRPCServer{kind: kind, opts: opts}
}

// SockAddr returns the socket the server listens on.
func (g *GRPCServer) SockAddr() string {
	return g.opts.sockAddr
}

func (g *GRPCServer) serverInfo() *info.ServerInfo {
	si := g.kind.ServerInfo()
	for k, v := range g.opts.infoMetadata {
		if si.Metadata == nil {
			si.Metadata = map[string]string{}
		}
		si.Metadata[k] = v
	}
	return si
}

var enableHandlingTimeHistogram sync.Once

// newServer creates the gRPC server with the configured message size limits
// and the grpc_prometheus interceptors.
func (g *GRPCServer) newServer() *grpc.Server {
	enableHandlingTimeHistogram.Do(func() { grpc_prometheus.EnableHandlingTimeHistogram() })
	return grpc.NewServer(
		grpc.MaxRecvMsgSize(g.opts.maxMessageSize),
		grpc.MaxSendMsgSize(g.opts.maxMessageSize),
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_prometheus.UnaryServerInterceptor,
		)),
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
			grpc_prometheus.StreamServerInterceptor,
		)),
	)
}

// ErrNoRegistration is returned by Serve when there is no protocol service to serve.
var ErrNoRegistration = errors.New("no protocol service registered")

func (g *GRPCServer) Serve(ctx context.Context, shutdown <-chan struct{}) error {
	if len(g.opts.registrations) == 0 {
		return fmt.Errorf("%s: %w", g.kind, ErrNoRegistration)
	}
	log := logging.FromContext(ctx).With(zap.String("kind", string(g.kind)))

	lis, err := g.prepare()
	if err != nil {
		return fmt.Errorf("failed to prepare the %s server: %w", g.kind, err)
	}
	defer func() { _ = lis.Close() }()

	server := g.newServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	for _, r := range g.opts.registrations {
		r(server)
	}
	grpc_prometheus.Register(server)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	stopped := make(chan struct{})
	eg := errgroup.Group{}
	eg.Go(func() error {
		select {
		case <-shutdown:
		case <-ctx.Done():
		case <-stopped:
			return nil
		}
		log.Info("Stopping the gRPC server")
		healthServer.Shutdown()
		stopGRPCServer(server, gracefulStopTimeout)
		return nil
	})
	eg.Go(func() error {
		defer close(stopped)
		log.Infow("Serving", zap.String("sockAddr", g.opts.sockAddr))
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("failed to start the gRPC server: %w", err)
		}
		return nil
	})
	return eg.Wait()
}

// prepare writes the server info file and listens on the socket, replacing a
// stale socket file.
func (g *GRPCServer) prepare() (net.Listener, error) {
	if err := info.Write(g.serverInfo(), info.WithServerInfoFilePath(g.opts.serverInfoFile)); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(g.opts.sockAddr); err != nil {
		return nil, err
	}
	lis, err := net.Listen("unix", g.opts.sockAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", g.opts.sockAddr, err)
	}
	return lis, nil
}

const gracefulStopTimeout = 30 * time.Second

// stopGRPCServer stops the server gracefully, forcefully after timeout.
func stopGRPCServer(server *grpc.Server, timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
		server.Stop()
		<-stopped
	case <-stopped:
	}
}
