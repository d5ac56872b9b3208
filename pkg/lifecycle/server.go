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

	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

type serverOptions struct {
	transport      transport.Transport
	maxMessageSize int
	registrations  []transport.Registration
}

type ServerOption func(*serverOptions)

// WithTransport replaces the gRPC transport, e.g. with a test double.
func WithTransport(t transport.Transport) ServerOption {
	return func(o *serverOptions) {
		o.transport = t
	}
}

// WithMaxMessageSize sets the gRPC max message size.
func WithMaxMessageSize(size int) ServerOption {
	return func(o *serverOptions) {
		o.maxMessageSize = size
	}
}

// WithRegistration binds the adapter to a protocol service. Registrations
// given here replace the built-in binding of the kind, if it has one.
func WithRegistration(r transport.Registration) ServerOption {
	return func(o *serverOptions) {
		o.registrations = append(o.registrations, r)
	}
}

// Server couples a Controller with the transport of one kind.
type Server struct {
	*Controller
	kind transport.Kind
	opts *serverOptions
}

func NewServer(kind transport.Kind, inputOptions ...ServerOption) *Server {
	opts := &serverOptions{maxMessageSize: transport.DefaultGRPCMaxMessageSize}
	for _, o := range inputOptions {
		o(opts)
	}
	return &Server{
		Controller: NewController(string(kind)),
		kind:       kind,
		opts:       opts,
	}
}

// Kind returns the kind served.
func (s *Server) Kind() transport.Kind {
	return s.kind
}

// Serve runs the controller on the configured transport. Empty paths use
// the defaults of the kind. builtin is registered only when no registration
// option was given.
func (s *Server) Serve(ctx context.Context, sockFile, infoFile string, builtin ...transport.Registration) error {
	t := s.opts.transport
	if t == nil {
		regs := s.opts.registrations
		if len(regs) == 0 {
			regs = builtin
		}
		opts := []transport.Option{
			transport.WithSockAddr(sockFile),
			transport.WithServerInfoFilePath(infoFile),
			transport.WithMaxMessageSize(s.opts.maxMessageSize),
		}
		for _, r := range regs {
			opts = append(opts, transport.WithRegistration(r))
		}
		t = transport.NewGRPCServer(s.kind, opts...)
	}
	return s.Run(ctx, t)
}

// Binder registers a protocol service backed by an adapter contract. It
// replaces the built-in protocol binding of a kind, and is the only binding
// of the kinds that have none.
type Binder[T any] func(r grpc.ServiceRegistrar, contract T)

// Bind returns the registration of contract through b. A nil b falls back
// to builtin, which may be nil as well.
func Bind[T any](b Binder[T], contract T, builtin transport.Registration) []transport.Registration {
	if b == nil {
		if builtin == nil {
			return nil
		}
		return []transport.Registration{builtin}
	}
	return []transport.Registration{func(r grpc.ServiceRegistrar) { b(r, contract) }}
}
