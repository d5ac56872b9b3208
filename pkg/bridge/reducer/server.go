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

package reducer

import (
	"context"

	reducepb "github.com/numaproj/numaflow-go/pkg/apis/proto/reduce/v1"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Binder registers the reduce protocol service.
type Binder = lifecycle.Binder[ReducerCreator]

// Server serves a reduce host function.
type Server struct {
	*lifecycle.Server
	creator *Creator
	binder  Binder
}

// NewServer creates a reduce server. A nil binder serves the creator through
// NewService.
func NewServer(fn *host.Function, binder Binder, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.Reduce, opts...)
	return &Server{
		Server:  s,
		creator: NewCreator(fn, s.Hooks()...),
		binder:  binder,
	}
}

func (s *Server) Creator() *Creator {
	return s.creator
}

// Start serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context, sockFile, infoFile string) error {
	return s.Serve(ctx, sockFile, infoFile, lifecycle.Bind[ReducerCreator](s.binder, s.creator, s.register)...)
}

func (s *Server) register(r grpc.ServiceRegistrar) {
	reducepb.RegisterReduceServer(r, NewService(s.creator))
}
