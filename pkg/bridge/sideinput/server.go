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

package sideinput

import (
	"context"

	sideinputpb "github.com/numaproj/numaflow-go/pkg/apis/proto/sideinput/v1"
	sdksideinput "github.com/numaproj/numaflow-go/pkg/sideinput"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Binder registers the side-input protocol service.
type Binder = lifecycle.Binder[SideInputRetriever]

// Server serves a side-input host function.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
	binder  Binder
}

// NewServer creates a side-input server. A nil binder serves the adapter
// through the numaflow-go side-input service.
func NewServer(fn *host.Function, binder Binder, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.SideInput, opts...)
	return &Server{
		Server:  s,
		adapter: NewAdapter(fn, s.Hooks()...),
		binder:  binder,
	}
}

func (s *Server) Adapter() *Adapter {
	return s.adapter
}

// Start serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context, sockFile, infoFile string) error {
	return s.Serve(ctx, sockFile, infoFile, lifecycle.Bind[SideInputRetriever](s.binder, s.adapter, s.register)...)
}

func (s *Server) register(r grpc.ServiceRegistrar) {
	sideinputpb.RegisterSideInputServer(r, &sdksideinput.Service{Retriever: &sdkRetriever{retriever: s.adapter}})
}

// sdkRetriever serves a SideInputRetriever through the numaflow-go
// side-input service.
type sdkRetriever struct {
	retriever SideInputRetriever
}

func (r *sdkRetriever) RetrieveSideInput(ctx context.Context) sdksideinput.Message {
	value, ok := r.retriever.RetrieveSideInput(ctx)
	if !ok {
		return sdksideinput.NoBroadcastMessage()
	}
	return sdksideinput.BroadcastMessage(value)
}
