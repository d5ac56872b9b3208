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

package mapper

import (
	"context"

	mappb "github.com/numaproj/numaflow-go/pkg/apis/proto/map/v1"
	sdkmapper "github.com/numaproj/numaflow-go/pkg/mapper"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Server serves a map host function.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
}

// NewServer creates a map server for fn.
func NewServer(fn *host.Function, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.Map, opts...)
	return &Server{
		Server:  s,
		adapter: NewAdapter(fn, s.Hooks()...),
	}
}

// Adapter returns the adapter backing the server.
func (s *Server) Adapter() *Adapter {
	return s.adapter
}

// Start serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context, sockFile, infoFile string) error {
	return s.Serve(ctx, sockFile, infoFile, func(r grpc.ServiceRegistrar) {
		mappb.RegisterMapServer(r, &sdkmapper.Service{Mapper: &sdkMapper{mapper: s.adapter}})
	})
}

// sdkMapper serves a Mapper through the numaflow-go map service.
type sdkMapper struct {
	mapper Mapper
}

func (m *sdkMapper) Map(ctx context.Context, keys []string, d sdkmapper.Datum) sdkmapper.Messages {
	req := &Request{
		Keys:      keys,
		Value:     d.Value(),
		EventTime: d.EventTime(),
		Watermark: d.Watermark(),
		Headers:   d.Headers(),
	}
	out := sdkmapper.MessagesBuilder()
	for _, msg := range m.mapper.Map(ctx, req).Items() {
		out = out.Append(sdkmapper.NewMessage(msg.Value()).WithKeys(msg.KeysOr(keys)).WithTags(msg.Tags()))
	}
	return out
}
