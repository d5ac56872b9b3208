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

package batchmapper

import (
	"context"

	batchmappb "github.com/numaproj/numaflow-go/pkg/apis/proto/batchmap/v1"
	sdkbatchmapper "github.com/numaproj/numaflow-go/pkg/batchmapper"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Binder registers the batch-map protocol service.
type Binder = lifecycle.Binder[BatchMapper]

// Server serves a batch-map host function.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
	binder  Binder
}

// NewServer creates a batch-map server. A nil binder serves the adapter
// through the numaflow-go batch-map service.
func NewServer(fn *host.Function, binder Binder, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.BatchMap, opts...)
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
	return s.Serve(ctx, sockFile, infoFile, lifecycle.Bind[BatchMapper](s.binder, s.adapter, s.register)...)
}

func (s *Server) register(r grpc.ServiceRegistrar) {
	batchmappb.RegisterBatchMapServer(r, &sdkbatchmapper.Service{BatchMapper: &sdkBatchMapper{mapper: s.adapter}})
}

// sdkBatchMapper serves a BatchMapper through the numaflow-go batch-map
// service, which requires exactly one response per request.
type sdkBatchMapper struct {
	mapper BatchMapper
}

func (m *sdkBatchMapper) BatchMap(ctx context.Context, datums <-chan sdkbatchmapper.Datum) sdkbatchmapper.BatchResponses {
	var (
		ids      []string
		requests = make(chan *Request)
		result   = make(chan BatchResponses, 1)
	)
	go func() {
		result <- m.mapper.BatchMap(ctx, requests)
	}()
	keys := make(map[string][]string)
	for d := range datums {
		ids = append(ids, d.Id())
		keys[d.Id()] = d.Keys()
		req := &Request{
			ID:        d.Id(),
			Keys:      d.Keys(),
			Value:     d.Value(),
			EventTime: d.EventTime(),
			Watermark: d.Watermark(),
			Headers:   d.Headers(),
		}
		select {
		case requests <- req:
		case <-ctx.Done():
		}
	}
	close(requests)

	byID := make(map[string]*BatchResponse)
	for _, resp := range (<-result).Items() {
		if resp != nil {
			byID[resp.ID()] = resp
		}
	}
	out := sdkbatchmapper.BatchResponsesBuilder()
	for _, id := range ids {
		resp := sdkbatchmapper.NewBatchResponse(id)
		if r, ok := byID[id]; ok {
			for _, msg := range r.Items() {
				resp = resp.Append(sdkbatchmapper.NewMessage(msg.Value()).WithKeys(msg.KeysOr(keys[id])).WithTags(msg.Tags()))
			}
		}
		out = out.Append(resp)
	}
	return out
}
