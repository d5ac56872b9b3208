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

package sinker

import (
	"context"

	sinkpb "github.com/numaproj/numaflow-go/pkg/apis/proto/sink/v1"
	sdksinker "github.com/numaproj/numaflow-go/pkg/sinker"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Binder registers the sink protocol service.
type Binder = lifecycle.Binder[Sinker]

// Server serves a sink host function.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
	binder  Binder
}

// NewServer creates a sink server. A nil binder serves the adapter through
// the numaflow-go sink service.
func NewServer(fn *host.Function, binder Binder, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.Sink, opts...)
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
	return s.Serve(ctx, sockFile, infoFile, lifecycle.Bind[Sinker](s.binder, s.adapter, s.register)...)
}

func (s *Server) register(r grpc.ServiceRegistrar) {
	sinkpb.RegisterSinkServer(r, &sdksinker.Service{Sinker: &sdkSinker{sinker: s.adapter}})
}

// errNoResponse is the failure reported for a request the sink did not
// answer.
const errNoResponse = "no response from the sink"

// sdkSinker serves a Sinker through the numaflow-go sink service. The sink
// protocol only knows success, failure and fallback: serve and on-success
// responses are reported as written.
type sdkSinker struct {
	sinker Sinker
}

func (k *sdkSinker) Sink(ctx context.Context, datums <-chan sdksinker.Datum) sdksinker.Responses {
	var (
		ids      []string
		requests = make(chan *Request)
		result   = make(chan Responses, 1)
	)
	go func() {
		result <- k.sinker.Sink(ctx, requests)
	}()
	for d := range datums {
		ids = append(ids, d.ID())
		req := &Request{
			ID:        d.ID(),
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

	byID := make(map[string]Response)
	for _, resp := range (<-result).Items() {
		byID[resp.ID] = resp
	}
	out := sdksinker.ResponsesBuilder()
	for _, id := range ids {
		resp, ok := byID[id]
		if !ok {
			out = out.Append(sdksinker.ResponseFailure(id, errNoResponse))
			continue
		}
		switch resp.Type {
		case Failure:
			out = out.Append(sdksinker.ResponseFailure(id, resp.Err))
		case Fallback:
			out = out.Append(sdksinker.ResponseFallback(id))
		default:
			out = out.Append(sdksinker.ResponseOK(id))
		}
	}
	return out
}
