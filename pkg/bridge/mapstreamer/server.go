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

package mapstreamer

import (
	"context"

	mapstreampb "github.com/numaproj/numaflow-go/pkg/apis/proto/mapstream/v1"
	sdkmapstreamer "github.com/numaproj/numaflow-go/pkg/mapstreamer"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Binder registers the map-stream protocol service.
type Binder = lifecycle.Binder[MapStreamer]

// Server serves a map-stream host function.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
	binder  Binder
}

// NewServer creates a map-stream server. A nil binder serves the adapter
// through the numaflow-go map-stream service.
func NewServer(fn *host.Function, binder Binder, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.MapStream, opts...)
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
	return s.Serve(ctx, sockFile, infoFile, lifecycle.Bind[MapStreamer](s.binder, s.adapter, s.register)...)
}

func (s *Server) register(r grpc.ServiceRegistrar) {
	mapstreampb.RegisterMapStreamServer(r, &sdkmapstreamer.Service{MapperStream: &sdkMapStreamer{streamer: s.adapter}})
}

// sdkMapStreamer serves a MapStreamer through the numaflow-go map-stream
// service. The service owns messageCh and closes it after MapStream returns.
type sdkMapStreamer struct {
	streamer MapStreamer
}

func (m *sdkMapStreamer) MapStream(ctx context.Context, keys []string, d sdkmapstreamer.Datum, messageCh chan<- sdkmapstreamer.Message) {
	req := &Request{
		Keys:      keys,
		Value:     d.Value(),
		EventTime: d.EventTime(),
		Watermark: d.Watermark(),
		Headers:   d.Headers(),
	}
	out := make(chan datum.Message)
	go m.streamer.MapStream(ctx, req, out)
	for msg := range out {
		select {
		case messageCh <- sdkmapstreamer.NewMessage(msg.Value()).WithKeys(msg.KeysOr(keys)).WithTags(msg.Tags()):
		case <-ctx.Done():
			// keep draining so the adapter can finish
		}
	}
}
