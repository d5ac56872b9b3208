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

package sourcetransformer

import (
	"context"

	stpb "github.com/numaproj/numaflow-go/pkg/apis/proto/sourcetransform/v1"
	sdktransformer "github.com/numaproj/numaflow-go/pkg/sourcetransformer"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Server serves a source-transform host function.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
}

func NewServer(fn *host.Function, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.SourceTransform, opts...)
	return &Server{
		Server:  s,
		adapter: NewAdapter(fn, s.Hooks()...),
	}
}

func (s *Server) Adapter() *Adapter {
	return s.adapter
}

// Start serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context, sockFile, infoFile string) error {
	return s.Serve(ctx, sockFile, infoFile, func(r grpc.ServiceRegistrar) {
		stpb.RegisterSourceTransformServer(r, &sdktransformer.Service{Transformer: &sdkTransformer{transformer: s.adapter}})
	})
}

// sdkTransformer serves a SourceTransformer through the numaflow-go
// source-transform service.
type sdkTransformer struct {
	transformer SourceTransformer
}

func (t *sdkTransformer) Transform(ctx context.Context, keys []string, d sdktransformer.Datum) sdktransformer.Messages {
	req := &Request{
		Keys:      keys,
		Value:     d.Value(),
		EventTime: d.EventTime(),
		Watermark: d.Watermark(),
		Headers:   d.Headers(),
	}
	out := sdktransformer.MessagesBuilder()
	for _, msg := range t.transformer.Transform(ctx, req).Items() {
		if msg.IsDrop() {
			out = out.Append(sdktransformer.MessageToDrop(msg.EventTime()))
			continue
		}
		keysOut := msg.Keys()
		if keysOut == nil {
			keysOut = keys
		}
		out = out.Append(sdktransformer.NewMessage(msg.Value(), msg.EventTime()).WithKeys(keysOut).WithTags(msg.Tags()))
	}
	return out
}
