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

package sourcer

import (
	"context"

	sourcepb "github.com/numaproj/numaflow-go/pkg/apis/proto/source/v1"
	sdksourcer "github.com/numaproj/numaflow-go/pkg/sourcer"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// Binder registers the source protocol service.
type Binder = lifecycle.Binder[Sourcer]

// Server serves the source host functions.
type Server struct {
	*lifecycle.Server
	adapter *Adapter
	binder  Binder
}

// NewServer creates a source server. A nil binder serves the adapter through
// the numaflow-go source service.
func NewServer(fns Functions, binder Binder, opts ...lifecycle.ServerOption) *Server {
	s := lifecycle.NewServer(transport.Source, opts...)
	return &Server{
		Server:  s,
		adapter: NewAdapter(fns, s.Hooks()...),
		binder:  binder,
	}
}

func (s *Server) Adapter() *Adapter {
	return s.adapter
}

// Start serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context, sockFile, infoFile string) error {
	return s.Serve(ctx, sockFile, infoFile, lifecycle.Bind[Sourcer](s.binder, s.adapter, s.register)...)
}

func (s *Server) register(r grpc.ServiceRegistrar) {
	sourcepb.RegisterSourceServer(r, &sdksourcer.Service{Source: &sdkSourcer{source: s.adapter}})
}

// PendingNotAvailable is reported to the runtime when the pending count is
// unknown.
const PendingNotAvailable = int64(-1)

// sdkSourcer serves a Sourcer through the numaflow-go source service. The
// source protocol has no nack, the service owns messageCh and closes it
// after Read returns.
type sdkSourcer struct {
	source Sourcer
}

func (s *sdkSourcer) Read(ctx context.Context, r sdksourcer.ReadRequest, messageCh chan<- sdksourcer.Message) {
	out := make(chan Message)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.source.Read(ctx, &ReadRequest{NumRecords: r.Count(), Timeout: r.TimeOut()}, out)
	}()
	for msg := range out {
		m := sdksourcer.NewMessage(msg.Payload(), sdksourcer.NewOffset(msg.Offset().Value, msg.Offset().PartitionID), msg.EventTime()).
			WithKeys(msg.Keys()).
			WithHeaders(msg.Headers())
		select {
		case messageCh <- m:
		case <-ctx.Done():
		}
	}
	if err := <-errCh; err != nil {
		logging.FromContext(ctx).Debugw("Read ended early", zap.Error(err))
	}
}

func (s *sdkSourcer) Ack(ctx context.Context, r sdksourcer.AckRequest) {
	offsets := make([]datum.Offset, 0, len(r.Offsets()))
	for _, o := range r.Offsets() {
		offsets = append(offsets, datum.NewOffset(o.Value(), o.PartitionId()))
	}
	s.source.Ack(ctx, offsets)
}

func (s *sdkSourcer) Pending(ctx context.Context) int64 {
	n, ok := s.source.Pending(ctx)
	if !ok {
		return PendingNotAvailable
	}
	return n
}

func (s *sdkSourcer) Partitions(ctx context.Context) []int32 {
	partitions, ok := s.source.Partitions(ctx)
	if !ok {
		return sdksourcer.DefaultPartitions()
	}
	return partitions
}
