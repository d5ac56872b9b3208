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
	"io"
	"sync"
	"testing"
	"time"

	reducepb "github.com/numaproj/numaflow-go/pkg/apis/proto/reduce/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/numaproj/numaflow-bridge/pkg/host"
)

type reduceStream struct {
	grpc.ServerStream
	ctx      context.Context
	requests []*reducepb.ReduceRequest

	mu   sync.Mutex
	sent []*reducepb.ReduceResponse
}

func (s *reduceStream) Context() context.Context {
	return s.ctx
}

func (s *reduceStream) Recv() (*reducepb.ReduceRequest, error) {
	if len(s.requests) == 0 {
		return nil, io.EOF
	}
	req := s.requests[0]
	s.requests = s.requests[1:]
	return req, nil
}

func (s *reduceStream) Send(resp *reducepb.ReduceResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, resp)
	return nil
}

func reduceRequest(event reducepb.ReduceRequest_WindowOperation_Event, key string) *reducepb.ReduceRequest {
	return &reducepb.ReduceRequest{
		Payload: &reducepb.ReduceRequest_Payload{
			Keys:      []string{key},
			Value:     []byte(key),
			EventTime: timestamppb.New(time.Unix(61, 0)),
			Watermark: timestamppb.New(time.Unix(60, 0)),
		},
		Operation: &reducepb.ReduceRequest_WindowOperation{
			Event: event,
			Windows: []*reducepb.Window{{
				Start: timestamppb.New(time.Unix(60, 0)),
				End:   timestamppb.New(time.Unix(120, 0)),
				Slot:  "slot-0",
			}},
		},
	}
}

func TestService_ReduceFn(t *testing.T) {
	svc := NewService(NewCreator(countFn(host.NewEnv())))
	stream := &reduceStream{
		ctx: context.Background(),
		requests: []*reducepb.ReduceRequest{
			reduceRequest(reducepb.ReduceRequest_WindowOperation_OPEN, "a"),
			reduceRequest(reducepb.ReduceRequest_WindowOperation_APPEND, "a"),
			reduceRequest(reducepb.ReduceRequest_WindowOperation_APPEND, "b"),
			reduceRequest(reducepb.ReduceRequest_WindowOperation_APPEND, "a"),
		},
	}

	require.NoError(t, svc.ReduceFn(stream))
	require.Len(t, stream.sent, 3)
	counts := map[string]string{}
	for _, resp := range stream.sent[:2] {
		assert.False(t, resp.GetEOF())
		assert.Equal(t, time.Unix(60, 0).UTC(), resp.GetWindow().GetStart().AsTime())
		require.Len(t, resp.GetResult().GetKeys(), 1)
		counts[resp.GetResult().GetKeys()[0]] = string(resp.GetResult().GetValue())
	}
	assert.Equal(t, map[string]string{"a": "3", "b": "1"}, counts)
	last := stream.sent[2]
	assert.True(t, last.GetEOF())
	assert.Nil(t, last.GetResult())
	assert.Equal(t, time.Unix(120, 0).UTC(), last.GetWindow().GetEnd().AsTime())
}

func TestService_EmptyStream(t *testing.T) {
	svc := NewService(NewCreator(countFn(host.NewEnv())))
	stream := &reduceStream{ctx: context.Background()}
	require.NoError(t, svc.ReduceFn(stream))
	assert.Empty(t, stream.sent)

	ready, err := svc.IsReady(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.True(t, ready.GetReady())
}

func TestService_InvalidWindows(t *testing.T) {
	svc := NewService(NewCreator(countFn(host.NewEnv())))
	bad := reduceRequest(reducepb.ReduceRequest_WindowOperation_APPEND, "a")
	bad.Operation.Windows = nil
	stream := &reduceStream{
		ctx: context.Background(),
		requests: []*reducepb.ReduceRequest{
			reduceRequest(reducepb.ReduceRequest_WindowOperation_OPEN, "a"),
			bad,
		},
	}

	err := svc.ReduceFn(stream)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
	for _, resp := range stream.sent {
		assert.False(t, resp.GetEOF())
	}
}
