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

package sessionreducer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	sessionreducepb "github.com/numaproj/numaflow-go/pkg/apis/proto/sessionreduce/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/numaproj/numaflow-bridge/pkg/host"
)

type sessionStream struct {
	grpc.ServerStream
	ctx      context.Context
	requests []*sessionreducepb.SessionReduceRequest

	mu   sync.Mutex
	sent []*sessionreducepb.SessionReduceResponse
}

func (s *sessionStream) Context() context.Context {
	return s.ctx
}

func (s *sessionStream) Recv() (*sessionreducepb.SessionReduceRequest, error) {
	if len(s.requests) == 0 {
		return nil, io.EOF
	}
	req := s.requests[0]
	s.requests = s.requests[1:]
	return req, nil
}

func (s *sessionStream) Send(resp *sessionreducepb.SessionReduceResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, resp)
	return nil
}

func keyedWindow(start, end int64, keys ...string) *sessionreducepb.KeyedWindow {
	return &sessionreducepb.KeyedWindow{
		Start: timestamppb.New(time.Unix(start, 0)),
		End:   timestamppb.New(time.Unix(end, 0)),
		Keys:  keys,
	}
}

func operation(event sessionreducepb.SessionReduceRequest_WindowOperation_Event, withPayload bool, windows ...*sessionreducepb.KeyedWindow) *sessionreducepb.SessionReduceRequest {
	req := &sessionreducepb.SessionReduceRequest{
		Operation: &sessionreducepb.SessionReduceRequest_WindowOperation{Event: event, KeyedWindows: windows},
	}
	if withPayload {
		req.Payload = &sessionreducepb.SessionReduceRequest_Payload{
			Keys:      windows[0].GetKeys(),
			Value:     []byte("x"),
			EventTime: windows[0].GetStart(),
			Watermark: windows[0].GetStart(),
		}
	}
	return req
}

func describe(kw *sessionreducepb.KeyedWindow) string {
	return fmt.Sprintf("%d-%d-%s", kw.GetStart().AsTime().Unix(), kw.GetEnd().AsTime().Unix(), strings.Join(kw.GetKeys(), ","))
}

func TestService_SessionReduceFn(t *testing.T) {
	svc := NewService(counter(host.NewEnv()))
	const (
		open   = sessionreducepb.SessionReduceRequest_WindowOperation_OPEN
		appnd  = sessionreducepb.SessionReduceRequest_WindowOperation_APPEND
		cls    = sessionreducepb.SessionReduceRequest_WindowOperation_CLOSE
		merge  = sessionreducepb.SessionReduceRequest_WindowOperation_MERGE
		expand = sessionreducepb.SessionReduceRequest_WindowOperation_EXPAND
	)
	stream := &sessionStream{
		ctx: context.Background(),
		requests: []*sessionreducepb.SessionReduceRequest{
			operation(open, true, keyedWindow(0, 10, "k")),
			operation(appnd, true, keyedWindow(0, 10, "k")),
			operation(open, true, keyedWindow(5, 20, "k")),
			// 2 + 1 carried over by the accumulators
			operation(merge, false, keyedWindow(0, 10, "k"), keyedWindow(5, 20, "k")),
			operation(appnd, true, keyedWindow(0, 20, "k")),
			operation(cls, false, keyedWindow(0, 20, "k")),
			operation(open, true, keyedWindow(100, 110, "other")),
			operation(expand, true, keyedWindow(100, 110, "other"), keyedWindow(100, 130, "other")),
		},
	}

	require.NoError(t, svc.SessionReduceFn(stream))
	results := map[string]string{}
	eofs := map[string]bool{}
	for _, resp := range stream.sent {
		if resp.GetEOF() {
			eofs[describe(resp.GetKeyedWindow())] = true
			continue
		}
		results[describe(resp.GetKeyedWindow())] = string(resp.GetResult().GetValue())
	}
	// merged sessions produce nothing of their own
	assert.Equal(t, map[string]string{"0-20-k": "4", "100-130-other": "2"}, results)
	assert.Equal(t, map[string]bool{"0-20-k": true, "100-130-other": true}, eofs)
	assert.Len(t, stream.sent, 4)
}

func TestService_MergeUnknownSession(t *testing.T) {
	svc := NewService(counter(host.NewEnv()))
	stream := &sessionStream{
		ctx: context.Background(),
		requests: []*sessionreducepb.SessionReduceRequest{
			operation(sessionreducepb.SessionReduceRequest_WindowOperation_OPEN, true, keyedWindow(0, 10, "k")),
			operation(sessionreducepb.SessionReduceRequest_WindowOperation_MERGE, false, keyedWindow(0, 10, "k"), keyedWindow(30, 40, "k")),
		},
	}
	err := svc.SessionReduceFn(stream)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}
