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
	"errors"
	"io"
	"testing"
	"time"

	sinkpb "github.com/numaproj/numaflow-go/pkg/apis/proto/sink/v1"
	sdksinker "github.com/numaproj/numaflow-go/pkg/sinker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func feed(values ...string) <-chan *Request {
	ch := make(chan *Request, len(values))
	for i, v := range values {
		ch <- &Request{
			ID:           string(rune('a' + i)),
			Value:        []byte(v),
			UserMetadata: map[string]map[string][]byte{"route": {"to": []byte(v)}},
		}
	}
	close(ch)
	return ch
}

// routeFn answers each request according to its payload.
func routeFn(env *host.Env) *host.Function {
	return env.Register("route", func(s *host.Scope, arg any) (any, error) {
		responses := ResponsesBuilder()
		for _, d := range arg.(*iterator.Iterator[*Datum]).Collect(s) {
			switch string(d.UserMetadata().Value("route", "to")) {
			case "ok":
				responses = responses.Append(ResponseOK(d.ID()))
			case "fail":
				responses = responses.Append(ResponseFailure(d.ID(), "rejected"))
			case "fallback":
				responses = responses.Append(ResponseFallback(d.ID()))
			case "serve":
				responses = responses.Append(ResponseServe(d.ID(), []byte("stored")))
			default:
				responses = responses.Append(ResponseOnSuccess(d.ID(), NewMessage(d.Value()).WithKeys([]string{"done"})))
			}
		}
		return responses, nil
	})
}

func TestAdapter_Sink(t *testing.T) {
	a := NewAdapter(routeFn(host.NewEnv()))
	got := a.Sink(context.Background(), feed("ok", "fail", "fallback", "serve", "other")).Items()
	require.Len(t, got, 5)

	assert.Equal(t, Response{ID: "a", Type: Success}, got[0])
	assert.Equal(t, Response{ID: "b", Type: Failure, Err: "rejected"}, got[1])
	assert.Equal(t, Fallback, got[2].Type)
	assert.Equal(t, []byte("stored"), got[3].ServeResponse)
	assert.Equal(t, OnSuccess, got[4].Type)
	assert.Equal(t, []string{"done"}, got[4].OnSuccessMessage.Keys())
	assert.Equal(t, []byte("other"), got[4].OnSuccessMessage.Value())
}

func TestAdapter_FailureIsEmpty(t *testing.T) {
	env := host.NewEnv()
	a := NewAdapter(env.Register("broken", func(*host.Scope, any) (any, error) { return nil, errors.New("boom") }))
	assert.Empty(t, a.Sink(context.Background(), feed("ok", "ok")).Items())
}

func TestAdapter_ClosedGate(t *testing.T) {
	gate := lifecycle.NewGate(contract)
	gate.Close()
	a := NewAdapter(routeFn(host.NewEnv()), lifecycle.WithGate(gate))
	assert.Empty(t, a.Sink(context.Background(), feed("ok")).Items())
}

func TestResponseType_String(t *testing.T) {
	assert.Equal(t, "on_success", OnSuccess.String())
	assert.Equal(t, "unknown(9)", ResponseType(9).String())
}

type sinkStream struct {
	grpc.ServerStream
	ctx      context.Context
	requests []*sinkpb.SinkRequest
	resp     *sinkpb.SinkResponse
}

func (s *sinkStream) Context() context.Context {
	return s.ctx
}

func (s *sinkStream) Recv() (*sinkpb.SinkRequest, error) {
	if len(s.requests) == 0 {
		return nil, io.EOF
	}
	req := s.requests[0]
	s.requests = s.requests[1:]
	return req, nil
}

func (s *sinkStream) SendAndClose(resp *sinkpb.SinkResponse) error {
	s.resp = resp
	return nil
}

func TestSDKSinker_RoundTrip(t *testing.T) {
	env := host.NewEnv()
	fn := env.Register("by-value", func(s *host.Scope, arg any) (any, error) {
		responses := ResponsesBuilder()
		for _, d := range arg.(*iterator.Iterator[*Datum]).Collect(s) {
			switch string(d.Value()) {
			case "ok":
				responses = responses.Append(ResponseOK(d.ID()))
			case "fail":
				responses = responses.Append(ResponseFailure(d.ID(), "rejected"))
			case "fallback":
				responses = responses.Append(ResponseFallback(d.ID()))
			case "serve":
				responses = responses.Append(ResponseServe(d.ID(), []byte("stored")))
			}
		}
		return responses, nil
	})
	svc := &sdksinker.Service{Sinker: &sdkSinker{sinker: NewAdapter(fn)}}
	now := timestamppb.New(time.Unix(1661169600, 0))
	var requests []*sinkpb.SinkRequest
	for i, v := range []string{"ok", "fail", "fallback", "serve", "ignored"} {
		requests = append(requests, &sinkpb.SinkRequest{
			Id:        string(rune('a' + i)),
			Keys:      []string{"k"},
			Value:     []byte(v),
			EventTime: now,
			Watermark: now,
		})
	}
	stream := &sinkStream{ctx: context.Background(), requests: requests}

	require.NoError(t, svc.SinkFn(stream))
	results := stream.resp.GetResults()
	require.Len(t, results, 5)
	assert.Equal(t, "a", results[0].GetId())
	assert.Equal(t, sinkpb.Status_SUCCESS, results[0].GetStatus())
	assert.Equal(t, sinkpb.Status_FAILURE, results[1].GetStatus())
	assert.Equal(t, "rejected", results[1].GetErrMsg())
	assert.Equal(t, sinkpb.Status_FALLBACK, results[2].GetStatus())
	assert.Equal(t, sinkpb.Status_SUCCESS, results[3].GetStatus())
	// an unanswered request fails and is retried by the runtime
	assert.Equal(t, "e", results[4].GetId())
	assert.Equal(t, sinkpb.Status_FAILURE, results[4].GetStatus())
	assert.Equal(t, errNoResponse, results[4].GetErrMsg())
}
