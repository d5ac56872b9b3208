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
	"errors"
	"strconv"
	"testing"
	"time"

	sourcepb "github.com/numaproj/numaflow-go/pkg/apis/proto/source/v1"
	sdksourcer "github.com/numaproj/numaflow-go/pkg/sourcer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// counterSource produces increasing integers and tracks unacked offsets.
func counterSource(env *host.Env) Functions {
	next := 0
	unacked := map[string]bool{}
	return Functions{
		Read: env.Register("read", func(_ *host.Scope, arg any) (any, error) {
			req := arg.(*ReadRequest)
			read := uint64(0)
			return host.Generator(func(*host.Scope) (Message, bool, error) {
				if read == req.NumRecords {
					return Message{}, false, nil
				}
				read++
				v := strconv.Itoa(next)
				next++
				unacked[v] = true
				return NewMessage([]byte(v), datum.NewOffset([]byte(v), 0), time.Unix(int64(next), 0)), true, nil
			}), nil
		}),
		Ack: env.Register("ack", func(_ *host.Scope, arg any) (any, error) {
			for _, o := range arg.([]datum.Offset) {
				delete(unacked, string(o.Value))
			}
			return nil, nil
		}),
		Nack: env.Register("nack", func(*host.Scope, any) (any, error) {
			return nil, errors.New("nack is not supported")
		}),
		Pending: env.Register("pending", func(*host.Scope, any) (any, error) {
			return len(unacked), nil
		}),
		Partitions: env.Register("partitions", func(*host.Scope, any) (any, error) {
			return []int{0}, nil
		}),
	}
}

func read(s Sourcer, n uint64) ([]Message, error) {
	out := make(chan Message)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Read(context.Background(), &ReadRequest{NumRecords: n, Timeout: time.Second}, out) }()
	var got []Message
	for m := range out {
		got = append(got, m)
	}
	return got, <-errCh
}

func TestAdapter_ReadAck(t *testing.T) {
	a := NewAdapter(counterSource(host.NewEnv()))
	ctx := context.Background()

	msgs, err := read(a, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []byte("2"), msgs[2].Payload())
	assert.Equal(t, datum.NewOffset([]byte("2"), 0), msgs[2].Offset())

	pending, ok := a.Pending(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(3), pending)

	a.Ack(ctx, []datum.Offset{msgs[0].Offset(), msgs[1].Offset()})
	pending, _ = a.Pending(ctx)
	assert.Equal(t, int64(1), pending)

	// a failing nack is logged and changes nothing
	a.Nack(ctx, []datum.Offset{msgs[2].Offset()})
	pending, _ = a.Pending(ctx)
	assert.Equal(t, int64(1), pending)

	partitions, ok := a.Partitions(ctx)
	assert.True(t, ok)
	assert.Equal(t, []int32{0}, partitions)
}

func TestAdapter_UnknownPendingAndPartitions(t *testing.T) {
	env := host.NewEnv()
	fns := counterSource(env)
	fns.Pending = env.Register("unknown", func(*host.Scope, any) (any, error) { return nil, nil })
	fns.Partitions = env.Register("broken", func(*host.Scope, any) (any, error) { return nil, errors.New("boom") })
	a := NewAdapter(fns)

	_, ok := a.Pending(context.Background())
	assert.False(t, ok)
	_, ok = a.Partitions(context.Background())
	assert.False(t, ok)
}

func TestAdapter_ReadFailureIsFatal(t *testing.T) {
	env := host.NewEnv()
	fns := counterSource(env)
	fns.Read = env.Register("broken-read", func(*host.Scope, any) (any, error) { return nil, errors.New("source is gone") })
	var fatal error
	a := NewAdapter(fns, lifecycle.WithFatalHandler(func(err error) { fatal = err }))

	msgs, err := read(a, 1)
	assert.Empty(t, msgs)
	require.Error(t, err)
	assert.ErrorContains(t, err, "source is gone")
	assert.Equal(t, err, fatal)
}

func TestAdapter_ClosedGate(t *testing.T) {
	gate := lifecycle.NewGate(contract)
	gate.Close()
	a := NewAdapter(counterSource(host.NewEnv()), lifecycle.WithGate(gate))
	_, err := read(a, 1)
	assert.ErrorIs(t, err, lifecycle.ErrShuttingDown)
	_, ok := a.Pending(context.Background())
	assert.False(t, ok)
}

func TestAdapter_ShortReadEndsBeforeTimeout(t *testing.T) {
	env := host.NewEnv()
	fns := counterSource(env)
	fns.Read = env.Register("one", func(*host.Scope, any) (any, error) {
		return host.FromSlice([]Message{NewMessage([]byte("only"), datum.NewOffset([]byte("0"), 0), time.Unix(1, 0))}), nil
	})
	a := NewAdapter(fns)

	out := make(chan Message)
	errCh := make(chan error, 1)
	start := time.Now()
	go func() {
		errCh <- a.Read(context.Background(), &ReadRequest{NumRecords: 2, Timeout: 100 * time.Millisecond}, out)
	}()
	var got []Message
	for m := range out {
		got = append(got, m)
	}
	require.NoError(t, <-errCh)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("only"), got[0].Payload())
	// the read ends with the callback, not with the timeout
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

type readStream struct {
	grpc.ServerStream
	ctx  context.Context
	sent []*sourcepb.ReadResponse
}

func (s *readStream) Context() context.Context {
	return s.ctx
}

func (s *readStream) Send(resp *sourcepb.ReadResponse) error {
	s.sent = append(s.sent, resp)
	return nil
}

func TestSDKSourcer_RoundTrip(t *testing.T) {
	svc := &sdksourcer.Service{Source: &sdkSourcer{source: NewAdapter(counterSource(host.NewEnv()))}}
	ctx := context.Background()

	stream := &readStream{ctx: ctx}
	require.NoError(t, svc.ReadFn(&sourcepb.ReadRequest{Request: &sourcepb.ReadRequest_Request{NumRecords: 2, TimeoutInMs: 1000}}, stream))
	require.Len(t, stream.sent, 2)
	first := stream.sent[0].GetResult()
	assert.Equal(t, []byte("0"), first.GetPayload())
	assert.Equal(t, []byte("0"), first.GetOffset().GetOffset())
	assert.Equal(t, int32(0), first.GetOffset().GetPartitionId())
	assert.Equal(t, time.Unix(1, 0).UTC(), first.GetEventTime().AsTime())

	pending, err := svc.PendingFn(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending.GetResult().GetCount())

	_, err = svc.AckFn(ctx, &sourcepb.AckRequest{Request: &sourcepb.AckRequest_Request{
		Offsets: []*sourcepb.Offset{first.GetOffset()},
	}})
	require.NoError(t, err)
	pending, err = svc.PendingFn(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.GetResult().GetCount())

	partitions, err := svc.PartitionsFn(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, partitions.GetResult().GetPartitions())
}

func TestSDKSourcer_Unknowns(t *testing.T) {
	env := host.NewEnv()
	fns := counterSource(env)
	fns.Pending = env.Register("unknown", func(*host.Scope, any) (any, error) { return nil, nil })
	fns.Partitions = env.Register("unknown-partitions", func(*host.Scope, any) (any, error) { return nil, nil })
	src := &sdkSourcer{source: NewAdapter(fns)}

	assert.Equal(t, PendingNotAvailable, src.Pending(context.Background()))
	assert.Equal(t, sdksourcer.DefaultPartitions(), src.Partitions(context.Background()))
}
