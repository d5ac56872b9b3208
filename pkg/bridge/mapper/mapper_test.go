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
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	mappb "github.com/numaproj/numaflow-go/pkg/apis/proto/map/v1"
	sdkmapper "github.com/numaproj/numaflow-go/pkg/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/transport/transportmock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func echoFn(env *host.Env) *host.Function {
	return env.Register("echo", func(_ *host.Scope, arg any) (any, error) {
		d := arg.(*Datum)
		d.UserMetadata().AddKV("seen", "by", []byte("echo"))
		return datum.MessagesBuilder().
			Append(datum.NewMessage(d.Value()).WithUserMetadata(d.UserMetadata())).
			Append(datum.NewMessage([]byte("tagged")).WithKeys([]string{"k2"}).WithTags([]string{"t"})), nil
	})
}

func TestAdapter_Map(t *testing.T) {
	a := NewAdapter(echoFn(host.NewEnv()))
	req := &Request{
		Keys:         []string{"k"},
		Value:        []byte("hello"),
		EventTime:    time.Unix(1, 0),
		UserMetadata: map[string]map[string][]byte{"g": {"a": []byte("1")}},
	}
	msgs := a.Map(context.Background(), req).Items()
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("hello"), msgs[0].Value())
	assert.Nil(t, msgs[0].Keys())
	assert.Equal(t, []string{"g", "seen"}, msgs[0].UserMetadata().Groups())
	assert.Equal(t, []string{"k2"}, msgs[1].Keys())
	assert.Equal(t, []string{"t"}, msgs[1].Tags())
	// the request metadata is never modified by the callback
	assert.Len(t, req.UserMetadata, 1)
}

func TestAdapter_FailureDrops(t *testing.T) {
	env := host.NewEnv()
	tests := []struct {
		name string
		fn   host.Func
	}{
		{"error", func(*host.Scope, any) (any, error) { return nil, errors.New("boom") }},
		{"panic", func(*host.Scope, any) (any, error) { panic("boom") }},
		{"rejected promise", func(*host.Scope, any) (any, error) { return host.Rejected(errors.New("boom")), nil }},
		{"wrong type", func(*host.Scope, any) (any, error) { return 42, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(env.Register(tt.name, tt.fn))
			msgs := a.Map(context.Background(), &Request{Value: []byte("x")}).Items()
			require.Len(t, msgs, 1)
			assert.True(t, msgs[0].IsDrop())
		})
	}
}

func TestAdapter_NilResultIsEmpty(t *testing.T) {
	env := host.NewEnv()
	a := NewAdapter(env.Register("nothing", func(*host.Scope, any) (any, error) { return nil, nil }))
	msgs := a.Map(context.Background(), &Request{})
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs.Items())
}

func TestAdapter_ClosedGateDrops(t *testing.T) {
	gate := lifecycle.NewGate("map")
	gate.Close()
	a := NewAdapter(echoFn(host.NewEnv()), lifecycle.WithGate(gate))
	msgs := a.Map(context.Background(), &Request{Value: []byte("x")}).Items()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsDrop())
}

func TestSDKMapper_RoundTrip(t *testing.T) {
	env := host.NewEnv()
	fn := env.Register("filter", func(_ *host.Scope, arg any) (any, error) {
		d := arg.(*Datum)
		if string(d.Value()) == "drop me" {
			return datum.MessagesBuilder().Append(datum.MessageToDrop()), nil
		}
		return datum.MessagesBuilder().Append(datum.NewMessage(append(d.Value(), '!'))), nil
	})
	svc := &sdkmapper.Service{Mapper: &sdkMapper{mapper: NewAdapter(fn)}}
	now := timestamppb.New(time.Unix(1661169600, 0))

	resp, err := svc.MapFn(context.Background(), &mappb.MapRequest{
		Keys:      []string{"client"},
		Value:     []byte("hi"),
		EventTime: now,
		Watermark: now,
	})
	require.NoError(t, err)
	require.Len(t, resp.GetResults(), 1)
	assert.Equal(t, []byte("hi!"), resp.GetResults()[0].GetValue())
	assert.Equal(t, []string{"client"}, resp.GetResults()[0].GetKeys())

	resp, err = svc.MapFn(context.Background(), &mappb.MapRequest{
		Keys:      []string{"client"},
		Value:     []byte("drop me"),
		EventTime: now,
		Watermark: now,
	})
	require.NoError(t, err)
	require.Len(t, resp.GetResults(), 1)
	dropped := resp.GetResults()[0]
	assert.Equal(t, []string{sdkmapper.DROP}, dropped.GetTags())

	// read back from the wire, the result is still a drop with no payload
	assert.True(t, datum.HasDropTag(dropped.GetTags()))
	back := datum.NewMessage(dropped.GetValue()).WithKeys(dropped.GetKeys()).WithTags(dropped.GetTags())
	assert.True(t, back.IsDrop())
	assert.Empty(t, back.Value())
}

func TestServer_StopWaitsForInflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mt := transportmock.NewMockTransport(ctrl)
	mt.EXPECT().Serve(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, shutdown <-chan struct{}) error {
		<-shutdown
		return nil
	})

	env := host.NewEnv()
	entered := make(chan struct{})
	release := make(chan struct{})
	fn := env.Register("slow", func(s *host.Scope, arg any) (any, error) {
		close(entered)
		_ = s.Await(func(ctx context.Context) error {
			<-release
			return nil
		})
		return datum.MessagesBuilder().Append(datum.NewMessage(arg.(*Datum).Value())), nil
	})
	s := NewServer(fn, lifecycle.WithTransport(mt))

	done := make(chan error)
	go func() { done <- s.Start(context.Background(), "", "") }()

	result := make(chan datum.Messages)
	go func() { result <- s.Adapter().Map(context.Background(), &Request{Value: []byte("v")}) }()
	<-entered
	s.Stop()

	select {
	case <-done:
		t.Fatal("server stopped with an invocation in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.Equal(t, []byte("v"), (<-result).Items()[0].Value())
	assert.NoError(t, <-done)

	msgs := s.Adapter().Map(context.Background(), &Request{Value: []byte("late")}).Items()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsDrop())
}
