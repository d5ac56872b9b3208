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

	sessionreducepb "github.com/numaproj/numaflow-go/pkg/apis/proto/sessionreduce/v1"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Service serves the session-reduce protocol on top of a
// SessionReducerCreator.
type Service struct {
	sessionreducepb.UnimplementedSessionReduceServer
	creator SessionReducerCreator
}

var _ sessionreducepb.SessionReduceServer = (*Service)(nil)

func NewService(c SessionReducerCreator) *Service {
	return &Service{creator: c}
}

func (s *Service) IsReady(context.Context, *emptypb.Empty) (*sessionreducepb.ReadyResponse, error) {
	return &sessionreducepb.ReadyResponse{Ready: true}, nil
}

// SessionReduceFn applies the window operations of the request stream. Every
// session that was not merged away ends with its own EOF response.
func (s *Service) SessionReduceFn(stream sessionreducepb.SessionReduce_SessionReduceFnServer) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	sm := newSessionManager(s.creator)
	var g errgroup.Group
	g.Go(func() error {
		var sendErr error
		for resp := range sm.responses {
			if sendErr != nil {
				continue
			}
			sendErr = stream.Send(resp)
		}
		return sendErr
	})

	var err error
	for err == nil {
		req, recvErr := stream.Recv()
		if recvErr == io.EOF {
			break
		}
		if recvErr != nil {
			err = recvErr
			break
		}
		var opErr error
		switch req.GetOperation().GetEvent() {
		case sessionreducepb.SessionReduceRequest_WindowOperation_OPEN:
			opErr = sm.open(ctx, req)
		case sessionreducepb.SessionReduceRequest_WindowOperation_APPEND:
			opErr = sm.append(ctx, req)
		case sessionreducepb.SessionReduceRequest_WindowOperation_CLOSE:
			sm.close(req)
		case sessionreducepb.SessionReduceRequest_WindowOperation_MERGE:
			opErr = sm.merge(ctx, req)
		case sessionreducepb.SessionReduceRequest_WindowOperation_EXPAND:
			opErr = sm.expand(ctx, req)
		}
		if opErr != nil {
			err = status.Error(codes.Internal, opErr.Error())
		}
	}
	if err != nil {
		cancel()
	}
	sm.closeAll()
	if sendErr := g.Wait(); sendErr != nil && err == nil {
		err = status.Error(codes.Internal, sendErr.Error())
	}
	return err
}

type session struct {
	reducer   SessionReducer
	requests  chan *Request
	closeOnce sync.Once
	merged    *atomic.Bool
	done      chan struct{}

	mu     sync.RWMutex
	window *sessionreducepb.KeyedWindow
}

func (s *session) keyedWindow() *sessionreducepb.KeyedWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

func (s *session) setKeyedWindow(kw *sessionreducepb.KeyedWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = kw
}

func (s *session) closeInput() {
	s.closeOnce.Do(func() { close(s.requests) })
}

// sessionManager tracks the open sessions. Only the receiving goroutine
// touches the sessions map.
type sessionManager struct {
	creator   SessionReducerCreator
	sessions  map[string]*session
	wg        sync.WaitGroup
	responses chan *sessionreducepb.SessionReduceResponse
}

func newSessionManager(c SessionReducerCreator) *sessionManager {
	return &sessionManager{
		creator:   c,
		sessions:  make(map[string]*session),
		responses: make(chan *sessionreducepb.SessionReduceResponse),
	}
}

func windowKey(start, end *timestamppb.Timestamp, keys []string) string {
	return fmt.Sprintf("%d:%d:%s", start.AsTime().UnixMilli(), end.AsTime().UnixMilli(), strings.Join(keys, ":"))
}

func keyOf(kw *sessionreducepb.KeyedWindow) string {
	return windowKey(kw.GetStart(), kw.GetEnd(), kw.GetKeys())
}

func (sm *sessionManager) start(ctx context.Context, kw *sessionreducepb.KeyedWindow, r SessionReducer) *session {
	s := &session{
		reducer:  r,
		requests: make(chan *Request),
		merged:   atomic.NewBool(false),
		done:     make(chan struct{}),
		window:   kw,
	}
	sm.sessions[keyOf(kw)] = s
	keys := kw.GetKeys()
	out := make(chan datum.Message)
	returned := make(chan struct{})
	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()
		defer close(s.done)
		go func() {
			defer close(returned)
			s.reducer.SessionReduce(ctx, keys, s.requests, out)
		}()
		for msg := range out {
			if s.merged.Load() {
				continue
			}
			sm.responses <- &sessionreducepb.SessionReduceResponse{
				Result: &sessionreducepb.SessionReduceResponse_Result{
					Keys:  msg.KeysOr(keys),
					Value: msg.Value(),
					Tags:  msg.Tags(),
				},
				KeyedWindow: s.keyedWindow(),
			}
		}
		<-returned
		if !s.merged.Load() {
			sm.responses <- &sessionreducepb.SessionReduceResponse{KeyedWindow: s.keyedWindow(), EOF: true}
		}
	}()
	return s
}

// send hands a payload to s. Payloads of a session that already ended are
// dropped.
func (sm *sessionManager) send(ctx context.Context, s *session, p *sessionreducepb.SessionReduceRequest_Payload) error {
	if p == nil {
		return nil
	}
	r := &Request{
		Keys:      p.GetKeys(),
		Value:     p.GetValue(),
		EventTime: p.GetEventTime().AsTime(),
		Watermark: p.GetWatermark().AsTime(),
		Headers:   p.GetHeaders(),
	}
	select {
	case s.requests <- r:
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (sm *sessionManager) open(ctx context.Context, req *sessionreducepb.SessionReduceRequest) error {
	windows := req.GetOperation().GetKeyedWindows()
	if len(windows) != 1 {
		return fmt.Errorf("open operation: expected one window, got %d", len(windows))
	}
	return sm.send(ctx, sm.start(ctx, windows[0], sm.creator.Create()), req.GetPayload())
}

func (sm *sessionManager) append(ctx context.Context, req *sessionreducepb.SessionReduceRequest) error {
	windows := req.GetOperation().GetKeyedWindows()
	if len(windows) != 1 {
		return fmt.Errorf("append operation: expected one window, got %d", len(windows))
	}
	s, ok := sm.sessions[keyOf(windows[0])]
	if !ok {
		s = sm.start(ctx, windows[0], sm.creator.Create())
	}
	return sm.send(ctx, s, req.GetPayload())
}

func (sm *sessionManager) close(req *sessionreducepb.SessionReduceRequest) {
	for _, kw := range req.GetOperation().GetKeyedWindows() {
		key := keyOf(kw)
		if s, ok := sm.sessions[key]; ok {
			s.closeInput()
			delete(sm.sessions, key)
		}
	}
}

// merge ends the sessions of the request and starts one spanning all of
// them, seeded with their accumulators.
func (sm *sessionManager) merge(ctx context.Context, req *sessionreducepb.SessionReduceRequest) error {
	windows := req.GetOperation().GetKeyedWindows()
	if len(windows) == 0 {
		return fmt.Errorf("merge operation: no windows")
	}
	merged := &sessionreducepb.KeyedWindow{
		Start: windows[0].GetStart(),
		End:   windows[0].GetEnd(),
		Slot:  windows[0].GetSlot(),
		Keys:  windows[0].GetKeys(),
	}
	sessions := make([]*session, 0, len(windows))
	for _, kw := range windows {
		s, ok := sm.sessions[keyOf(kw)]
		if !ok {
			return fmt.Errorf("merge operation: no session for %s", keyOf(kw))
		}
		sessions = append(sessions, s)
		if kw.GetStart().AsTime().Before(merged.GetStart().AsTime()) {
			merged.Start = kw.GetStart()
		}
		if kw.GetEnd().AsTime().After(merged.GetEnd().AsTime()) {
			merged.End = kw.GetEnd()
		}
	}

	accumulators := make([][]byte, 0, len(sessions))
	for _, s := range sessions {
		s.merged.Store(true)
		delete(sm.sessions, keyOf(s.keyedWindow()))
		s.closeInput()
		<-s.done
		accumulators = append(accumulators, s.reducer.Accumulator(ctx))
	}

	r := sm.creator.Create()
	for _, acc := range accumulators {
		r.MergeAccumulator(ctx, acc)
	}
	sm.start(ctx, merged, r)
	return nil
}

// expand moves a session to a larger window.
func (sm *sessionManager) expand(ctx context.Context, req *sessionreducepb.SessionReduceRequest) error {
	windows := req.GetOperation().GetKeyedWindows()
	if len(windows) != 2 {
		return fmt.Errorf("expand operation: expected two windows, got %d", len(windows))
	}
	key := keyOf(windows[0])
	s, ok := sm.sessions[key]
	if !ok {
		return fmt.Errorf("expand operation: no session for %s", key)
	}
	s.setKeyedWindow(windows[1])
	delete(sm.sessions, key)
	sm.sessions[keyOf(windows[1])] = s
	return sm.send(ctx, s, req.GetPayload())
}

// closeAll ends the input of the open sessions and waits for every session.
func (sm *sessionManager) closeAll() {
	for key, s := range sm.sessions {
		s.closeInput()
		delete(sm.sessions, key)
	}
	sm.wg.Wait()
	close(sm.responses)
}
