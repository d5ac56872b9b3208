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
	"fmt"
	"io"
	"strings"
	"sync"

	reducepb "github.com/numaproj/numaflow-go/pkg/apis/proto/reduce/v1"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

// StreamFunc reduces the requests of one key group of one window. It writes
// its messages to out and closes out when done.
type StreamFunc func(ctx context.Context, keys []string, requests <-chan *Request, out chan<- datum.Message, md datum.Metadata) error

// Service serves the reduce protocol. Each key group of each window gets its
// own task, created by the first request of the group.
type Service struct {
	reducepb.UnimplementedReduceServer
	newTask func() StreamFunc
}

var _ reducepb.ReduceServer = (*Service)(nil)

// NewService serves the reducers created by c.
func NewService(c ReducerCreator) *Service {
	return NewStreamService(func() StreamFunc {
		r := c.Create()
		return func(ctx context.Context, keys []string, requests <-chan *Request, out chan<- datum.Message, md datum.Metadata) error {
			defer close(out)
			for _, msg := range r.Reduce(ctx, keys, requests, md).Items() {
				select {
				case out <- msg:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}
	})
}

// NewStreamService serves the tasks returned by newTask, one per key group
// and window.
func NewStreamService(newTask func() StreamFunc) *Service {
	return &Service{newTask: newTask}
}

func (s *Service) IsReady(context.Context, *emptypb.Empty) (*reducepb.ReadyResponse, error) {
	return &reducepb.ReadyResponse{Ready: true}, nil
}

// ReduceFn reads the request stream until EOF, then closes every task and
// sends a single EOF response once all of them are done.
func (s *Service) ReduceFn(stream reducepb.Reduce_ReduceFnServer) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	tm := newTaskManager(s.newTask)
	var g errgroup.Group
	g.Go(func() error {
		var sendErr error
		for resp := range tm.responses {
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
		switch req.GetOperation().GetEvent() {
		case reducepb.ReduceRequest_WindowOperation_OPEN, reducepb.ReduceRequest_WindowOperation_APPEND:
			if opErr := tm.append(ctx, req); opErr != nil {
				err = status.Error(codes.Internal, opErr.Error())
			}
		}
	}
	if err != nil {
		cancel()
	}
	tm.closeAll(err == nil)
	if sendErr := g.Wait(); sendErr != nil && err == nil {
		err = status.Error(codes.Internal, sendErr.Error())
	}
	return err
}

type reduceTask struct {
	window   *reducepb.Window
	requests chan *Request
	done     chan struct{}
}

type taskManager struct {
	newTask   func() StreamFunc
	tasks     map[string]*reduceTask
	wg        sync.WaitGroup
	responses chan *reducepb.ReduceResponse
}

func newTaskManager(newTask func() StreamFunc) *taskManager {
	return &taskManager{
		newTask:   newTask,
		tasks:     make(map[string]*reduceTask),
		responses: make(chan *reducepb.ReduceResponse),
	}
}

// taskKey identifies a key group of a window.
func taskKey(start, end *timestamppb.Timestamp, keys []string) string {
	return fmt.Sprintf("%d:%d:%s", start.AsTime().UnixMilli(), end.AsTime().UnixMilli(), strings.Join(keys, ":"))
}

// append hands the payload of req to the task of its key group, starting the
// task if needed. Payloads of a task that already returned are dropped.
func (tm *taskManager) append(ctx context.Context, req *reducepb.ReduceRequest) error {
	windows := req.GetOperation().GetWindows()
	if len(windows) != 1 {
		return fmt.Errorf("%s operation: expected one window, got %d", req.GetOperation().GetEvent(), len(windows))
	}
	w := windows[0]
	p := req.GetPayload()
	key := taskKey(w.GetStart(), w.GetEnd(), p.GetKeys())
	task, ok := tm.tasks[key]
	if !ok {
		task = tm.start(ctx, w, p.GetKeys())
		tm.tasks[key] = task
	}
	r := &Request{
		Keys:      p.GetKeys(),
		Value:     p.GetValue(),
		EventTime: p.GetEventTime().AsTime(),
		Watermark: p.GetWatermark().AsTime(),
		Headers:   p.GetHeaders(),
	}
	select {
	case task.requests <- r:
	case <-task.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (tm *taskManager) start(ctx context.Context, w *reducepb.Window, keys []string) *reduceTask {
	task := &reduceTask{
		window:   w,
		requests: make(chan *Request),
		done:     make(chan struct{}),
	}
	md := datum.NewMetadata(datum.NewIntervalWindow(w.GetStart().AsTime(), w.GetEnd().AsTime()))
	run := tm.newTask()
	out := make(chan datum.Message)
	errCh := make(chan error, 1)
	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer close(task.done)
		go func() {
			errCh <- run(ctx, keys, task.requests, out, md)
		}()
		for msg := range out {
			tm.responses <- &reducepb.ReduceResponse{
				Result: &reducepb.ReduceResponse_Result{
					Keys:  msg.KeysOr(keys),
					Value: msg.Value(),
					Tags:  msg.Tags(),
				},
				Window: w,
			}
		}
		if err := <-errCh; err != nil {
			logging.FromContext(ctx).Warnw("Reduce task ended with an error",
				zap.Strings("keys", keys), zap.Stringer("window", md.IntervalWindow()), zap.Error(err))
		}
	}()
	return task
}

// closeAll ends the input of every task and waits for them. With eof, a
// single EOF response follows the last result.
func (tm *taskManager) closeAll(eof bool) {
	var window *reducepb.Window
	for _, task := range tm.tasks {
		close(task.requests)
		if window == nil {
			window = task.window
		}
	}
	tm.wg.Wait()
	if eof && window != nil {
		tm.responses <- &reducepb.ReduceResponse{Window: window, EOF: true}
	}
	close(tm.responses)
}
