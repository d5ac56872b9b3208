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

// Package generator is a source producing random payloads at a fixed rate.
package generator

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
)

const (
	defaultRPU      = 5
	defaultMsgSize  = 8
	defaultDuration = time.Second
	defaultTimeout  = time.Second

	// IDHeader carries the unique id of a generated message.
	IDHeader = "x-numaflow-id"
)

// payload is the JSON body of a generated message.
type payload struct {
	Data      []byte
	Createdts int64
}

// Generator produces up to "rpu" messages per "duration", each carrying
// "msgSize" random bytes. Offsets are sequence numbers. Read messages stay
// in flight until acknowledged; nacked ones are redelivered first by the
// next read. Every body runs on the host lane, so the state needs no lock.
type Generator struct {
	rpu      int
	msgSize  int
	duration time.Duration
	now      func() time.Time

	seq        int64
	unitStart  time.Time
	sentInUnit int
	inflight   map[string]sourcer.Message
	redeliver  []sourcer.Message
}

func New(args kwargs.KWArgs) (*Generator, error) {
	rpu, err := args.IntOr("rpu", defaultRPU)
	if err != nil {
		return nil, err
	}
	msgSize, err := args.IntOr("msgSize", defaultMsgSize)
	if err != nil {
		return nil, err
	}
	duration, err := args.DurationOr("duration", defaultDuration)
	if err != nil {
		return nil, err
	}
	return &Generator{
		rpu:      rpu,
		msgSize:  msgSize,
		duration: duration,
		now:      time.Now,
		inflight: map[string]sourcer.Message{},
	}, nil
}

// Functions registers the source functions in env.
func (g *Generator) Functions(env *host.Env) sourcer.Functions {
	return sourcer.Functions{
		Read:       env.Register("generator-read", g.read),
		Ack:        env.Register("generator-ack", g.ack),
		Nack:       env.Register("generator-nack", g.nack),
		Pending:    env.Register("generator-pending", g.pending),
		Partitions: env.Register("generator-partitions", g.partitions),
	}
}

func (g *Generator) read(_ *host.Scope, arg any) (any, error) {
	req := arg.(*sourcer.ReadRequest)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	deadline := g.now().Add(timeout)
	var read uint64
	return host.Generator(func(s *host.Scope) (sourcer.Message, bool, error) {
		if read >= req.NumRecords {
			return sourcer.Message{}, false, nil
		}
		if len(g.redeliver) > 0 {
			msg := g.redeliver[0]
			g.redeliver = g.redeliver[1:]
			g.inflight[string(msg.Offset().Value)] = msg
			read++
			return msg, true, nil
		}
		if !g.take(s, deadline) {
			return sourcer.Message{}, false, nil
		}
		msg, err := g.generate()
		if err != nil {
			return sourcer.Message{}, false, err
		}
		g.inflight[string(msg.Offset().Value)] = msg
		read++
		metrics.BuiltinReadCount.WithLabelValues("generator").Inc()
		return msg, true, nil
	}), nil
}

// take consumes one unit of the rate budget, waiting for the next unit when
// the current one is spent. It reports false when deadline passes first.
func (g *Generator) take(s *host.Scope, deadline time.Time) bool {
	now := g.now()
	if now.Sub(g.unitStart) >= g.duration {
		g.unitStart, g.sentInUnit = now, 0
	}
	if g.sentInUnit < g.rpu {
		g.sentInUnit++
		return true
	}
	next := g.unitStart.Add(g.duration)
	if next.After(deadline) {
		_ = s.Await(func(ctx context.Context) error { return sleep(ctx, deadline.Sub(now)) })
		return false
	}
	if err := s.Await(func(ctx context.Context) error { return sleep(ctx, next.Sub(now)) }); err != nil {
		return false
	}
	g.unitStart, g.sentInUnit = next, 1
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Generator) generate() (sourcer.Message, error) {
	data := make([]byte, g.msgSize)
	if _, err := rand.Read(data); err != nil {
		return sourcer.Message{}, err
	}
	now := g.now()
	body, err := json.Marshal(payload{Data: data, Createdts: now.UnixNano()})
	if err != nil {
		return sourcer.Message{}, err
	}
	offset := datum.NewOffset([]byte(strconv.FormatInt(g.seq, 10)), 0)
	g.seq++
	return sourcer.NewMessage(body, offset, now).WithHeaders(map[string]string{IDHeader: uuid.NewString()}), nil
}

func (g *Generator) ack(_ *host.Scope, arg any) (any, error) {
	for _, o := range arg.([]datum.Offset) {
		delete(g.inflight, string(o.Value))
	}
	return nil, nil
}

func (g *Generator) nack(_ *host.Scope, arg any) (any, error) {
	for _, o := range arg.([]datum.Offset) {
		if msg, ok := g.inflight[string(o.Value)]; ok {
			delete(g.inflight, string(o.Value))
			g.redeliver = append(g.redeliver, msg)
		}
	}
	return nil, nil
}

// pending is always 0: messages are made on demand, so nothing waits to be
// read. Read but unacknowledged messages are not pending.
func (g *Generator) pending(*host.Scope, any) (any, error) {
	return 0, nil
}

func (g *Generator) partitions(*host.Scope, any) (any, error) {
	return []int32{0}, nil
}
