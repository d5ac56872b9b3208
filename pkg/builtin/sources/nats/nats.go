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

package nats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	natsclient "github.com/numaproj/numaflow-bridge/pkg/shared/clients/nats"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

const (
	defaultBufferSize  = 1000
	defaultReadTimeout = time.Second
)

// FromNats reads the messages of a subject, optionally in a queue group.
// Core NATS delivers at most once: ack and nack do nothing. Pending is the
// number of buffered messages not read yet.
type FromNats struct {
	conn     *natslib.Conn
	sub      *natslib.Subscription
	messages chan *natslib.Msg
	seq      int64
	logger   *zap.SugaredLogger
}

func New(ctx context.Context, args kwargs.KWArgs) (*FromNats, error) {
	url, err := args.Required("url")
	if err != nil {
		return nil, err
	}
	subject, err := args.Required("subject")
	if err != nil {
		return nil, err
	}
	bufferSize, err := args.IntOr("bufferSize", defaultBufferSize)
	if err != nil {
		return nil, err
	}
	n := &FromNats{
		messages: make(chan *natslib.Msg, bufferSize),
		logger:   logging.FromContext(ctx),
	}
	n.logger.Infow("Connecting to nats service...", zap.String("url", url))
	if n.conn, err = natsclient.NewConn(ctx, url); err != nil {
		return nil, err
	}
	if queue := args.StringOr("queue", ""); queue != "" {
		n.sub, err = n.conn.ChanQueueSubscribe(subject, queue, n.messages)
	} else {
		n.sub, err = n.conn.ChanSubscribe(subject, n.messages)
	}
	if err != nil {
		n.conn.Close()
		return nil, fmt.Errorf("failed to subscribe nats messages, %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		n.conn.Close()
		return nil, fmt.Errorf("failed to flush nats subscription, %w", err)
	}
	return n, nil
}

// Functions registers the source functions in env.
func (n *FromNats) Functions(env *host.Env) sourcer.Functions {
	return sourcer.Functions{
		Read:       env.Register("nats-read", n.read),
		Ack:        env.Register("nats-ack", func(*host.Scope, any) (any, error) { return nil, nil }),
		Nack:       env.Register("nats-nack", func(*host.Scope, any) (any, error) { return nil, nil }),
		Pending:    env.Register("nats-pending", func(*host.Scope, any) (any, error) { return len(n.messages), nil }),
		Partitions: env.Register("nats-partitions", func(*host.Scope, any) (any, error) { return []int32{0}, nil }),
	}
}

func (n *FromNats) read(_ *host.Scope, arg any) (any, error) {
	req := arg.(*sourcer.ReadRequest)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	deadline := time.Now().Add(timeout)
	var read uint64
	return host.Generator(func(s *host.Scope) (sourcer.Message, bool, error) {
		if read >= req.NumRecords {
			return sourcer.Message{}, false, nil
		}
		var msg *natslib.Msg
		_ = s.Await(func(ctx context.Context) error {
			timer := time.NewTimer(time.Until(deadline))
			defer timer.Stop()
			select {
			case msg = <-n.messages:
			case <-timer.C:
			case <-ctx.Done():
			}
			return nil
		})
		if msg == nil {
			n.logger.Debugw("Timed out waiting for messages to read.", zap.Duration("waited", timeout), zap.Uint64("read", read))
			return sourcer.Message{}, false, nil
		}
		read++
		offset := datum.NewOffset([]byte(strconv.FormatInt(n.seq, 10)), 0)
		n.seq++
		metrics.BuiltinReadCount.WithLabelValues("nats").Inc()
		out := sourcer.NewMessage(msg.Data, offset, time.Now())
		if len(msg.Header) > 0 {
			headers := make(map[string]string, len(msg.Header))
			for k := range msg.Header {
				headers[k] = msg.Header.Get(k)
			}
			out = out.WithHeaders(headers)
		}
		return out, true, nil
	}), nil
}

func (n *FromNats) Close() error {
	n.logger.Info("Shutting down nats source...")
	if err := n.sub.Unsubscribe(); err != nil {
		n.logger.Errorw("Failed to unsubscribe nats subscription", zap.Error(err))
	}
	n.conn.Close()
	return nil
}
