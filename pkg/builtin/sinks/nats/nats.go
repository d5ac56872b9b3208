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
	"time"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sinker"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	natsclient "github.com/numaproj/numaflow-bridge/pkg/shared/clients/nats"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

const defaultFlushTimeout = 5 * time.Second

// ToNats publishes every datum of a batch to a subject.
type ToNats struct {
	conn         *natslib.Conn
	subject      string
	flushTimeout time.Duration
	fn           *host.Function
}

// New connects to "url" and returns a sink publishing to "subject". A batch
// is flushed before it is acknowledged, waiting at most "flushTimeout"
// (default 5s) unless the call has an earlier deadline. A datum that could
// not be published or flushed gets a failure response.
func New(ctx context.Context, env *host.Env, args kwargs.KWArgs) (*ToNats, error) {
	url, err := args.Required("url")
	if err != nil {
		return nil, err
	}
	subject, err := args.Required("subject")
	if err != nil {
		return nil, err
	}
	flushTimeout, err := args.DurationOr("flushTimeout", defaultFlushTimeout)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infow("Connecting to nats service...", zap.String("url", url))
	conn, err := natsclient.NewConn(ctx, url)
	if err != nil {
		return nil, err
	}
	t := &ToNats{conn: conn, subject: subject, flushTimeout: flushTimeout}
	t.fn = env.Register("nats", t.write)
	return t, nil
}

// Function returns the sink function.
func (t *ToNats) Function() *host.Function {
	return t.fn
}

func (t *ToNats) write(s *host.Scope, arg any) (any, error) {
	it := arg.(*iterator.Iterator[*sinker.Datum])
	var (
		ids    []string
		failed = map[string]string{}
	)
	for r := it.Next(s); !r.Done; r = it.Next(s) {
		d := r.Value
		ids = append(ids, d.ID())
		msg := &natslib.Msg{Subject: t.subject, Data: d.Value(), Header: natslib.Header{}}
		for k, v := range d.Headers() {
			msg.Header.Set(k, v)
		}
		if err := t.conn.PublishMsg(msg); err != nil {
			failed[d.ID()] = err.Error()
		}
	}
	if len(ids) > len(failed) {
		err := s.Await(func(ctx context.Context) error {
			// FlushWithContext requires a deadline
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, t.flushTimeout)
				defer cancel()
			}
			return t.conn.FlushWithContext(ctx)
		})
		if err != nil {
			logging.FromContext(s.Context()).Errorw("Failed to flush nats messages", zap.String("subject", t.subject), zap.Error(err))
			for _, id := range ids {
				if _, ok := failed[id]; !ok {
					failed[id] = err.Error()
				}
			}
		}
	}

	responses := sinker.ResponsesBuilder()
	for _, id := range ids {
		if errMsg, ok := failed[id]; ok {
			metrics.BuiltinWriteErrorCount.WithLabelValues("nats").Inc()
			responses = responses.Append(sinker.ResponseFailure(id, errMsg))
			continue
		}
		metrics.BuiltinWriteCount.WithLabelValues("nats").Inc()
		responses = responses.Append(sinker.ResponseOK(id))
	}
	return responses, nil
}

func (t *ToNats) Close() error {
	if err := t.conn.Drain(); err != nil {
		t.conn.Close()
		return err
	}
	return nil
}
