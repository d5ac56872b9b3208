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
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

// NewConn connects to the NATS server at url. natsOptions are applied after
// the defaults.
func NewConn(ctx context.Context, url string, natsOptions ...nats.Option) (*nats.Conn, error) {
	log := logging.FromContext(ctx)
	opts := []nats.Option{
		// if max reconnects is set to -1, it will try to reconnect forever
		nats.MaxReconnects(-1),
		nats.ReconnectWait(3 * time.Second),
		nats.PingInterval(3 * time.Second),
		nats.MaxPingsOutstanding(2),
		nats.FlusherTimeout(10 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Errorw("Nats: error occurred for subscription", zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("Nats: connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Errorw("Nats: disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Nats: reconnected")
		}),
	}
	opts = append(opts, natsOptions...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats url=%s: %w", url, err)
	}
	return nc, nil
}
