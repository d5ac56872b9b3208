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

package batchmapper

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.BatchMap)

// Adapter implements BatchMapper on top of a host function that takes an
// *iterator.Iterator[*Datum] and returns BatchResponses.
type Adapter struct {
	invoker *invoker.Invoker[*iterator.Iterator[*Datum], BatchResponses]
	hooks   lifecycle.Hooks
}

var _ BatchMapper = (*Adapter)(nil)

func NewAdapter(fn *host.Function, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		invoker: invoker.New[*iterator.Iterator[*Datum], BatchResponses](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

// BatchMap returns an empty response list when the invocation fails.
// Responses for ids that were never handed to the callback are dropped.
func (a *Adapter) BatchMap(ctx context.Context, requests <-chan *Request) BatchResponses {
	// requests left unread by the callback must not block the producer
	defer iterator.Drain(ctx, requests)
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return BatchResponsesBuilder()
	}
	defer a.hooks.Gate().Exit()

	log := logging.FromContext(ctx)
	seen := make(map[string]struct{})
	it := iterator.NewMapped(requests, func(req *Request) *Datum {
		seen[req.ID] = struct{}{}
		return NewDatum(req)
	})
	responses, err := a.invoker.Invoke(ctx, it)
	if err != nil {
		log.Errorw("Batch map callback failed, returning no responses", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return BatchResponsesBuilder()
	}

	out := make(BatchResponses, 0, len(responses))
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		if _, ok := seen[resp.ID()]; !ok {
			log.Warnw("Dropping batch response for an unknown request id", zap.String("id", resp.ID()))
			continue
		}
		out = append(out, resp)
	}
	if len(out) != len(seen) {
		log.Warnw("Batch map responses do not match the requests", zap.Int("requests", len(seen)), zap.Int("responses", len(out)))
	}
	return out
}
