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

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.Map)

// Adapter implements Mapper on top of a host function taking a *Datum and
// returning datum.Messages.
type Adapter struct {
	invoker *invoker.Invoker[*Datum, datum.Messages]
	hooks   lifecycle.Hooks
}

var _ Mapper = (*Adapter)(nil)

// NewAdapter returns a map adapter for fn.
func NewAdapter(fn *host.Function, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		invoker: invoker.New[*Datum, datum.Messages](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

func (a *Adapter) Map(ctx context.Context, req *Request) datum.Messages {
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return datum.MessagesBuilder().Append(datum.MessageToDrop())
	}
	defer a.hooks.Gate().Exit()

	msgs, err := a.invoker.Invoke(ctx, NewDatum(req))
	if err != nil {
		logging.FromContext(ctx).Errorw("Map callback failed, dropping the request", zap.Strings("keys", req.Keys), zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return datum.MessagesBuilder().Append(datum.MessageToDrop())
	}
	if msgs == nil {
		return datum.MessagesBuilder()
	}
	return msgs
}
