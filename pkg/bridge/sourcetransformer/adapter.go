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

package sourcetransformer

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.SourceTransform)

// Adapter implements SourceTransformer on top of a host function taking a
// *Datum and returning Messages.
type Adapter struct {
	invoker *invoker.Invoker[*Datum, Messages]
	hooks   lifecycle.Hooks
}

var _ SourceTransformer = (*Adapter)(nil)

func NewAdapter(fn *host.Function, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		invoker: invoker.New[*Datum, Messages](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

func (a *Adapter) Transform(ctx context.Context, req *Request) Messages {
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return MessagesBuilder()
	}
	defer a.hooks.Gate().Exit()

	msgs, err := a.invoker.Invoke(ctx, mapper.NewDatum(req))
	if err != nil {
		logging.FromContext(ctx).Errorw("Source transform callback failed, returning no messages", zap.Strings("keys", req.Keys), zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return MessagesBuilder()
	}
	if msgs == nil {
		return MessagesBuilder()
	}
	return msgs
}
