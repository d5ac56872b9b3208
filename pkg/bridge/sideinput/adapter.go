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

package sideinput

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/invoker"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var contract = string(transport.SideInput)

// Adapter implements SideInputRetriever on top of a host function that takes
// no argument and returns []byte, or nil when there is nothing new.
type Adapter struct {
	invoker *invoker.Invoker[any, []byte]
	hooks   lifecycle.Hooks
}

var _ SideInputRetriever = (*Adapter)(nil)

func NewAdapter(fn *host.Function, opts ...lifecycle.HookOption) *Adapter {
	return &Adapter{
		invoker: invoker.New[any, []byte](fn),
		hooks:   lifecycle.NewHooks(opts...),
	}
}

// RetrieveSideInput reports no update when the invocation fails.
func (a *Adapter) RetrieveSideInput(ctx context.Context) ([]byte, bool) {
	if !a.hooks.Gate().Enter() {
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonShuttingDown).Inc()
		return nil, false
	}
	defer a.hooks.Gate().Exit()

	value, err := a.invoker.Invoke(ctx, nil)
	if err != nil {
		logging.FromContext(ctx).Errorw("Side input callback failed, skipping the update", zap.Error(err))
		metrics.DegradedCount.WithLabelValues(contract, metrics.ReasonInvokeError).Inc()
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}
