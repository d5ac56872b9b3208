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

package eventtime

import (
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcetransformer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/shared/expr"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

// NewFilter returns a source-transform function that drops a datum unless
// "filterExpr" evaluates to true, and sets the event time of the kept ones
// from "eventTimeExpr" and the optional "eventTimeFormat".
func NewFilter(env *host.Env, args kwargs.KWArgs) (*host.Function, error) {
	filterExpr, err := args.Required("filterExpr")
	if err != nil {
		return nil, err
	}
	filter, err := expr.Compile(filterExpr)
	if err != nil {
		return nil, err
	}
	e, err := newExtractor(args, "eventTimeExpr", "eventTimeFormat")
	if err != nil {
		return nil, err
	}
	return env.Register("time-extraction-filter", func(s *host.Scope, arg any) (any, error) {
		d := arg.(*sourcetransformer.Datum)
		log := logging.FromContext(s.Context())
		keep, err := filter.Bool(expr.Input{Payload: d.Value(), Keys: d.Keys(), Headers: d.Headers()})
		if err != nil {
			log.Errorw("Filter got an error", zap.Error(err))
		}
		if !keep {
			return sourcetransformer.MessagesBuilder().Append(sourcetransformer.MessageToDrop(d.EventTime())), nil
		}
		eventTime, err := e.apply(d)
		if err != nil {
			log.Errorw("Event time extractor got an error", zap.Error(err))
		}
		return sourcetransformer.MessagesBuilder().Append(sourcetransformer.NewMessage(d.Value(), eventTime).WithKeys(d.Keys())), nil
	}), nil
}
