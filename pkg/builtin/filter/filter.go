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

package filter

import (
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/shared/expr"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

type filter struct {
	program *expr.Program
}

// New returns a map function that forwards a datum when "expression"
// evaluates to true and drops it otherwise.
func New(env *host.Env, args kwargs.KWArgs) (*host.Function, error) {
	expression, err := args.Required("expression")
	if err != nil {
		return nil, err
	}
	program, err := expr.Compile(expression)
	if err != nil {
		return nil, err
	}
	f := filter{program: program}
	return env.Register("filter", func(s *host.Scope, arg any) (any, error) {
		d := arg.(*mapper.Datum)
		msg, err := f.apply(d)
		if err != nil {
			logging.FromContext(s.Context()).Errorw("Filter map function apply got an error", zap.Error(err))
		}
		return datum.MessagesBuilder().Append(msg), nil
	}), nil
}

func (f filter) apply(d *mapper.Datum) (datum.Message, error) {
	result, err := f.program.Bool(expr.Input{Payload: d.Value(), Keys: d.Keys(), Headers: d.Headers()})
	if err != nil {
		return datum.MessageToDrop(), err
	}
	if result {
		return datum.NewMessage(d.Value()).WithKeys(d.Keys()), nil
	}
	return datum.MessageToDrop(), nil
}
