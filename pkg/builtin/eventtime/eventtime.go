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

// Package eventtime assigns event times extracted from the payload.
package eventtime

import (
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcetransformer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/shared/expr"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

type eventTimeExtractor struct {
	// expression extracts the string representation of the event time, e.g.
	// `json(payload).metadata.time`.
	expression *expr.Program
	// format is the time.Parse layout of the extracted string. Without it
	// the layout is detected.
	format string
}

// New returns a source-transform function that sets the event time of every
// datum to the time "expression" extracts from it. When extraction fails
// the original event time is kept.
func New(env *host.Env, args kwargs.KWArgs) (*host.Function, error) {
	e, err := newExtractor(args, "expression", "format")
	if err != nil {
		return nil, err
	}
	return env.Register("event-time", func(s *host.Scope, arg any) (any, error) {
		d := arg.(*sourcetransformer.Datum)
		eventTime, err := e.apply(d)
		if err != nil {
			logging.FromContext(s.Context()).Warnw("Event time extractor got an error, skip updating event time...", zap.Error(err))
		}
		return sourcetransformer.MessagesBuilder().Append(sourcetransformer.NewMessage(d.Value(), eventTime).WithKeys(d.Keys())), nil
	}), nil
}

func newExtractor(args kwargs.KWArgs, expressionKey, formatKey string) (*eventTimeExtractor, error) {
	expression, err := args.Required(expressionKey)
	if err != nil {
		return nil, err
	}
	program, err := expr.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &eventTimeExtractor{expression: program, format: args.StringOr(formatKey, "")}, nil
}

// apply returns the extracted event time, or the original one with the
// error.
func (e *eventTimeExtractor) apply(d *sourcetransformer.Datum) (time.Time, error) {
	timeStr, err := e.expression.Text(expr.Input{Payload: d.Value(), Keys: d.Keys(), Headers: d.Headers()})
	if err != nil {
		return d.EventTime(), err
	}
	var eventTime time.Time
	if e.format != "" {
		eventTime, err = time.Parse(e.format, timeStr)
	} else {
		eventTime, err = dateparse.ParseStrict(timeStr)
	}
	if err != nil {
		return d.EventTime(), err
	}
	return eventTime, nil
}
