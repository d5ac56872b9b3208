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

// Package builtin registers ready-made host functions for every kind, so a
// bridge can be served without user callbacks.
package builtin

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/cat"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/count"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/dedup"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/eventtime"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/filter"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	redisside "github.com/numaproj/numaflow-bridge/pkg/builtin/sideinputs/redis"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/sideinputs/static"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/sinks/blackhole"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/sinks/logger"
	natssink "github.com/numaproj/numaflow-bridge/pkg/builtin/sinks/nats"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/sorter"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/sources/generator"
	natssource "github.com/numaproj/numaflow-bridge/pkg/builtin/sources/nats"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/split"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

var names = map[transport.Kind][]string{
	transport.Map:             {"cat", "filter", "dedup"},
	transport.BatchMap:        {"cat"},
	transport.MapStream:       {"split"},
	transport.Reduce:          {"count"},
	transport.ReduceStream:    {"count"},
	transport.SessionReduce:   {"count"},
	transport.Sink:            {"log", "blackhole", "nats"},
	transport.Source:          {"generator", "nats"},
	transport.SourceTransform: {"event-time", "time-extraction-filter"},
	transport.Accumulator:     {"sorter"},
	transport.SideInput:       {"static", "redis"},
}

// Names returns the sorted builtin names of kind.
func Names(kind transport.Kind) []string {
	out := append([]string(nil), names[kind]...)
	sort.Strings(out)
	return out
}

type Builtin struct {
	Kind   transport.Kind
	Name   string
	KWArgs kwargs.KWArgs
}

// Handles are the host functions of a built builtin.
type Handles struct {
	// Fn backs every kind but source and session-reduce.
	Fn *host.Function
	// Source backs the source kind.
	Source sourcer.Functions
	// SessionReduce, SessionAccumulator and SessionMerge back the
	// session-reduce kind.
	SessionReduce      *host.Function
	SessionAccumulator *host.Function
	SessionMerge       *host.Function

	closers []io.Closer
}

// Close releases the connections held by the builtin.
func (h *Handles) Close() error {
	var err error
	for _, c := range h.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// Build registers the builtin in env.
func (b *Builtin) Build(ctx context.Context, env *host.Env) (*Handles, error) {
	log := logging.FromContext(ctx)
	log.Infow("Build a builtin function", zap.String("kind", string(b.Kind)), zap.String("name", b.Name), zap.Any("kwargs", b.KWArgs))
	h, err := b.build(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s function %q: %w", b.Kind, b.Name, err)
	}
	return h, nil
}

func (b *Builtin) build(ctx context.Context, env *host.Env) (*Handles, error) {
	h := &Handles{}
	var err error
	switch b.Kind {
	case transport.Map:
		switch b.Name {
		case "cat":
			h.Fn = cat.New(env)
		case "filter":
			h.Fn, err = filter.New(env, b.KWArgs)
		case "dedup":
			h.Fn, err = dedup.New(env, b.KWArgs)
		default:
			return nil, b.unrecognized()
		}
	case transport.BatchMap:
		if b.Name != "cat" {
			return nil, b.unrecognized()
		}
		h.Fn = cat.NewBatch(env)
	case transport.MapStream:
		if b.Name != "split" {
			return nil, b.unrecognized()
		}
		h.Fn = split.New(env, b.KWArgs)
	case transport.Reduce:
		if b.Name != "count" {
			return nil, b.unrecognized()
		}
		h.Fn = count.NewReduce(env)
	case transport.ReduceStream:
		if b.Name != "count" {
			return nil, b.unrecognized()
		}
		h.Fn, err = count.NewReduceStream(env, b.KWArgs)
	case transport.SessionReduce:
		if b.Name != "count" {
			return nil, b.unrecognized()
		}
		var s *count.Session
		if s, err = count.NewSession(env, b.KWArgs); err == nil {
			h.SessionReduce, h.SessionAccumulator, h.SessionMerge = s.Reduce, s.Accumulator, s.Merge
		}
	case transport.Sink:
		switch b.Name {
		case "log":
			h.Fn = logger.New(env)
		case "blackhole":
			h.Fn = blackhole.New(env)
		case "nats":
			var sink *natssink.ToNats
			if sink, err = natssink.New(ctx, env, b.KWArgs); err == nil {
				h.Fn = sink.Function()
				h.closers = append(h.closers, sink)
			}
		default:
			return nil, b.unrecognized()
		}
	case transport.Source:
		switch b.Name {
		case "generator":
			var g *generator.Generator
			if g, err = generator.New(b.KWArgs); err == nil {
				h.Source = g.Functions(env)
			}
		case "nats":
			var source *natssource.FromNats
			if source, err = natssource.New(ctx, b.KWArgs); err == nil {
				h.Source = source.Functions(env)
				h.closers = append(h.closers, source)
			}
		default:
			return nil, b.unrecognized()
		}
	case transport.SourceTransform:
		switch b.Name {
		case "event-time":
			h.Fn, err = eventtime.New(env, b.KWArgs)
		case "time-extraction-filter":
			h.Fn, err = eventtime.NewFilter(env, b.KWArgs)
		default:
			return nil, b.unrecognized()
		}
	case transport.Accumulator:
		if b.Name != "sorter" {
			return nil, b.unrecognized()
		}
		h.Fn = sorter.New(env)
	case transport.SideInput:
		switch b.Name {
		case "static":
			h.Fn, err = static.New(env, b.KWArgs)
		case "redis":
			var r *redisside.FromRedis
			if r, err = redisside.New(env, b.KWArgs); err == nil {
				h.Fn = r.Function()
				h.closers = append(h.closers, r)
			}
		default:
			return nil, b.unrecognized()
		}
	default:
		return nil, fmt.Errorf("unrecognized kind %q", b.Kind)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (b *Builtin) unrecognized() error {
	return fmt.Errorf("unrecognized function %q, expected one of %v", b.Name, Names(b.Kind))
}
