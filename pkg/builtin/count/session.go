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

package count

import (
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sessionreducer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

const defaultSessions = 10000

// accumulator is the exported state of a session.
type accumulator struct {
	Count int64 `json:"count"`
}

// Session holds the three functions of the session count.
type Session struct {
	Reduce      *host.Function
	Accumulator *host.Function
	Merge       *host.Function
}

// NewSession returns a session-reduce count. Counts of the last "sessions"
// active sessions are kept; merging a session adds its count.
func NewSession(env *host.Env, args kwargs.KWArgs) (*Session, error) {
	size, err := args.IntOr("sessions", defaultSessions)
	if err != nil {
		return nil, err
	}
	counts, err := lru.New[uint64, int64](size)
	if err != nil {
		return nil, err
	}
	get := func(s *sessionreducer.Session) int64 {
		n, _ := counts.Get(s.ID())
		return n
	}

	reduce := env.Register("count", func(_ *host.Scope, arg any) (any, error) {
		in := arg.(*sessionreducer.Args)
		it := in.TakeIterator()
		done := false
		return host.Generator(func(s *host.Scope) (datum.Message, bool, error) {
			if done {
				return datum.Message{}, false, nil
			}
			for r := it.Next(s); !r.Done; r = it.Next(s) {
				counts.Add(in.Session().ID(), get(in.Session())+1)
			}
			done = true
			return message(in.Keys(), get(in.Session())), true, nil
		}), nil
	})
	acc := env.Register("count-accumulator", func(_ *host.Scope, arg any) (any, error) {
		return json.Marshal(accumulator{Count: get(arg.(*sessionreducer.Session))})
	})
	merge := env.Register("count-merge", func(_ *host.Scope, arg any) (any, error) {
		m := arg.(*sessionreducer.MergeArgs)
		var other accumulator
		if err := json.Unmarshal(m.Accumulator, &other); err != nil {
			return nil, fmt.Errorf("invalid count accumulator %q: %w", m.Accumulator, err)
		}
		counts.Add(m.Session.ID(), get(m.Session)+other.Count)
		return nil, nil
	})
	return &Session{Reduce: reduce, Accumulator: acc, Merge: merge}, nil
}
