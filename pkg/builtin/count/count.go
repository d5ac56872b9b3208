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

// Package count provides counting reducers for the reduce, reduce-stream and
// session-reduce kinds. A count message carries the decimal element count.
package count

import (
	"strconv"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/reducer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

const defaultEvery = 100

func message(keys []string, n int64) datum.Message {
	return datum.NewMessage([]byte(strconv.FormatInt(n, 10))).WithKeys(keys)
}

// NewReduce returns a reduce function emitting the element count of the
// window.
func NewReduce(env *host.Env) *host.Function {
	return env.Register("count", func(s *host.Scope, arg any) (any, error) {
		in := arg.(*reducer.Args)
		it := in.TakeIterator()
		var n int64
		for r := it.Next(s); !r.Done; r = it.Next(s) {
			n++
		}
		return datum.MessagesBuilder().Append(message(in.Keys(), n)), nil
	})
}

// NewReduceStream returns a reduce-stream function emitting the running count
// after every "every" elements, and the final count when it was not just
// emitted.
func NewReduceStream(env *host.Env, args kwargs.KWArgs) (*host.Function, error) {
	every, err := args.IntOr("every", defaultEvery)
	if err != nil {
		return nil, err
	}
	return env.Register("count", func(_ *host.Scope, arg any) (any, error) {
		in := arg.(*reducer.Args)
		it := in.TakeIterator()
		var n int64
		emitted := false
		return host.Generator(func(s *host.Scope) (datum.Message, bool, error) {
			for r := it.Next(s); !r.Done; r = it.Next(s) {
				n++
				if n%int64(every) == 0 {
					emitted = true
					return message(in.Keys(), n), true, nil
				}
				emitted = false
			}
			if emitted || n == 0 {
				return datum.Message{}, false, nil
			}
			emitted = true
			return message(in.Keys(), n), true, nil
		}), nil
	}), nil
}
