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

package dedup

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spaolacci/murmur3"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

const defaultSize = 10000

// New returns a map function that drops a datum whose keys and payload were
// already seen among the last "size" distinct ones.
func New(env *host.Env, args kwargs.KWArgs) (*host.Function, error) {
	size, err := args.IntOr("size", defaultSize)
	if err != nil {
		return nil, err
	}
	seen, err := lru.New[uint64, struct{}](size)
	if err != nil {
		return nil, err
	}
	return env.Register("dedup", func(_ *host.Scope, arg any) (any, error) {
		d := arg.(*mapper.Datum)
		if found, _ := seen.ContainsOrAdd(hash(d), struct{}{}); found {
			return datum.MessagesBuilder().Append(datum.MessageToDrop()), nil
		}
		return datum.MessagesBuilder().Append(datum.NewMessage(d.Value()).WithKeys(d.Keys())), nil
	}), nil
}

func hash(d *mapper.Datum) uint64 {
	h := murmur3.New64()
	for _, k := range d.Keys() {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write(d.Value())
	return h.Sum64()
}
