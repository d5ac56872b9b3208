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

package cat

import (
	"github.com/numaproj/numaflow-bridge/pkg/bridge/batchmapper"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
)

// New returns a map function forwarding every datum unchanged.
func New(env *host.Env) *host.Function {
	return env.Register("cat", func(_ *host.Scope, arg any) (any, error) {
		d := arg.(*mapper.Datum)
		return datum.MessagesBuilder().Append(datum.NewMessage(d.Value()).WithKeys(d.Keys()).WithUserMetadata(d.UserMetadata())), nil
	})
}

// NewBatch returns a batch-map function forwarding every datum of the batch
// unchanged.
func NewBatch(env *host.Env) *host.Function {
	return env.Register("cat", func(s *host.Scope, arg any) (any, error) {
		it := arg.(*iterator.Iterator[*batchmapper.Datum])
		responses := batchmapper.BatchResponsesBuilder()
		for r := it.Next(s); !r.Done; r = it.Next(s) {
			d := r.Value
			responses = responses.Append(batchmapper.NewBatchResponse(d.ID()).Append(datum.NewMessage(d.Value()).WithKeys(d.Keys())))
		}
		return responses, nil
	})
}
