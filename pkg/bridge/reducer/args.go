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

package reducer

import (
	"sync"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
)

// Args is the argument of a reduce callback.
type Args struct {
	keys     []string
	metadata datum.Metadata

	once     sync.Once
	iterator *iterator.Iterator[*Datum]
}

// NewArgs wraps the requests of one key group.
func NewArgs(keys []string, requests <-chan *Request, md datum.Metadata) *Args {
	return &Args{
		keys:     keys,
		metadata: md,
		iterator: iterator.NewMapped(requests, mapper.NewDatum),
	}
}

func (a *Args) Keys() []string {
	return a.keys
}

func (a *Args) Metadata() datum.Metadata {
	return a.metadata
}

// TakeIterator hands out the request iterator. It can be taken once; later
// calls return nil.
func (a *Args) TakeIterator() *iterator.Iterator[*Datum] {
	var it *iterator.Iterator[*Datum]
	a.once.Do(func() {
		it = a.iterator
	})
	return it
}
