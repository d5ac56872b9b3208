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

package sessionreducer

import (
	"sync"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
)

// Session identifies the reducer a callback runs for. The three callbacks of
// one reducer see the same session.
type Session struct {
	id uint64
}

// ID is unique per reducer within a process.
func (s *Session) ID() uint64 {
	return s.id
}

// Args is the argument of the session-reduce callback.
type Args struct {
	session *Session
	keys    []string

	once     sync.Once
	iterator *iterator.Iterator[*Datum]
}

func NewArgs(session *Session, keys []string, requests <-chan *Request) *Args {
	return &Args{
		session:  session,
		keys:     keys,
		iterator: iterator.NewMapped(requests, mapper.NewDatum),
	}
}

func (a *Args) Session() *Session {
	return a.session
}

func (a *Args) Keys() []string {
	return a.keys
}

// TakeIterator hands out the request iterator once; later calls return nil.
func (a *Args) TakeIterator() *iterator.Iterator[*Datum] {
	var it *iterator.Iterator[*Datum]
	a.once.Do(func() {
		it = a.iterator
	})
	return it
}

// MergeArgs is the argument of the merge callback.
type MergeArgs struct {
	Session     *Session
	Accumulator []byte
}
