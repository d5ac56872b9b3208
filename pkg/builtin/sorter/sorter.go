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

// Package sorter is an accumulator that reorders a key group by event time.
package sorter

import (
	"container/heap"
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/accumulator"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
)

// New returns an accumulator function that holds the datums of a key group
// until the watermark passes their event time and then emits them ordered by
// event time. Whatever is held when the stream ends is flushed in order.
func New(env *host.Env) *host.Function {
	return env.Register("sorter", func(_ *host.Scope, arg any) (any, error) {
		it := arg.(*iterator.Iterator[*accumulator.Datum])
		var (
			held      byEventTime
			seq       uint64
			watermark time.Time
			ended     bool
		)
		return host.Generator(func(s *host.Scope) (accumulator.Message, bool, error) {
			for {
				if held.Len() > 0 && (ended || !held[0].datum.EventTime().After(watermark)) {
					return accumulator.FromDatum(heap.Pop(&held).(entry).datum), true, nil
				}
				if ended {
					return accumulator.Message{}, false, nil
				}
				r := it.Next(s)
				if r.Done {
					ended = true
					continue
				}
				heap.Push(&held, entry{datum: r.Value, seq: seq})
				seq++
				if r.Value.Watermark().After(watermark) {
					watermark = r.Value.Watermark()
				}
			}
		}), nil
	})
}

type entry struct {
	datum *accumulator.Datum
	seq   uint64
}

// byEventTime is a min-heap of datums, ties kept in arrival order.
type byEventTime []entry

func (h byEventTime) Len() int { return len(h) }

func (h byEventTime) Less(i, j int) bool {
	ti, tj := h[i].datum.EventTime(), h[j].datum.EventTime()
	if ti.Equal(tj) {
		return h[i].seq < h[j].seq
	}
	return ti.Before(tj)
}

func (h byEventTime) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *byEventTime) Push(x any) { *h = append(*h, x.(entry)) }

func (h *byEventTime) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
