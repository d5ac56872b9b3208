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

// Package accumulator bridges the accumulator contract: the unbounded
// request stream of one key group is handed to one invocation whose output
// is streamed back, typically reordered or enriched.
package accumulator

import (
	"context"
	"time"
)

// Request is one element of a key group.
type Request struct {
	ID        string
	Keys      []string
	Value     []byte
	EventTime time.Time
	Watermark time.Time
	Headers   map[string]string
}

// Accumulator handles one key group. Accumulate writes messages to out and
// closes it when done.
type Accumulator interface {
	Accumulate(ctx context.Context, requests <-chan *Request, out chan<- Message)
}

// AccumulatorCreator creates an Accumulator per key group.
type AccumulatorCreator interface {
	Create() Accumulator
}
