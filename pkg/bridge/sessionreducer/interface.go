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

// Package sessionreducer bridges the session-reduce contract. A session
// reducer streams the messages of a key group and can hand its state over
// to another session through an opaque accumulator when sessions merge.
package sessionreducer

import (
	"context"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

type (
	Request = mapper.Request
	Datum   = mapper.Datum
)

// SessionReducer handles one session.
type SessionReducer interface {
	// SessionReduce writes the session's messages to out and closes it.
	SessionReduce(ctx context.Context, keys []string, requests <-chan *Request, out chan<- datum.Message)
	// Accumulator returns the state of the session.
	Accumulator(ctx context.Context) []byte
	// MergeAccumulator merges the state of another session into this one.
	MergeAccumulator(ctx context.Context, accumulator []byte)
}

// SessionReducerCreator creates a SessionReducer per session.
type SessionReducerCreator interface {
	Create() SessionReducer
}
