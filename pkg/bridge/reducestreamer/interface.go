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

// Package reducestreamer bridges the reduce-stream contract: the requests of
// one key group and window go to one invocation whose messages are streamed
// out as they are produced.
package reducestreamer

import (
	"context"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/reducer"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

type (
	Request = reducer.Request
	Datum   = reducer.Datum
	// Args is the argument of a reduce-stream callback.
	Args = reducer.Args
)

// ReduceStreamer reduces one key group of one window, writing messages to
// out and closing it when done. A non-nil error means the stream failed and
// the server is shutting down.
type ReduceStreamer interface {
	ReduceStream(ctx context.Context, keys []string, requests <-chan *Request, out chan<- datum.Message, md datum.Metadata) error
}

// ReduceStreamerCreator creates a ReduceStreamer per key group and window.
type ReduceStreamerCreator interface {
	Create() ReduceStreamer
}
