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

// Package reducer bridges the reduce contract: the requests of one key group
// and window are handed to one invocation that returns the window's
// messages.
package reducer

import (
	"context"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Request is one element of a key group; it has the shape of a map request.
type Request = mapper.Request

// Datum is a request as seen by the callback.
type Datum = mapper.Datum

// Reducer reduces one key group of one window.
type Reducer interface {
	Reduce(ctx context.Context, keys []string, requests <-chan *Request, md datum.Metadata) datum.Messages
}

// ReducerCreator creates a Reducer per key group and window.
type ReducerCreator interface {
	Create() Reducer
}
