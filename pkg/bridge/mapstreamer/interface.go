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

// Package mapstreamer bridges the map-stream contract: one request in, a
// lazily produced stream of messages out.
package mapstreamer

import (
	"context"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Request is a map-stream request; it has the shape of a map request.
type Request = mapper.Request

// Datum is the argument of a map-stream callback.
type Datum = mapper.Datum

// MapStreamer is the map-stream contract. MapStream writes the messages of
// one request to out in order and closes out when done.
type MapStreamer interface {
	MapStream(ctx context.Context, req *Request, out chan<- datum.Message)
}
