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

// Package sinker bridges the sink contract: a stream of requests goes to one
// invocation that answers with a response per request id.
package sinker

import (
	"context"
	"time"
)

// Request is one element written to the sink.
type Request struct {
	ID             string
	Keys           []string
	Value          []byte
	EventTime      time.Time
	Watermark      time.Time
	Headers        map[string]string
	UserMetadata   map[string]map[string][]byte
	SystemMetadata map[string]map[string][]byte
}

// Sinker is the sink contract. Sink consumes requests until the channel is
// closed.
type Sinker interface {
	Sink(ctx context.Context, requests <-chan *Request) Responses
}
