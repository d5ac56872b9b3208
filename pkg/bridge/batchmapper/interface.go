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

// Package batchmapper bridges the batch-map contract: a stream of requests
// is handed to one invocation that answers with a response set per request
// id.
package batchmapper

import (
	"context"
	"time"
)

// Request is one element of a batch.
type Request struct {
	ID        string
	Keys      []string
	Value     []byte
	EventTime time.Time
	Watermark time.Time
	Headers   map[string]string
}

// BatchMapper is the batch-map contract. BatchMap consumes requests until the
// channel is closed.
type BatchMapper interface {
	BatchMap(ctx context.Context, requests <-chan *Request) BatchResponses
}
