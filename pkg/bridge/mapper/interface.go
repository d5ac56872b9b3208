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

// Package mapper bridges the map contract: one request in, a list of
// messages out.
package mapper

import (
	"context"
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Request is a map request as handed over by the protocol server.
type Request struct {
	Keys           []string
	Value          []byte
	EventTime      time.Time
	Watermark      time.Time
	Headers        map[string]string
	UserMetadata   map[string]map[string][]byte
	SystemMetadata map[string]map[string][]byte
}

// Mapper is the map contract consumed by the protocol server. It never
// fails: an invocation error yields a single drop message.
type Mapper interface {
	Map(ctx context.Context, req *Request) datum.Messages
}
