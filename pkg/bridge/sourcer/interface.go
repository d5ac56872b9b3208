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

// Package sourcer bridges the user-defined source contract: read, ack, nack,
// pending and partitions, each backed by its own host function.
package sourcer

import (
	"context"
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// ReadRequest asks for at most NumRecords messages within Timeout. The read
// callback is expected to honour both.
type ReadRequest struct {
	NumRecords uint64
	Timeout    time.Duration
}

// Sourcer is the user-defined source contract.
type Sourcer interface {
	// Read writes the messages of one read to out and closes it. A non-nil
	// error means the read failed and the server is shutting down.
	Read(ctx context.Context, req *ReadRequest, out chan<- Message) error
	Ack(ctx context.Context, offsets []datum.Offset)
	Nack(ctx context.Context, offsets []datum.Offset)
	// Pending returns the number of pending messages, false when unknown.
	Pending(ctx context.Context) (int64, bool)
	// Partitions returns the partitions of the source, false when unknown.
	Partitions(ctx context.Context) ([]int32, bool)
}
