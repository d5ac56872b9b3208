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

package batchmapper

import (
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Datum is one element of the batch as seen by the callback.
type Datum struct {
	id        string
	keys      []string
	value     []byte
	eventTime time.Time
	watermark time.Time
	headers   map[string]string
}

func NewDatum(req *Request) *Datum {
	return &Datum{
		id:        req.ID,
		keys:      req.Keys,
		value:     req.Value,
		eventTime: req.EventTime,
		watermark: req.Watermark,
		headers:   req.Headers,
	}
}

// ID correlates the datum with its response.
func (d *Datum) ID() string {
	return d.id
}

func (d *Datum) Keys() []string {
	return d.keys
}

func (d *Datum) Value() []byte {
	return d.value
}

func (d *Datum) EventTime() time.Time {
	return d.eventTime
}

func (d *Datum) Watermark() time.Time {
	return d.watermark
}

func (d *Datum) Headers() map[string]string {
	return d.headers
}

// BatchResponse holds the messages produced for one request id.
type BatchResponse struct {
	id       string
	messages []datum.Message
}

func NewBatchResponse(id string) *BatchResponse {
	return &BatchResponse{id: id}
}

// Append adds msg to the response and returns the response.
func (r *BatchResponse) Append(msg datum.Message) *BatchResponse {
	r.messages = append(r.messages, msg)
	return r
}

func (r *BatchResponse) ID() string {
	return r.id
}

func (r *BatchResponse) Items() []datum.Message {
	return r.messages
}

// BatchResponses is the result of one batch.
type BatchResponses []*BatchResponse

func BatchResponsesBuilder() BatchResponses {
	return BatchResponses{}
}

func (r BatchResponses) Append(resp *BatchResponse) BatchResponses {
	return append(r, resp)
}

func (r BatchResponses) Items() []*BatchResponse {
	return r
}
