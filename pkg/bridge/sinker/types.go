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

package sinker

import (
	"fmt"
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Datum is a sink request as seen by the callback.
type Datum struct {
	id             string
	keys           []string
	value          []byte
	eventTime      time.Time
	watermark      time.Time
	headers        map[string]string
	userMetadata   *datum.UserMetadata
	systemMetadata *datum.SystemMetadata
}

func NewDatum(req *Request) *Datum {
	return &Datum{
		id:             req.ID,
		keys:           req.Keys,
		value:          req.Value,
		eventTime:      req.EventTime,
		watermark:      req.Watermark,
		headers:        req.Headers,
		userMetadata:   datum.UserMetadataFromMap(req.UserMetadata),
		systemMetadata: datum.NewSystemMetadata(req.SystemMetadata),
	}
}

func (d *Datum) ID() string                            { return d.id }
func (d *Datum) Keys() []string                        { return d.keys }
func (d *Datum) Value() []byte                         { return d.value }
func (d *Datum) EventTime() time.Time                  { return d.eventTime }
func (d *Datum) Watermark() time.Time                  { return d.watermark }
func (d *Datum) Headers() map[string]string            { return d.headers }
func (d *Datum) UserMetadata() *datum.UserMetadata     { return d.userMetadata }
func (d *Datum) SystemMetadata() *datum.SystemMetadata { return d.systemMetadata }

// ResponseType tells the runtime what happened to a request.
type ResponseType int

const (
	Success ResponseType = iota
	Failure
	Fallback
	Serve
	OnSuccess
)

func (t ResponseType) String() string {
	switch t {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Fallback:
		return "fallback"
	case Serve:
		return "serve"
	case OnSuccess:
		return "on_success"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Message is forwarded to the on-success sink.
type Message struct {
	keys         []string
	value        []byte
	userMetadata *datum.UserMetadata
}

func NewMessage(value []byte) *Message {
	return &Message{value: value}
}

func (m *Message) WithKeys(keys []string) *Message {
	m.keys = keys
	return m
}

func (m *Message) WithUserMetadata(md *datum.UserMetadata) *Message {
	m.userMetadata = md
	return m
}

func (m *Message) Keys() []string                    { return m.keys }
func (m *Message) Value() []byte                     { return m.value }
func (m *Message) UserMetadata() *datum.UserMetadata { return m.userMetadata }

// Response is the outcome of one request. Only the field matching Type is
// set.
type Response struct {
	ID   string
	Type ResponseType
	// Err is set for Failure.
	Err string
	// ServeResponse is set for Serve.
	ServeResponse []byte
	// OnSuccessMessage may be set for OnSuccess; nil forwards the original
	// request.
	OnSuccessMessage *Message
}

// ResponseOK marks the request as written.
func ResponseOK(id string) Response {
	return Response{ID: id, Type: Success}
}

// ResponseFailure marks the request as failed; the runtime retries it.
func ResponseFailure(id, errMsg string) Response {
	return Response{ID: id, Type: Failure, Err: errMsg}
}

// ResponseFallback sends the request to the fallback sink.
func ResponseFallback(id string) Response {
	return Response{ID: id, Type: Fallback}
}

// ResponseServe stores payload for the serving store.
func ResponseServe(id string, payload []byte) Response {
	return Response{ID: id, Type: Serve, ServeResponse: payload}
}

// ResponseOnSuccess sends msg, or the request itself when msg is nil, to the
// on-success sink.
func ResponseOnSuccess(id string, msg *Message) Response {
	return Response{ID: id, Type: OnSuccess, OnSuccessMessage: msg}
}

// Responses is the result of one sink invocation.
type Responses []Response

func ResponsesBuilder() Responses {
	return Responses{}
}

func (r Responses) Append(resp Response) Responses {
	return append(r, resp)
}

func (r Responses) Items() []Response {
	return r
}
