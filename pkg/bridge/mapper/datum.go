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

package mapper

import (
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Datum is the argument of a map callback.
type Datum struct {
	keys           []string
	value          []byte
	eventTime      time.Time
	watermark      time.Time
	headers        map[string]string
	userMetadata   *datum.UserMetadata
	systemMetadata *datum.SystemMetadata
}

// NewDatum converts a protocol request.
func NewDatum(req *Request) *Datum {
	return &Datum{
		keys:           req.Keys,
		value:          req.Value,
		eventTime:      req.EventTime,
		watermark:      req.Watermark,
		headers:        req.Headers,
		userMetadata:   datum.UserMetadataFromMap(req.UserMetadata),
		systemMetadata: datum.NewSystemMetadata(req.SystemMetadata),
	}
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

// UserMetadata is a private copy the callback may modify and attach to its
// messages.
func (d *Datum) UserMetadata() *datum.UserMetadata {
	return d.userMetadata
}

// SetUserMetadata replaces the user metadata of the datum.
func (d *Datum) SetUserMetadata(md *datum.UserMetadata) {
	d.userMetadata = md
}

func (d *Datum) SystemMetadata() *datum.SystemMetadata {
	return d.systemMetadata
}
