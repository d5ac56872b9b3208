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

package accumulator

import (
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Datum is a request as seen by the callback.
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

func (d *Datum) ID() string                 { return d.id }
func (d *Datum) Keys() []string             { return d.keys }
func (d *Datum) Value() []byte              { return d.value }
func (d *Datum) EventTime() time.Time       { return d.eventTime }
func (d *Datum) Watermark() time.Time       { return d.watermark }
func (d *Datum) Headers() map[string]string { return d.headers }

// Message is emitted by an accumulator. It keeps the identity of the datum
// it was built from.
type Message struct {
	id        string
	keys      []string
	value     []byte
	tags      []string
	headers   map[string]string
	eventTime time.Time
	watermark time.Time
}

// FromDatum builds a message that echoes d. Use the With methods to
// override the value, keys or tags.
func FromDatum(d *Datum) Message {
	return Message{
		id:        d.id,
		keys:      d.keys,
		value:     d.value,
		headers:   d.headers,
		eventTime: d.eventTime,
		watermark: d.watermark,
	}
}

// MessageToDrop creates a message that is dropped instead of forwarded.
func MessageToDrop() Message {
	now := time.Now()
	return Message{value: []byte{}, tags: []string{datum.DROP}, eventTime: now, watermark: now}
}

func (m Message) WithValue(value []byte) Message {
	m.value = value
	return m
}

func (m Message) WithKeys(keys []string) Message {
	m.keys = keys
	return m
}

func (m Message) WithTags(tags []string) Message {
	m.tags = tags
	return m
}

func (m Message) ID() string                 { return m.id }
func (m Message) Keys() []string             { return m.keys }
func (m Message) Value() []byte              { return m.value }
func (m Message) Tags() []string             { return m.tags }
func (m Message) Headers() map[string]string { return m.headers }
func (m Message) EventTime() time.Time       { return m.eventTime }
func (m Message) Watermark() time.Time       { return m.watermark }

func (m Message) IsDrop() bool {
	return datum.HasDropTag(m.tags)
}
