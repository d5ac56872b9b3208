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

package sourcer

import (
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Message is a message read from the source.
type Message struct {
	payload   []byte
	offset    datum.Offset
	eventTime time.Time
	keys      []string
	headers   map[string]string
}

func NewMessage(payload []byte, offset datum.Offset, eventTime time.Time) Message {
	return Message{payload: payload, offset: offset, eventTime: eventTime}
}

func (m Message) WithKeys(keys []string) Message {
	m.keys = keys
	return m
}

func (m Message) WithHeaders(headers map[string]string) Message {
	m.headers = headers
	return m
}

func (m Message) Payload() []byte            { return m.payload }
func (m Message) Offset() datum.Offset       { return m.offset }
func (m Message) EventTime() time.Time       { return m.eventTime }
func (m Message) Keys() []string             { return m.keys }
func (m Message) Headers() map[string]string { return m.headers }
