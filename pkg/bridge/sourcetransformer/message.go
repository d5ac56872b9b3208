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

package sourcetransformer

import (
	"time"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
)

// Message is a transformed message. Unlike datum.Message it carries the
// event time assigned by the transformer.
type Message struct {
	value        []byte
	eventTime    time.Time
	keys         []string
	tags         []string
	userMetadata *datum.UserMetadata
}

func NewMessage(value []byte, eventTime time.Time) Message {
	return Message{value: value, eventTime: eventTime}
}

// MessageToDrop drops the message. The event time still advances the
// watermark.
func MessageToDrop(eventTime time.Time) Message {
	return Message{eventTime: eventTime, value: []byte{}, tags: []string{datum.DROP}}
}

func (m Message) WithKeys(keys []string) Message {
	m.keys = keys
	return m
}

func (m Message) WithTags(tags []string) Message {
	m.tags = tags
	return m
}

func (m Message) WithUserMetadata(md *datum.UserMetadata) Message {
	m.userMetadata = md
	return m
}

func (m Message) Value() []byte                     { return m.value }
func (m Message) EventTime() time.Time              { return m.eventTime }
func (m Message) Keys() []string                    { return m.keys }
func (m Message) Tags() []string                    { return m.tags }
func (m Message) UserMetadata() *datum.UserMetadata { return m.userMetadata }

func (m Message) IsDrop() bool {
	return datum.HasDropTag(m.tags)
}

type Messages []Message

func MessagesBuilder() Messages {
	return Messages{}
}

func (m Messages) Append(msg Message) Messages {
	return append(m, msg)
}

func (m Messages) Items() []Message {
	return m
}
