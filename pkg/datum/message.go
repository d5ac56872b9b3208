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

package datum

import (
	sdkmapper "github.com/numaproj/numaflow-go/pkg/mapper"
)

// DROP is the reserved tag of a message that must not be forwarded.
var DROP = sdkmapper.DROP

// Message is an outbound message returned by a callback.
type Message struct {
	keys         []string
	value        []byte
	tags         []string
	userMetadata *UserMetadata
}

// NewMessage creates a Message with value. Keys are left unset, which keeps
// the input keys where the contract allows it.
func NewMessage(value []byte) Message {
	return Message{value: value}
}

// MessageToDrop creates a Message that is dropped instead of forwarded.
func MessageToDrop() Message {
	return Message{value: []byte{}, tags: []string{DROP}}
}

// WithKeys is used to assign the keys to the message
func (m Message) WithKeys(keys []string) Message {
	m.keys = keys
	return m
}

// WithTags is used to assign the tags to the message
func (m Message) WithTags(tags []string) Message {
	m.tags = tags
	return m
}

func (m Message) WithUserMetadata(md *UserMetadata) Message {
	m.userMetadata = md
	return m
}

// Keys returns the keys, nil when unset.
func (m Message) Keys() []string {
	return m.keys
}

func (m Message) Value() []byte {
	return m.value
}

func (m Message) Tags() []string {
	return m.tags
}

func (m Message) UserMetadata() *UserMetadata {
	return m.userMetadata
}

// IsDrop reports whether the tags carry the drop sentinel.
func (m Message) IsDrop() bool {
	return HasDropTag(m.tags)
}

// HasDropTag reports whether tags contain DROP.
func HasDropTag(tags []string) bool {
	for _, t := range tags {
		if t == DROP {
			return true
		}
	}
	return false
}

// KeysOr returns the message keys, or fallback when the message has none set.
func (m Message) KeysOr(fallback []string) []string {
	if m.keys == nil {
		return fallback
	}
	return m.keys
}

// Messages is a list of Message.
type Messages []Message

// MessagesBuilder returns an empty instance of Messages
func MessagesBuilder() Messages {
	return Messages{}
}

// Append appends a Message
func (m Messages) Append(msg Message) Messages {
	return append(m, msg)
}

// Items returns the message list
func (m Messages) Items() []Message {
	return m
}
