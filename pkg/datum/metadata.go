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

// Package datum holds the value types shared by every adapter: grouped
// metadata, outbound messages, window metadata and source offsets.
package datum

import (
	"sort"
)

type groups map[string]map[string][]byte

func (g groups) names() []string {
	out := make([]string, 0, len(g))
	for name := range g {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (g groups) keys(group string) []string {
	kv, ok := g[group]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(kv))
	for k := range kv {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (g groups) clone() groups {
	out := make(groups, len(g))
	for name, kv := range g {
		c := make(map[string][]byte, len(kv))
		for k, v := range kv {
			c[k] = append([]byte(nil), v...)
		}
		out[name] = c
	}
	return out
}

// UserMetadata is writable grouped metadata that round-trips through
// callbacks. Group and key listings are sorted. A nil *UserMetadata reads as
// empty.
type UserMetadata struct {
	data groups
}

// NewUserMetadata returns empty user metadata.
func NewUserMetadata() *UserMetadata {
	return &UserMetadata{data: groups{}}
}

// UserMetadataFromMap copies m into a new UserMetadata.
func UserMetadataFromMap(m map[string]map[string][]byte) *UserMetadata {
	return &UserMetadata{data: groups(m).clone()}
}

// Groups lists the group names.
func (u *UserMetadata) Groups() []string {
	if u == nil {
		return []string{}
	}
	return u.data.names()
}

// Keys lists the keys of group, nil when the group does not exist.
func (u *UserMetadata) Keys(group string) []string {
	if u == nil {
		return nil
	}
	return u.data.keys(group)
}

// Value returns the value of key in group, nil when absent.
func (u *UserMetadata) Value(group, key string) []byte {
	if u == nil {
		return nil
	}
	return u.data[group][key]
}

// CreateGroup adds an empty group. An existing group is left untouched.
func (u *UserMetadata) CreateGroup(group string) {
	if _, ok := u.data[group]; !ok {
		u.data[group] = map[string][]byte{}
	}
}

// AddKV sets key to value in group, creating the group when needed.
func (u *UserMetadata) AddKV(group, key string, value []byte) {
	u.CreateGroup(group)
	u.data[group][key] = value
}

// RemoveKey deletes key from group.
func (u *UserMetadata) RemoveKey(group, key string) {
	if kv, ok := u.data[group]; ok {
		delete(kv, key)
	}
}

// RemoveGroup deletes the group and all its keys.
func (u *UserMetadata) RemoveGroup(group string) {
	delete(u.data, group)
}

// IsEmpty reports whether there are no groups.
func (u *UserMetadata) IsEmpty() bool {
	return u == nil || len(u.data) == 0
}

// Clone returns a deep copy.
func (u *UserMetadata) Clone() *UserMetadata {
	if u == nil {
		return nil
	}
	return &UserMetadata{data: u.data.clone()}
}

// ToMap returns a deep copy as nested maps.
func (u *UserMetadata) ToMap() map[string]map[string][]byte {
	if u == nil {
		return nil
	}
	return u.data.clone()
}

// SystemMetadata is read-only grouped metadata produced by the pipeline
// runtime.
type SystemMetadata struct {
	data groups
}

// NewSystemMetadata copies m into a new SystemMetadata.
func NewSystemMetadata(m map[string]map[string][]byte) *SystemMetadata {
	return &SystemMetadata{data: groups(m).clone()}
}

func (s *SystemMetadata) Groups() []string {
	if s == nil {
		return []string{}
	}
	return s.data.names()
}

func (s *SystemMetadata) Keys(group string) []string {
	if s == nil {
		return nil
	}
	return s.data.keys(group)
}

func (s *SystemMetadata) Value(group, key string) []byte {
	if s == nil {
		return nil
	}
	return s.data[group][key]
}
