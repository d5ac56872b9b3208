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

package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookupEnvStringOr(t *testing.T) {
	assert.Equal(t, "hello", LookupEnvStringOr("fake_env", "hello"))
	t.Setenv("BRIDGE_TEST_STRING", "world")
	assert.Equal(t, "world", LookupEnvStringOr("BRIDGE_TEST_STRING", "hello"))
}

func TestLookupEnvIntOr(t *testing.T) {
	assert.Equal(t, 3, LookupEnvIntOr("fake_env", 3))
	t.Setenv("BRIDGE_TEST_INT", "12")
	assert.Equal(t, 12, LookupEnvIntOr("BRIDGE_TEST_INT", 3))
	t.Setenv("BRIDGE_TEST_INT", "twelve")
	assert.Panics(t, func() { LookupEnvIntOr("BRIDGE_TEST_INT", 3) })
}

func TestLookupEnvBoolOr(t *testing.T) {
	assert.True(t, LookupEnvBoolOr("fake_env", true))
	t.Setenv("BRIDGE_TEST_BOOL", "false")
	assert.False(t, LookupEnvBoolOr("BRIDGE_TEST_BOOL", true))
}

func TestLookupEnvDurationOr(t *testing.T) {
	assert.Equal(t, time.Second, LookupEnvDurationOr("fake_env", time.Second))
	t.Setenv("BRIDGE_TEST_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, LookupEnvDurationOr("BRIDGE_TEST_DURATION", time.Second))
	t.Setenv("BRIDGE_TEST_DURATION", "soon")
	assert.Panics(t, func() { LookupEnvDurationOr("BRIDGE_TEST_DURATION", time.Second) })
}
