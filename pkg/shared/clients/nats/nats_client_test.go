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

package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natstest "github.com/numaproj/numaflow-bridge/pkg/shared/clients/nats/test"
)

func TestNewConn(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	nc, err := NewConn(context.Background(), server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("test")
	require.NoError(t, err)
	require.NoError(t, nc.Publish("test", []byte("hello")))
	msg, err := sub.NextMsg(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), msg.Data)
}

func TestNewConn_Failure(t *testing.T) {
	_, err := NewConn(context.Background(), "nats://127.0.0.1:1", nats.Timeout(100*time.Millisecond))
	assert.Error(t, err)
}
