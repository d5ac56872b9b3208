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

package logger

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sinker"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

func TestToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core).Sugar())

	requests := make(chan *sinker.Request, 3)
	for i := 0; i < 3; i++ {
		requests <- &sinker.Request{ID: strconv.Itoa(i), Value: []byte("v" + strconv.Itoa(i)), Keys: []string{"k"}}
	}
	close(requests)

	responses := sinker.NewAdapter(New(host.NewEnv())).Sink(ctx, requests).Items()
	require.Len(t, responses, 3)
	for i, r := range responses {
		assert.Equal(t, sinker.ResponseOK(strconv.Itoa(i)), r)
	}
	entries := logs.FilterMessage("Sink").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "v2", entries[2].ContextMap()["payload"])
}
