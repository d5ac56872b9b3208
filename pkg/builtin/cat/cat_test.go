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

package cat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/batchmapper"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestCat(t *testing.T) {
	a := mapper.NewAdapter(New(host.NewEnv()))
	msgs := a.Map(context.Background(), &mapper.Request{
		Keys:         []string{"k"},
		Value:        []byte(`{"a":1}`),
		UserMetadata: map[string]map[string][]byte{"g": {"x": []byte("y")}},
	}).Items()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte(`{"a":1}`), msgs[0].Value())
	assert.Equal(t, []string{"k"}, msgs[0].Keys())
	assert.Equal(t, []byte("y"), msgs[0].UserMetadata().Value("g", "x"))
}

func TestCatBatch(t *testing.T) {
	a := batchmapper.NewAdapter(NewBatch(host.NewEnv()))
	requests := make(chan *batchmapper.Request, 3)
	for _, id := range []string{"1", "2", "3"} {
		requests <- &batchmapper.Request{ID: id, Value: []byte("v" + id)}
	}
	close(requests)

	responses := a.BatchMap(context.Background(), requests).Items()
	require.Len(t, responses, 3)
	for i, id := range []string{"1", "2", "3"} {
		assert.Equal(t, id, responses[i].ID())
		require.Len(t, responses[i].Items(), 1)
		assert.Equal(t, []byte("v"+id), responses[i].Items()[0].Value())
	}
}
