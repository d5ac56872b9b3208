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

package sorter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/accumulator"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func at(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func TestSorter(t *testing.T) {
	a := accumulator.NewCreator(New(host.NewEnv())).Create()
	requests := make(chan *accumulator.Request)
	out := make(chan accumulator.Message)
	go a.Accumulate(context.Background(), requests, out)

	send := func(id string, eventTime, watermark int64) {
		requests <- &accumulator.Request{ID: id, Keys: []string{"k"}, EventTime: at(eventTime), Watermark: at(watermark)}
	}
	next := func() string {
		select {
		case m := <-out:
			return m.ID()
		case <-time.After(time.Second):
			return "timeout"
		}
	}

	send("c", 30, 0)
	send("a", 10, 0)
	send("b", 20, 0)
	send("b2", 20, 0)
	// the watermark passes a, b and b2 only
	send("d", 40, 25)
	assert.Equal(t, "a", next())
	assert.Equal(t, "b", next())
	assert.Equal(t, "b2", next())

	send("e", 35, 25)
	close(requests)
	var rest []string
	for m := range out {
		rest = append(rest, m.ID())
	}
	assert.Equal(t, []string{"c", "e", "d"}, rest)
}
