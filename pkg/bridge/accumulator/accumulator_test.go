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
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/iterator"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sortFn buffers the key group and emits it ordered by event time; a datum
// with value "fail" makes the continuation fail.
func sortFn(env *host.Env) *host.Function {
	return env.Register("sort", func(_ *host.Scope, arg any) (any, error) {
		it := arg.(*iterator.Iterator[*Datum])
		var sorted []Message
		collected := false
		return host.Generator(func(s *host.Scope) (Message, bool, error) {
			if !collected {
				for _, d := range it.Collect(s) {
					if string(d.Value()) == "fail" {
						return Message{}, false, errors.New("cannot sort")
					}
					sorted = append(sorted, FromDatum(d))
				}
				sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EventTime().Before(sorted[j].EventTime()) })
				collected = true
			}
			if len(sorted) == 0 {
				return Message{}, false, nil
			}
			m := sorted[0]
			sorted = sorted[1:]
			return m, true, nil
		}), nil
	})
}

func feed(values ...string) <-chan *Request {
	ch := make(chan *Request, len(values))
	for i, v := range values {
		ch <- &Request{ID: v, Keys: []string{"k"}, Value: []byte(v), EventTime: time.Unix(int64(len(values)-i), 0)}
	}
	close(ch)
	return ch
}

func accumulate(a Accumulator, requests <-chan *Request) []Message {
	out := make(chan Message)
	go a.Accumulate(context.Background(), requests, out)
	var got []Message
	for m := range out {
		got = append(got, m)
	}
	return got
}

func TestAccumulator_Sorts(t *testing.T) {
	c := NewCreator(sortFn(host.NewEnv()))
	got := accumulate(c.Create(), feed("c", "b", "a"))
	require.Len(t, got, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, got[i].ID())
		assert.Equal(t, []string{"k"}, got[i].Keys())
	}
}

func TestAccumulator_FailureTerminatesKeyGroup(t *testing.T) {
	c := NewCreator(sortFn(host.NewEnv()))
	assert.Empty(t, accumulate(c.Create(), feed("a", "fail")))
	assert.Len(t, accumulate(c.Create(), feed("a", "b")), 2)
}

func TestAccumulator_ClosedGate(t *testing.T) {
	gate := lifecycle.NewGate(contract)
	gate.Close()
	c := NewCreator(sortFn(host.NewEnv()), lifecycle.WithGate(gate))
	assert.Empty(t, accumulate(c.Create(), feed("a")))
}

func TestMessage(t *testing.T) {
	d := NewDatum(&Request{ID: "1", Keys: []string{"k"}, Value: []byte("v"), Headers: map[string]string{"h": "x"}})
	m := FromDatum(d).WithValue([]byte("w")).WithTags([]string{"t"})
	assert.Equal(t, "1", m.ID())
	assert.Equal(t, []byte("w"), m.Value())
	assert.Equal(t, map[string]string{"h": "x"}, m.Headers())
	assert.False(t, m.IsDrop())
	assert.True(t, MessageToDrop().IsDrop())
}
