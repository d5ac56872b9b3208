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

package reducer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var window = datum.NewMetadata(datum.NewIntervalWindow(time.Unix(60, 0), time.Unix(120, 0)))

func countFn(env *host.Env) *host.Function {
	return env.Register("count", func(s *host.Scope, arg any) (any, error) {
		args := arg.(*Args)
		n := len(args.TakeIterator().Collect(s))
		if args.TakeIterator() != nil {
			return nil, errors.New("iterator handed out twice")
		}
		msg := datum.NewMessage([]byte(strconv.Itoa(n))).WithKeys(args.Keys()).
			WithTags([]string{args.Metadata().IntervalWindow().String()})
		return datum.MessagesBuilder().Append(msg), nil
	})
}

func send(n int) <-chan *Request {
	ch := make(chan *Request)
	go func() {
		defer close(ch)
		for i := 0; i < n; i++ {
			ch <- &Request{Value: []byte{byte(i)}}
		}
	}()
	return ch
}

func TestReducer_Reduce(t *testing.T) {
	c := NewCreator(countFn(host.NewEnv()))
	msgs := c.Create().Reduce(context.Background(), []string{"k"}, send(5), window).Items()
	require.Len(t, msgs, 1)
	assert.Equal(t, "5", string(msgs[0].Value()))
	assert.Equal(t, []string{"k"}, msgs[0].Keys())
	assert.Equal(t, []string{window.IntervalWindow().String()}, msgs[0].Tags())
}

func TestReducer_KeyGroupsAreIndependent(t *testing.T) {
	c := NewCreator(countFn(host.NewEnv()))
	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			msgs := c.Create().Reduce(context.Background(), []string{strconv.Itoa(n)}, send(n*10), window).Items()
			assert.Equal(t, strconv.Itoa(n*10), string(msgs[0].Value()))
		}(i)
	}
	wg.Wait()
}

func TestReducer_FailureIsEmpty(t *testing.T) {
	env := host.NewEnv()
	c := NewCreator(env.Register("broken", func(*host.Scope, any) (any, error) {
		return nil, errors.New("boom")
	}))
	// the unread requests are drained so the producer finishes
	assert.Empty(t, c.Create().Reduce(context.Background(), nil, send(3), window).Items())
}
