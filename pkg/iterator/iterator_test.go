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

package iterator

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIterator_YieldsThenDone(t *testing.T) {
	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	ch <- "c"
	close(ch)
	it := New(ch)
	ctx := context.Background()
	assert.Equal(t, Result[string]{Value: "a"}, it.NextContext(ctx))
	assert.Equal(t, Result[string]{Value: "b"}, it.NextContext(ctx))
	assert.Equal(t, Result[string]{Value: "c"}, it.NextContext(ctx))
	assert.Equal(t, Result[string]{Done: true}, it.NextContext(ctx))
	assert.Equal(t, Result[string]{Done: true}, it.NextContext(ctx))
}

func TestIterator_Mapped(t *testing.T) {
	ch := make(chan int, 2)
	ch <- 1
	ch <- 2
	close(ch)
	it := NewMapped(ch, strconv.Itoa)
	assert.Equal(t, "1", it.NextContext(context.Background()).Value)
	assert.Equal(t, "2", it.NextContext(context.Background()).Value)
	assert.True(t, it.NextContext(context.Background()).Done)
}

func TestIterator_ContextEndsIteration(t *testing.T) {
	ch := make(chan int)
	it := New(ch)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.True(t, it.NextContext(ctx).Done)
}

func TestIterator_ConcurrentNextPanics(t *testing.T) {
	ch := make(chan int)
	it := New(ch)
	first := make(chan Result[int])
	go func() { first <- it.NextContext(context.Background()) }()
	require.Eventually(t, it.busy.Load, time.Second, time.Millisecond)
	assert.Panics(t, func() { it.NextContext(context.Background()) })
	ch <- 7
	assert.Equal(t, 7, (<-first).Value)
}

func TestIterator_PulledFromHostBody(t *testing.T) {
	env := host.NewEnv()
	ch := make(chan int)
	sum := env.Register("sum", func(s *host.Scope, arg any) (any, error) {
		total := 0
		for _, v := range arg.(*Iterator[int]).Collect(s) {
			total += v
		}
		return total, nil
	})
	// a second body must be able to run while sum waits for elements
	echo := env.Register("echo", func(_ *host.Scope, arg any) (any, error) { return arg, nil })

	result := make(chan any)
	go func() {
		v, err := env.Call(context.Background(), sum, New(ch))
		assert.NoError(t, err)
		result <- v
	}()
	for i := 1; i <= 4; i++ {
		ch <- i
		v, err := env.Call(context.Background(), echo, i)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	close(ch)
	assert.Equal(t, 10, <-result)
}

func TestIterator_ConcurrentNextInBodyIsCallbackError(t *testing.T) {
	env := host.NewEnv()
	ch := make(chan int)
	it := New(ch)
	started := make(chan struct{})
	first := env.Register("first", func(s *host.Scope, _ any) (any, error) {
		close(started)
		return it.Next(s).Value, nil
	})
	second := env.Register("second", func(s *host.Scope, _ any) (any, error) {
		return it.Next(s).Value, nil
	})
	result := make(chan any)
	go func() {
		v, _ := env.Call(context.Background(), first, nil)
		result <- v
	}()
	<-started
	require.Eventually(t, it.busy.Load, time.Second, time.Millisecond)
	_, err := env.Call(context.Background(), second, nil)
	var cbErr *host.CallbackError
	assert.ErrorAs(t, err, &cbErr)
	ch <- 3
	assert.Equal(t, 3, <-result)
}

func TestDrain(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	close(ch)
	Drain(context.Background(), ch)
	_, ok := <-ch
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Drain(ctx, make(chan int))
}
