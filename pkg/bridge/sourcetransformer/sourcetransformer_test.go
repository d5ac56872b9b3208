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

package sourcetransformer

import (
	"context"
	"errors"
	"testing"
	"time"

	sdktransformer "github.com/numaproj/numaflow-go/pkg/sourcetransformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var eventTime = time.Date(2022, 8, 22, 12, 0, 0, 0, time.UTC)

// filterFn keeps payloads other than "drop", stamping them with eventTime.
func filterFn(env *host.Env) *host.Function {
	return env.Register("filter", func(_ *host.Scope, arg any) (any, error) {
		d := arg.(*Datum)
		if string(d.Value()) == "drop" {
			return MessagesBuilder().Append(MessageToDrop(d.EventTime())), nil
		}
		return MessagesBuilder().Append(NewMessage(d.Value(), eventTime).WithTags([]string{"kept"})), nil
	})
}

func TestAdapter_Transform(t *testing.T) {
	a := NewAdapter(filterFn(host.NewEnv()))
	msgs := a.Transform(context.Background(), &Request{Value: []byte("a"), EventTime: time.Unix(1, 0)}).Items()
	require.Len(t, msgs, 1)
	assert.Equal(t, eventTime, msgs[0].EventTime())
	assert.False(t, msgs[0].IsDrop())

	msgs = a.Transform(context.Background(), &Request{Value: []byte("drop"), EventTime: time.Unix(1, 0)}).Items()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsDrop())
	assert.Equal(t, time.Unix(1, 0), msgs[0].EventTime())
}

func TestAdapter_FailureIsEmpty(t *testing.T) {
	env := host.NewEnv()
	a := NewAdapter(env.Register("broken", func(*host.Scope, any) (any, error) { return nil, errors.New("boom") }))
	msgs := a.Transform(context.Background(), &Request{Value: []byte("a")})
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs.Items())

	gate := lifecycle.NewGate(contract)
	gate.Close()
	a = NewAdapter(filterFn(env), lifecycle.WithGate(gate))
	assert.Empty(t, a.Transform(context.Background(), &Request{Value: []byte("a")}).Items())
}

type sdkDatum struct {
	value     []byte
	eventTime time.Time
}

func (d sdkDatum) Value() []byte              { return d.value }
func (d sdkDatum) EventTime() time.Time       { return d.eventTime }
func (d sdkDatum) Watermark() time.Time       { return d.eventTime }
func (d sdkDatum) Headers() map[string]string { return nil }

func TestSDKTransformer(t *testing.T) {
	tr := &sdkTransformer{transformer: NewAdapter(filterFn(host.NewEnv()))}
	got := tr.Transform(context.Background(), []string{"k"}, sdkDatum{value: []byte("a")}).Items()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"k"}, got[0].Keys())
	assert.Equal(t, eventTime, got[0].EventTime())

	got = tr.Transform(context.Background(), []string{"k"}, sdkDatum{value: []byte("drop"), eventTime: time.Unix(5, 0)}).Items()
	require.Len(t, got, 1)
	assert.Equal(t, []string{sdktransformer.DROP}, got[0].Tags())
	assert.Equal(t, time.Unix(5, 0), got[0].EventTime())
	assert.Equal(t, datum.DROP, sdktransformer.DROP)
}
