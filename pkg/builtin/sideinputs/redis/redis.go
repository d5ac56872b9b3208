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

package redis

import (
	"bytes"
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	redisclient "github.com/numaproj/numaflow-bridge/pkg/shared/clients/redis"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

// FromRedis retrieves a side input from the value of a redis key. A missing
// key or an unchanged value is no update.
type FromRedis struct {
	client *redisclient.RedisClient
	key    string
	last   []byte
	fn     *host.Function
}

// New returns a side input reading "key" from the comma separated redis
// addresses "addr". "password" and "masterName" (sentinel) are optional.
func New(env *host.Env, args kwargs.KWArgs) (*FromRedis, error) {
	addr, err := args.Required("addr")
	if err != nil {
		return nil, err
	}
	key, err := args.Required("key")
	if err != nil {
		return nil, err
	}
	client := redisclient.NewRedisClient(&redis.UniversalOptions{
		Addrs:      strings.Split(addr, ","),
		Password:   args.StringOr("password", ""),
		MasterName: args.StringOr("masterName", ""),
	})
	return newFromRedis(env, client, key), nil
}

func newFromRedis(env *host.Env, client *redisclient.RedisClient, key string) *FromRedis {
	r := &FromRedis{client: client, key: key}
	r.fn = env.Register("redis", r.retrieve)
	return r
}

// Function returns the side-input function.
func (r *FromRedis) Function() *host.Function {
	return r.fn
}

func (r *FromRedis) retrieve(s *host.Scope, _ any) (any, error) {
	var (
		value []byte
		found bool
	)
	err := s.Await(func(ctx context.Context) (err error) {
		value, found, err = r.client.Get(ctx, r.key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		logging.FromContext(s.Context()).Debugw("Side input key not found", zap.String("key", r.key))
		return nil, nil
	}
	if r.last != nil && bytes.Equal(value, r.last) {
		return nil, nil
	}
	r.last = value
	return value, nil
}

func (r *FromRedis) Close() error {
	return r.client.Close()
}
