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
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisClient datatype to hold redis client attributes.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedisClient returns a new Redis Client.
func NewRedisClient(options *redis.UniversalOptions) *RedisClient {
	client := new(RedisClient)
	client.Client = redis.NewUniversalClient(options)
	return client
}

// Get returns the value of key. found is false when the key does not exist.
func (cl *RedisClient) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	value, err = cl.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (cl *RedisClient) Close() error {
	return cl.Client.Close()
}
