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

package static

import (
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

// New returns a side-input function that always retrieves "value".
func New(env *host.Env, args kwargs.KWArgs) (*host.Function, error) {
	value, err := args.Required("value")
	if err != nil {
		return nil, err
	}
	return env.Register("static", func(*host.Scope, any) (any, error) {
		return []byte(value), nil
	}), nil
}
