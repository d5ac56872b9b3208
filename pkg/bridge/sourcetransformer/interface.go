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

// Package sourcetransformer bridges the source-transform contract: a map
// that may also rewrite the event time of each message.
package sourcetransformer

import (
	"context"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
)

type (
	Request = mapper.Request
	Datum   = mapper.Datum
)

// SourceTransformer is the source-transform contract. It never fails: an
// invocation error yields no messages.
type SourceTransformer interface {
	Transform(ctx context.Context, req *Request) Messages
}
