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

package split

import (
	"bytes"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapstreamer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/datum"
	"github.com/numaproj/numaflow-bridge/pkg/host"
)

// New returns a map-stream function that streams one message per non-empty
// piece of the payload cut at "separator" (default a newline).
func New(env *host.Env, args kwargs.KWArgs) *host.Function {
	sep := []byte(args.StringOr("separator", "\n"))
	return env.Register("split", func(_ *host.Scope, arg any) (any, error) {
		d := arg.(*mapstreamer.Datum)
		var msgs []datum.Message
		for _, piece := range bytes.Split(d.Value(), sep) {
			if len(piece) == 0 {
				continue
			}
			msgs = append(msgs, datum.NewMessage(piece).WithKeys(d.Keys()))
		}
		return host.FromSlice(msgs), nil
	})
}
