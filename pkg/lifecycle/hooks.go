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

package lifecycle

// Hooks are the lifecycle callbacks an adapter reports to. The zero value
// has an always-open gate and ignores fatal errors.
type Hooks struct {
	gate  *Gate
	fatal func(error)
}

type HookOption func(*Hooks)

// WithGate makes the adapter enter g for every invocation.
func WithGate(g *Gate) HookOption {
	return func(h *Hooks) {
		h.gate = g
	}
}

// WithFatalHandler sets the function called with streaming-fatal errors.
func WithFatalHandler(fn func(error)) HookOption {
	return func(h *Hooks) {
		h.fatal = fn
	}
}

func NewHooks(opts ...HookOption) Hooks {
	var h Hooks
	for _, o := range opts {
		o(&h)
	}
	return h
}

func (h Hooks) Gate() *Gate {
	return h.gate
}

// Fatal reports err to the fatal handler, if any.
func (h Hooks) Fatal(err error) {
	if h.fatal != nil {
		h.fatal(err)
	}
}

// Hooks wires an adapter to c: its gate and Fail.
func (c *Controller) Hooks() []HookOption {
	return []HookOption{WithGate(c.gate), WithFatalHandler(c.Fail)}
}
