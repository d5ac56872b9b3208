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

package invoker

import (
	"errors"
	"fmt"

	"github.com/numaproj/numaflow-bridge/pkg/host"
)

type ErrKind int16

const (
	// CallbackFailed means the callback ran and reported an error.
	CallbackFailed ErrKind = iota
	// NotScheduled means the callback never ran.
	NotScheduled
	// ConversionFailed means the callback result had an unexpected type.
	ConversionFailed
)

func (ek ErrKind) String() string {
	switch ek {
	case CallbackFailed:
		return "CallbackFailed"
	case NotScheduled:
		return "NotScheduled"
	case ConversionFailed:
		return "ConversionFailed"
	default:
		return "Unknown"
	}
}

// Error is returned by every invocation that did not produce a usable result.
type Error struct {
	Kind     ErrKind
	Callback string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Callback, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an invocation error.
func KindOf(err error) (ErrKind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// IsBusinessError reports whether err was raised by the callback itself, as
// opposed to the bridge failing to reach it.
func IsBusinessError(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == CallbackFailed
}

func classify(name string, err error) *Error {
	var cbErr *host.CallbackError
	if errors.As(err, &cbErr) {
		return &Error{Kind: CallbackFailed, Callback: name, Err: cbErr.Err}
	}
	return &Error{Kind: NotScheduled, Callback: name, Err: err}
}
