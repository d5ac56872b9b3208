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

package host

// FromSlice returns a continuation yielding each value in order, then nil.
func FromSlice[T any](values []T) Func {
	i := 0
	return func(*Scope, any) (any, error) {
		if i >= len(values) {
			return nil, nil
		}
		v := values[i]
		i++
		return v, nil
	}
}

// Generator returns a continuation that calls next until it reports false.
func Generator[T any](next func(s *Scope) (T, bool, error)) Func {
	done := false
	return func(s *Scope, _ any) (any, error) {
		if done {
			return nil, nil
		}
		v, ok, err := next(s)
		if err != nil || !ok {
			done = true
			return nil, err
		}
		return v, nil
	}
}
