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
	"fmt"
	"math"
	"reflect"
)

// convert turns a dynamically typed callback result into R. Accepted
// shapes: nil (zero R), R itself, T for *T and *T for T, integers that fit
// the target integer type (also behind a pointer), and slices whose
// elements convert.
func convert[R any](v any) (R, error) {
	var zero R
	if v == nil {
		return zero, nil
	}
	if r, ok := v.(R); ok {
		return r, nil
	}
	target := reflect.TypeOf((*R)(nil)).Elem()
	out, err := convertValue(reflect.ValueOf(v), target)
	if err != nil {
		return zero, err
	}
	if r, ok := out.Interface().(R); ok {
		return r, nil
	}
	return zero, nil
}

func convertValue(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(target), nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(target), nil
		}
		v = v.Elem()
	}
	src := v.Type()
	switch {
	case src.AssignableTo(target):
		out := reflect.New(target).Elem()
		out.Set(v)
		return out, nil
	case target.Kind() == reflect.Pointer && src.AssignableTo(target.Elem()):
		p := reflect.New(target.Elem())
		p.Elem().Set(v)
		return p, nil
	case src.Kind() == reflect.Pointer && src.Elem().AssignableTo(target):
		if v.IsNil() {
			return reflect.Zero(target), nil
		}
		return v.Elem(), nil
	case target.Kind() == reflect.Pointer && src.Kind() != reflect.Pointer:
		elem, err := convertValue(v, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(elem)
		return p, nil
	case isInteger(src.Kind()) && isInteger(target.Kind()):
		return convertInteger(v, target)
	case src.Kind() == reflect.Slice && target.Kind() == reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(target), nil
		}
		out := reflect.MakeSlice(target, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := convertValue(v.Index(i), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", src, target)
}

func convertInteger(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	overflow := fmt.Errorf("value %v overflows %s", v.Interface(), target)
	switch {
	case isSigned(v.Kind()) && isSigned(target.Kind()):
		if out.OverflowInt(v.Int()) {
			return reflect.Value{}, overflow
		}
		out.SetInt(v.Int())
	case isSigned(v.Kind()):
		i := v.Int()
		if i < 0 || out.OverflowUint(uint64(i)) {
			return reflect.Value{}, overflow
		}
		out.SetUint(uint64(i))
	case isSigned(target.Kind()):
		u := v.Uint()
		if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
			return reflect.Value{}, overflow
		}
		out.SetInt(int64(u))
	default:
		if out.OverflowUint(v.Uint()) {
			return reflect.Value{}, overflow
		}
		out.SetUint(v.Uint())
	}
	return out, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return isSigned(k)
}
