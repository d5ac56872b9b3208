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

// Package expr evaluates user expressions against a datum. The environment
// exposes `payload` (string), `keys` ([]string) and `headers` (map), plus the
// helpers json(), int(), string() and the sprig function map.
package expr

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Masterminds/sprig/v3"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

var sprigFuncMap = sprig.GenericFuncMap()

// Input is what an expression is evaluated against.
type Input struct {
	Payload []byte
	Keys    []string
	Headers map[string]string
}

// Program is a compiled expression, safe for concurrent use.
type Program struct {
	source  string
	program *vm.Program
}

// Compile compiles the expression once so it can be evaluated per message.
func Compile(expression string) (*Program, error) {
	program, err := expr.Compile(expression, expr.Env(env(Input{})))
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %w", expression, err)
	}
	return &Program{source: expression, program: program}, nil
}

// String returns the expression source.
func (p *Program) String() string {
	return p.source
}

// Run evaluates the program and returns the raw result.
func (p *Program) Run(in Input) (result interface{}, err error) {
	// the helpers panic on bad input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unable to evaluate expression '%s': %v", p.source, r)
		}
	}()
	result, err = expr.Run(p.program, env(in))
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate expression '%s': %w", p.source, err)
	}
	return result, nil
}

// Bool evaluates the program and requires a boolean result.
func (p *Program) Bool(in Input) (bool, error) {
	result, err := p.Run(in)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", result)
	}
	return b, nil
}

// Text evaluates the program and formats the result.
func (p *Program) Text(in Input) (string, error) {
	result, err := p.Run(in)
	if err != nil {
		return "", err
	}
	return _string(result), nil
}

// EvalBool compiles and evaluates expression against a payload in one go.
func EvalBool(expression string, payload []byte) (bool, error) {
	p, err := Compile(expression)
	if err != nil {
		return false, err
	}
	return p.Bool(Input{Payload: payload})
}

func env(in Input) map[string]interface{} {
	headers := in.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	keys := in.Keys
	if keys == nil {
		keys = []string{}
	}
	return map[string]interface{}{
		"payload": string(in.Payload),
		"keys":    keys,
		"headers": headers,
		"sprig":   sprigFuncMap,
		"json":    _json,
		"int":     _int,
		"string":  _string,
	}
}

func _int(v interface{}) int {
	switch w := v.(type) {
	case []byte:
		return atoi(v, string(w))
	case string:
		return atoi(v, w)
	case float64:
		return int(w)
	case int:
		return w
	default:
		panic(fmt.Errorf("cannot convert %v to int", v))
	}
}

func atoi(v interface{}, s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Errorf("cannot convert %q to int", v))
	}
	return i
}

func _string(v interface{}) string {
	switch w := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(w)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func _json(v interface{}) map[string]interface{} {
	x := make(map[string]interface{})
	var raw []byte
	switch w := v.(type) {
	case nil:
		return nil
	case []byte:
		raw = w
	case string:
		raw = []byte(w)
	default:
		panic(fmt.Errorf("cannot convert %T to object", v))
	}
	if err := json.Unmarshal(raw, &x); err != nil {
		panic(fmt.Errorf("cannot convert %q to object: %v", v, err))
	}
	return x
}
