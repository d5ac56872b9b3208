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

// Package kwargs reads the keyword arguments of a builtin function.
package kwargs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KWArgs are string keyword arguments, e.g. from repeated --kwargs k=v flags.
type KWArgs map[string]string

// Parse builds KWArgs from "key=value" pairs.
func Parse(pairs []string) (KWArgs, error) {
	kw := make(KWArgs, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid kwarg %q, expected key=value", p)
		}
		kw[k] = v
	}
	return kw, nil
}

// Required returns the value of key, or an error when it is missing.
func (kw KWArgs) Required(key string) (string, error) {
	v, existing := kw[key]
	if !existing || v == "" {
		return "", fmt.Errorf("missing %q", key)
	}
	return v, nil
}

func (kw KWArgs) StringOr(key, defaultValue string) string {
	if v, existing := kw[key]; existing && v != "" {
		return v
	}
	return defaultValue
}

// IntOr fails on a value that is not a positive integer.
func (kw KWArgs) IntOr(key string, defaultValue int) (int, error) {
	v, existing := kw[key]
	if !existing || v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value %q for %q, expected a positive integer", v, key)
	}
	return n, nil
}

func (kw KWArgs) DurationOr(key string, defaultValue time.Duration) (time.Duration, error) {
	v, existing := kw[key]
	if !existing || v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %q: %w", v, key, err)
	}
	return d, nil
}
