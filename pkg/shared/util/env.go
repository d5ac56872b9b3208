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

package util

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LookupEnvStringOr returns the value of the env variable, or defaultValue when it is unset or empty.
func LookupEnvStringOr(key, defaultValue string) string {
	if v, existing := os.LookupEnv(key); existing && v != "" {
		return v
	}
	return defaultValue
}

// LookupEnvIntOr panics when the variable is set to something that is not an int.
func LookupEnvIntOr(key string, defaultValue int) int {
	valStr, existing := os.LookupEnv(key)
	if !existing || valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		panic(fmt.Errorf("invalid value for env variable %q, value %q", key, valStr))
	}
	return val
}

func LookupEnvBoolOr(key string, defaultValue bool) bool {
	valStr, existing := os.LookupEnv(key)
	if !existing || valStr == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		panic(fmt.Errorf("invalid value for env variable %q, value %q", key, valStr))
	}
	return val
}

// LookupEnvDurationOr parses values such as "30s" or "2m".
func LookupEnvDurationOr(key string, defaultValue time.Duration) time.Duration {
	valStr, existing := os.LookupEnv(key)
	if !existing || valStr == "" {
		return defaultValue
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		panic(fmt.Errorf("invalid value for env variable %q, value %q", key, valStr))
	}
	return val
}
