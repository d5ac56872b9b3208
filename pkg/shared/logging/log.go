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

package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// level is shared by every logger built by NewLogger so a config reload can
// change verbosity of the whole process.
var level = zap.NewAtomicLevelAt(zap.InfoLevel)

// NewLogger returns a new zap.SugaredLogger
func NewLogger() *zap.SugaredLogger {
	var config zap.Config
	debugMode, ok := os.LookupEnv("NUMAFLOW_DEBUG")
	if ok && debugMode == "true" {
		config = zap.NewDevelopmentConfig()
		level.SetLevel(zap.DebugLevel)
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = level
	config.OutputPaths = []string{"stdout"}
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger.Named("numaflow-bridge").Sugar()
}

// SetLevel changes the level of every logger created by NewLogger. Unknown
// level names are ignored and reported as false.
func SetLevel(name string) bool {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return false
	}
	level.SetLevel(l)
	return true
}

// Level returns the current process-wide level.
func Level() zapcore.Level {
	return level.Level()
}

type loggerKey struct{}

// WithLogger returns a copy of parent context in which the
// value associated with logger key is the supplied logger.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger in the context.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
		return logger
	}
	return NewLogger()
}
