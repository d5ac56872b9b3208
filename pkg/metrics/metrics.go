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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelVersion   = "version"
	LabelPlatform  = "platform"
	LabelEnv       = "env"
	LabelCallback  = "callback"
	LabelErrorKind = "error_kind"
	LabelContract  = "contract"
	LabelReason    = "reason"
	LabelSideInput = "side_input"
	LabelBuiltin   = "builtin"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A metric with a constant value '1', labeled by the bridge binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Host environment metrics
var (
	// LaneWaitSeconds is the time a scheduled callback waited for the host lane.
	LaneWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: "host",
		Name:      "lane_wait_seconds",
		Help:      "Time spent waiting for the host execution lane",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{LabelEnv})

	// PendingCalls is the number of callbacks scheduled or running in a host env.
	PendingCalls = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "host",
		Name:      "pending_calls",
		Help:      "Number of callback invocations scheduled or running",
	}, []string{LabelEnv})
)

// Invoker metrics
var (
	InvocationsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "invoker",
		Name:      "invocations_total",
		Help:      "Total number of callback invocations",
	}, []string{LabelCallback})

	InvocationErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "invoker",
		Name:      "errors_total",
		Help:      "Total number of failed callback invocations, by error kind",
	}, []string{LabelCallback, LabelErrorKind})
)

// Adapter metrics
var (
	// DegradedCount counts results replaced by the contract's degraded value.
	DegradedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "adapter",
		Name:      "degraded_total",
		Help:      "Total number of degraded results returned instead of callback results",
	}, []string{LabelContract, LabelReason})

	// InflightInvocations is the number of adapter invocations admitted by a lifecycle gate.
	InflightInvocations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "adapter",
		Name:      "inflight",
		Help:      "Number of in-flight adapter invocations",
	}, []string{LabelContract})

	FatalErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "adapter",
		Name:      "fatal_errors_total",
		Help:      "Total number of streaming-fatal errors that triggered a shutdown",
	}, []string{LabelContract})
)

// Side input manager metrics
var (
	SideInputRefreshCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "side_input",
		Name:      "refresh_total",
		Help:      "Total number of side input refresh cycles",
	}, []string{LabelSideInput})

	SideInputUpdateCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "side_input",
		Name:      "update_total",
		Help:      "Total number of side input refreshes that wrote a new value",
	}, []string{LabelSideInput})

	SideInputErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "side_input",
		Name:      "error_total",
		Help:      "Total number of side input refreshes that failed to persist",
	}, []string{LabelSideInput})
)

// Builtin function metrics
var (
	BuiltinWriteCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "builtin",
		Name:      "write_total",
		Help:      "Total number of messages written by builtin sinks",
	}, []string{LabelBuiltin})

	BuiltinWriteErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "builtin",
		Name:      "write_error_total",
		Help:      "Total number of messages builtin sinks failed to write",
	}, []string{LabelBuiltin})

	BuiltinReadCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "builtin",
		Name:      "read_total",
		Help:      "Total number of messages read by builtin sources",
	}, []string{LabelBuiltin})
)

// Degradation reasons.
const (
	ReasonInvokeError  = "invoke_error"
	ReasonShuttingDown = "shutting_down"
)
