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

package datum

import (
	"fmt"
	"time"
)

// IntervalWindow is the half-open interval [start, end) of a reduce window.
type IntervalWindow struct {
	start time.Time
	end   time.Time
}

func NewIntervalWindow(start, end time.Time) IntervalWindow {
	return IntervalWindow{start: start, end: end}
}

func (w IntervalWindow) StartTime() time.Time {
	return w.start
}

func (w IntervalWindow) EndTime() time.Time {
	return w.end
}

// Contains reports whether t falls in [start, end).
func (w IntervalWindow) Contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.end)
}

func (w IntervalWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.start.UTC().Format(time.RFC3339Nano), w.end.UTC().Format(time.RFC3339Nano))
}

// Metadata describes the window a reduce invocation aggregates.
type Metadata struct {
	window IntervalWindow
}

func NewMetadata(window IntervalWindow) Metadata {
	return Metadata{window: window}
}

func (m Metadata) IntervalWindow() IntervalWindow {
	return m.window
}
