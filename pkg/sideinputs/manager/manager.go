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

package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/bridge/sideinput"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/sideinputs/utils"
)

const DefaultSchedule = "@every 30s"

type options struct {
	schedule string
	dir      string
}

type Option func(*options)

// WithSchedule sets the cron schedule of the refreshes, e.g. "*/5 * * * *"
// or "@every 1m".
func WithSchedule(schedule string) Option {
	return func(o *options) {
		o.schedule = schedule
	}
}

// WithDir sets the directory the side input file is kept in.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

type sideInputsManager struct {
	name      string
	retriever sideinput.SideInputRetriever
	opts      *options
}

// NewSideInputsManager returns a manager keeping the side input name up to
// date in <dir>/<name>.
func NewSideInputsManager(name string, retriever sideinput.SideInputRetriever, inputOptions ...Option) *sideInputsManager {
	opts := &options{schedule: DefaultSchedule, dir: sideinput.DirPath}
	for _, o := range inputOptions {
		o(opts)
	}
	return &sideInputsManager{name: name, retriever: retriever, opts: opts}
}

// Path returns the path of the side input file.
func (sim *sideInputsManager) Path() string {
	return filepath.Join(sim.opts.dir, sim.name)
}

// Start refreshes the side input once, then on every tick of the schedule
// until ctx is done. A refresh still running when the next tick fires makes
// that tick skip.
func (sim *sideInputsManager) Start(ctx context.Context) error {
	log := logging.FromContext(ctx).With(zap.String("sideInput", sim.name))
	log.Infow("Starting Side Inputs Manager", zap.String("schedule", sim.opts.schedule), zap.String("path", sim.Path()))
	ctx = logging.WithLogger(ctx, log)

	if err := os.MkdirAll(sim.opts.dir, 0755); err != nil {
		return fmt.Errorf("failed to create side inputs dir %s: %w", sim.opts.dir, err)
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(sim.opts.schedule, func() { sim.refresh(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", sim.opts.schedule, err)
	}

	sim.refresh(ctx)
	c.Start()
	<-ctx.Done()
	// wait for a running refresh
	<-c.Stop().Done()
	log.Info("Side Inputs Manager stopped")
	return nil
}

func (sim *sideInputsManager) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log := logging.FromContext(ctx)
	metrics.SideInputRefreshCount.WithLabelValues(sim.name).Inc()
	value, ok := sim.retriever.RetrieveSideInput(ctx)
	if !ok {
		log.Debug("No side input update")
		return
	}
	changed, err := utils.UpdateSideInputFile(ctx, sim.Path(), value)
	if err != nil {
		metrics.SideInputErrorCount.WithLabelValues(sim.name).Inc()
		log.Errorw("Failed to update side input file", zap.Error(err))
		return
	}
	if changed {
		metrics.SideInputUpdateCount.WithLabelValues(sim.name).Inc()
		log.Infow("Side input updated", zap.Int("size", len(value)))
	}
}
