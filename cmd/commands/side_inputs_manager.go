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

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bridge "github.com/numaproj/numaflow-bridge"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sideinput"
	"github.com/numaproj/numaflow-bridge/pkg/builtin"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/sideinputs/manager"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

func NewSideInputsManagerCommand() *cobra.Command {
	var (
		name          string
		sideInputName string
		cmdKWArgs     []string
		schedule      string
		dir           string
	)
	command := &cobra.Command{
		Use:   "side-inputs-manager",
		Short: "Refresh a side input file with a builtin side input function",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(name) == 0 {
				return fmt.Errorf("function name missing, use '--builtin' to specify one of %v", builtin.Names(transport.SideInput))
			}
			if len(sideInputName) == 0 {
				return fmt.Errorf("side input name missing, use '--name' to specify it")
			}
			kw, err := kwargs.Parse(cmdKWArgs)
			if err != nil {
				return err
			}

			log := logging.NewLogger().Named("side-inputs-manager").With(zap.String("builtin", name))
			log.Infow("Starting side inputs manager", zap.String("version", bridge.GetVersion().Version))
			conf, err := loadConfig(log)
			if err != nil {
				return err
			}
			sc := conf.GetSideInputConfig()
			if schedule == "" {
				schedule = sc.Schedule
			}
			if dir == "" {
				dir = sc.DirPath
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, log)

			env := host.NewEnv(host.WithName(name), host.WithMaxPendingCalls(conf.GetHostConfig().MaxPendingCalls))
			b := &builtin.Builtin{Kind: transport.SideInput, Name: name, KWArgs: kw}
			handles, err := b.Build(ctx, env)
			if err != nil {
				return err
			}
			defer func() {
				if err := handles.Close(); err != nil {
					log.Errorw("Failed to close builtin", zap.Error(err))
				}
			}()

			sim := manager.NewSideInputsManager(sideInputName, sideinput.NewAdapter(handles.Fn), manager.WithSchedule(schedule), manager.WithDir(dir))
			return sim.Start(ctx)
		},
	}
	command.Flags().StringVar(&name, "builtin", "", "Builtin side input function name")
	command.Flags().StringVar(&sideInputName, "name", "", "Side input name, the file name of the value")
	command.Flags().StringArrayVar(&cmdKWArgs, "kwargs", nil, "Builtin function arguments as key=value, repeatable")
	command.Flags().StringVar(&schedule, "schedule", "", "Cron schedule of the refreshes, defaults to the configured one")
	command.Flags().StringVar(&dir, "dir", "", "Side inputs directory, defaults to the configured one")
	return command
}
