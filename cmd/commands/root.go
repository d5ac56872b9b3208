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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/numaproj/numaflow-bridge/pkg/config"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
)

const CLIName = "numaflow-bridge"

var configPath string

var rootCmd = &cobra.Command{
	Use:   CLIName,
	Short: "Serve host functions as Numaflow user defined functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.HelpFunc()(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.DefaultConfigPath, "Directory of the bridge-config.yaml file")
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewSideInputsManagerCommand())
	rootCmd.AddCommand(NewVersionCommand())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies its log level, again on
// every reload.
func loadConfig(log *zap.SugaredLogger) (*config.GlobalConfig, error) {
	applyLogLevel := func(c *config.GlobalConfig) {
		if lvl := c.GetLogLevel(); lvl != "" && !logging.SetLevel(lvl) {
			log.Warnw("Invalid log level, ignored", zap.String("logLevel", lvl))
		}
	}
	conf, err := config.LoadConfig(
		config.WithConfigPath(configPath),
		config.WithOnReload(func(c *config.GlobalConfig) {
			log.Info("Configuration reloaded")
			applyLogLevel(c)
		}),
		config.WithOnErrorReloading(func(err error) {
			log.Errorw("Failed to reload configuration", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	applyLogLevel(conf)
	return conf, nil
}
