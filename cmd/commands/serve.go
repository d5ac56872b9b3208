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
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bridge "github.com/numaproj/numaflow-bridge"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/accumulator"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/batchmapper"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapper"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/mapstreamer"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/reducer"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/reducestreamer"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sessionreducer"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sideinput"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sinker"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcer"
	"github.com/numaproj/numaflow-bridge/pkg/bridge/sourcetransformer"
	"github.com/numaproj/numaflow-bridge/pkg/builtin"
	"github.com/numaproj/numaflow-bridge/pkg/builtin/kwargs"
	"github.com/numaproj/numaflow-bridge/pkg/host"
	"github.com/numaproj/numaflow-bridge/pkg/lifecycle"
	"github.com/numaproj/numaflow-bridge/pkg/metrics"
	"github.com/numaproj/numaflow-bridge/pkg/shared/logging"
	"github.com/numaproj/numaflow-bridge/pkg/transport"
)

// server is the part of the per-kind servers the command drives.
type server interface {
	Start(ctx context.Context, sockFile, infoFile string) error
	Stop()
}

func NewServeCommand() *cobra.Command {
	var (
		name      string
		cmdKWArgs []string
		sockAddr  string
		infoFile  string
	)

	command := &cobra.Command{
		Use:   "serve KIND",
		Short: "Serve a builtin function of a kind",
		Long:  fmt.Sprintf("Serve a builtin function of a kind, one of %v", transport.Kinds),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := transport.ParseKind(args[0])
			if err != nil {
				return err
			}
			if len(name) == 0 {
				return fmt.Errorf("function name missing, use '--builtin' to specify one of %v", builtin.Names(kind))
			}
			kw, err := kwargs.Parse(cmdKWArgs)
			if err != nil {
				return err
			}

			log := logging.NewLogger().Named(fmt.Sprintf("%s-bridge", kind)).With(zap.String("builtin", name))
			log.Infow("Starting bridge", zap.String("version", bridge.GetVersion().Version))
			conf, err := loadConfig(log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, log)

			env := host.NewEnv(host.WithName(name), host.WithMaxPendingCalls(conf.GetHostConfig().MaxPendingCalls))
			b := &builtin.Builtin{Kind: kind, Name: name, KWArgs: kw}
			handles, err := b.Build(ctx, env)
			if err != nil {
				return err
			}
			defer func() {
				if err := handles.Close(); err != nil {
					log.Errorw("Failed to close builtin", zap.Error(err))
				}
			}()

			sc := conf.GetServerConfig()
			srv, err := newServer(kind, handles, lifecycle.WithMaxMessageSize(sc.MaxMessageSize))
			if err != nil {
				return err
			}
			if sockAddr == "" {
				sockAddr = sc.SockAddr
			}
			if infoFile == "" {
				infoFile = sc.ServerInfoFile
			}

			if mc := conf.GetMetricsConfig(); !mc.Disabled {
				_, shutdown, err := metrics.NewMetricsServer(metrics.WithPort(mc.Port)).Start(ctx)
				if err != nil {
					return err
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(sctx)
				}()
			}
			return srv.Start(ctx, sockAddr, infoFile)
		},
	}
	command.Flags().StringVar(&name, "builtin", "", "Builtin function name")
	command.Flags().StringArrayVar(&cmdKWArgs, "kwargs", nil, "Builtin function arguments as key=value, repeatable")
	command.Flags().StringVar(&sockAddr, "sock", "", "Unix socket path, defaults to the one of the kind")
	command.Flags().StringVar(&infoFile, "info", "", "Server info file path, defaults to the one of the kind")
	return command
}

// newServer creates the server of kind backed by h, bound to the built-in
// protocol service of the kind. The accumulator kind has none and fails to
// start with transport.ErrNoRegistration.
func newServer(kind transport.Kind, h *builtin.Handles, opts ...lifecycle.ServerOption) (server, error) {
	switch kind {
	case transport.Map:
		return mapper.NewServer(h.Fn, opts...), nil
	case transport.BatchMap:
		return batchmapper.NewServer(h.Fn, nil, opts...), nil
	case transport.MapStream:
		return mapstreamer.NewServer(h.Fn, nil, opts...), nil
	case transport.Reduce:
		return reducer.NewServer(h.Fn, nil, opts...), nil
	case transport.ReduceStream:
		return reducestreamer.NewServer(h.Fn, nil, opts...), nil
	case transport.SessionReduce:
		return sessionreducer.NewServer(h.SessionReduce, h.SessionAccumulator, h.SessionMerge, nil, opts...), nil
	case transport.Sink:
		return sinker.NewServer(h.Fn, nil, opts...), nil
	case transport.Source:
		return sourcer.NewServer(h.Source, nil, opts...), nil
	case transport.SourceTransform:
		return sourcetransformer.NewServer(h.Fn, opts...), nil
	case transport.Accumulator:
		return accumulator.NewServer(h.Fn, nil, opts...), nil
	case transport.SideInput:
		return sideinput.NewServer(h.Fn, nil, opts...), nil
	default:
		return nil, fmt.Errorf("unrecognized kind %q", kind)
	}
}
