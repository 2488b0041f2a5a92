package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parkgate/libs/logging"
	"parkgate/services/terminal/internal/app"
	"parkgate/services/terminal/internal/config"
)

// runtime is built once per invocation by the root command's pre-run hook.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	var (
		configFile string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "terminal",
		Short: "Parking gate terminal",
		Long: `terminal runs the operator console of a parking gate, checkpoint or admin desk.

It keeps zone availability in sync with the parking authority over a push channel,
issues tickets at gates and closes stays at checkpoints.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logger, err := logging.NewLogger(logging.Options{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			rt.cfg, rt.logger, rt.app = cfg, logger, application
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newGateCmd(rt),
		newCheckpointCmd(rt),
		newAdminCmd(rt),
		newLoginCmd(rt),
	)
	return root
}

func (rt *runtime) close() {
	if rt.app != nil {
		rt.app.Close()
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}
}

var errQuit = errors.New("quit")
