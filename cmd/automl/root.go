package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/automl/config"
	"github.com/YuminosukeSato/automl/pkg/log"
)

type rootOptions struct {
	logLevel  string
	logFormat string
	env       *config.EnvConfig
	provider  *log.ZerologProvider
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "automl",
		Short:         "Time-ordered regression model search",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return ro.setup(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "log level: debug, info, warn, error (default from AUTOML_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&ro.logFormat, "log-format", "", "log format: json or console (default from AUTOML_LOG_FORMAT)")

	cmd.AddCommand(newModelsCmd(ro), newRunCmd(ro))
	return cmd
}

// setup reads the environment and installs the logger. Flags override the
// environment.
func (ro *rootOptions) setup(cmd *cobra.Command) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if ro.logLevel != "" {
		env.LogLevel = ro.logLevel
	}
	if ro.logFormat != "" {
		env.LogFormat = ro.logFormat
	}
	level, err := log.ParseLevel(env.LogLevel)
	if err != nil {
		return err
	}
	ro.env = env
	ro.provider = log.NewZerologProviderWithOptions(log.Options{
		Writer: cmd.ErrOrStderr(),
		Format: env.LogFormat,
		Level:  level,
	})
	ro.provider.RouteWarnings()
	log.SetProvider(ro.provider)
	return nil
}
