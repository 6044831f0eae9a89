package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/demoreport/internal/config"
	"github.com/okian/demoreport/pkg/logger"
)

// commandContext carries state shared by every subcommand.
type commandContext struct {
	logLevel  string
	logFormat string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	root := &cobra.Command{
		Use:           "demoreport",
		Short:         "Build demographic reports from MTurk results files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cc.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cc.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&cc.logFormat, "log-format", "", "Log format: auto, text or json")

	root.AddCommand(newReportCommand(cc))
	root.AddCommand(newRedcapCommand(cc))
	return root
}

// setup loads process config, applies flag overrides and initializes logging.
func (cc *commandContext) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = cc.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = cc.logFormat
	}

	if err := logger.Init(logger.Format(cfg.LogFormat)); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	cc.cfg = cfg
	return nil
}
