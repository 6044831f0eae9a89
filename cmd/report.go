package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/demoreport/internal/adapters/console"
	service "github.com/okian/demoreport/internal/app"
	"github.com/okian/demoreport/internal/config"
	"github.com/okian/demoreport/pkg/logger"
	"github.com/okian/demoreport/pkg/metrics"
)

type reportFlags struct {
	manifest        string
	rawSubjects     bool
	sqlite          bool
	outputDir       string
	summary         bool
	metricsTextfile string
	readWorkers     int
}

func newReportCommand(cc *commandContext) *cobra.Command {
	var f reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the deduplicated demographic report for a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := cc.cfg
			applyReportFlags(cmd, cfg, f)

			m, err := config.LoadManifest(ctx, f.manifest)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			svc := service.New(
				service.WithLogger(logger.Named("pipeline")),
				service.WithLocation(loc),
				service.WithOutputDir(cfg.OutputDir),
				service.WithRawSubjects(cfg.RawSubjects),
				service.WithSQLite(cfg.SQLite),
				service.WithReadWorkers(cfg.ReadWorkers),
			)
			res, err := svc.Run(ctx, m)
			if err != nil {
				return err
			}

			if cfg.Summary {
				if err := console.WriteSummary(cmd.OutOrStdout(), res.Summary); err != nil {
					return err
				}
			}
			if cfg.MetricsTextfile != "" {
				if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.manifest, "resultsfilelist", "r", "", "YAML manifest listing results files, protocol and date breaks")
	cmd.Flags().BoolVarP(&f.rawSubjects, "rawsubjects", "s", false, "Also write every assignment, undeduplicated, to a CSV file")
	cmd.Flags().BoolVar(&f.sqlite, "sqlite", false, "Also write every assignment to a SQLite database")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory output files are written to")
	cmd.Flags().BoolVar(&f.summary, "summary", true, "Print a race by period summary table")
	cmd.Flags().StringVar(&f.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format to this file")
	cmd.Flags().IntVar(&f.readWorkers, "read-workers", 0, "Number of results files read at once")
	_ = cmd.MarkFlagRequired("resultsfilelist")
	return cmd
}

// applyReportFlags overrides config values with flags the user set.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config, f reportFlags) {
	flags := cmd.Flags()
	if flags.Changed("rawsubjects") {
		cfg.RawSubjects = f.rawSubjects
	}
	if flags.Changed("sqlite") {
		cfg.SQLite = f.sqlite
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if flags.Changed("summary") {
		cfg.Summary = f.summary
	}
	if flags.Changed("metrics-textfile") {
		cfg.MetricsTextfile = f.metricsTextfile
	}
	if flags.Changed("read-workers") && f.readWorkers > 0 {
		cfg.ReadWorkers = f.readWorkers
	}
}
