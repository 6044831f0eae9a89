package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/demoreport/internal/testresults"
	"github.com/okian/demoreport/pkg/logger"
)

func main() {
	defaults := testresults.DefaultConfig(".")
	var (
		dir         = flag.String("dir", "synthetic", "Directory to write results files and manifest into")
		protocol    = flag.String("protocol", defaults.Protocol, "Protocol name written to the manifest")
		workers     = flag.Int("workers", defaults.Workers, "Number of distinct workers")
		files       = flag.Int("files", defaults.Files, "Number of results files with demographics")
		assignments = flag.Int("assignments", defaults.MaxAssignments, "Maximum assignments per worker per file")
		legacy      = flag.Bool("legacy", defaults.LegacyFile, "Also write a file from before the demographic questionnaire")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed for answers and submit times")
		start       = flag.String("start", defaults.Start.Format(time.DateOnly), "First day of the first period (YYYY-MM-DD)")
		years       = flag.Int("years", defaults.Years, "Number of yearly periods")
	)
	flag.Parse()

	if err := logger.Init(logger.FormatAuto); err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	startDay, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -start: %v\n", err)
		os.Exit(2)
	}

	cfg := testresults.Config{
		Dir:            *dir,
		Protocol:       *protocol,
		Workers:        *workers,
		Files:          *files,
		MaxAssignments: *assignments,
		LegacyFile:     *legacy,
		Seed:           *seed,
		Start:          startDay,
		Years:          *years,
	}

	ctx := context.Background()
	fx, err := testresults.Generate(ctx, cfg)
	if err != nil {
		logger.Get().Error(ctx, "generation failed", logger.Error(err))
		os.Exit(1)
	}
	logger.Get().Info(ctx, "fixture written",
		logger.String("manifest", fx.ManifestPath),
		logger.Int("files", len(fx.Files)),
		logger.Int("rows", fx.Rows),
		logger.Int("workers", len(fx.Workers)))
	fmt.Println(fx.ManifestPath)
}
