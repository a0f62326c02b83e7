// Package cli wires the pipeline stages into the vntourism command tree.
// Each stage is its own subcommand reading from and writing to the data
// directories, so stages can be run, re-run, and scheduled independently.
package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietdata/tourism-pipeline/internal/config"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

// app carries the shared process state into the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRootCmd builds the vntourism command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:   "vntourism",
		Short: "Vietnam tourism data pipeline",
		Long: "Collects Vietnamese tourism signals (directory listings, search interest,\n" +
			"video buzz, weather history), normalizes them onto the 34 post-merger\n" +
			"provinces, merges them into a modeling table, trains a traffic forecaster,\n" +
			"and serves the results on an HTTP dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			a.metrics = observability.NewMetrics()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(
		a.scrapeCmd(),
		a.trendsCmd(),
		a.youtubeCmd(),
		a.weatherCmd(),
		a.geocodeCmd(),
		a.convertCmd(),
		a.normalizeCmd(),
		a.mergeCmd(),
		a.featuresCmd(),
		a.trainCmd(),
		a.predictCmd(),
		a.serveCmd(),
		a.scheduleCmd(),
	)
	return root
}

// timed runs one stage and records its wall time.
func (a *app) timed(stage string, fn func() error) error {
	start := domain.Clock().Now()
	err := fn()
	elapsed := domain.Clock().Now().Sub(start)
	a.metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		a.logger.Error("stage failed", "stage", stage, "elapsed", elapsed, "error", err)
		return err
	}
	a.logger.Info("stage finished", "stage", stage, "elapsed", elapsed)
	return nil
}

func durationOrDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
