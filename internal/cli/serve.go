package cli

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vietdata/tourism-pipeline/internal/dashboard"
	"github.com/vietdata/tourism-pipeline/internal/features"
	"github.com/vietdata/tourism-pipeline/internal/merge"
	"github.com/vietdata/tourism-pipeline/internal/model"
	"github.com/vietdata/tourism-pipeline/internal/normalize"
	"github.com/vietdata/tourism-pipeline/internal/schedule"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := dashboard.NewStore(a.cfg.NormalizedDir, a.cfg.ModelsDir,
				a.cfg.Dashboard.CacheTTL, a.logger, a.metrics)
			if err := store.Load(); err != nil {
				// Serve anyway; /readyz stays red until the pipeline
				// produces a table and the watcher picks it up.
				a.logger.Warn("dataset not loaded yet", "error", err)
			}
			stopWatch, err := store.Watch()
			if err != nil {
				return err
			}
			defer stopWatch()

			srv := dashboard.NewServer(a.cfg.Dashboard.Addr, store, a.logger, a.metrics)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			ctx := cmd.Context()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Dashboard.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func (a *app) scheduleCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Refresh the processed datasets on a cron timetable",
		Long: "Runs normalize, merge, features, and train in sequence on the given\n" +
			"cron spec. Collection stages stay manual; they hit external services.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := schedule.New(a.logger, a.metrics)
			err := s.Add(spec, schedule.Job{Name: "refresh", Run: a.refresh})
			if err != nil {
				return err
			}

			s.Start()
			defer s.Stop()

			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "@daily", "cron spec for the refresh job")
	return cmd
}

// refresh reprocesses everything downstream of collection.
func (a *app) refresh() error {
	n := normalize.New(a.cfg.DataDir, a.cfg.NormalizedDir, a.logger, a.metrics)
	if _, err := n.Run(normalize.DefaultFiles()); err != nil {
		return err
	}

	m := merge.New(a.cfg.DataDir, a.cfg.NormalizedDir, a.logger, a.metrics)
	if _, err := m.Run(); err != nil {
		return err
	}

	e := features.New(a.logger)
	masterPath := filepath.Join(a.cfg.NormalizedDir, merge.OutputFile)
	featuresPath := filepath.Join(a.cfg.NormalizedDir, features.OutputFile)
	if err := e.Run(masterPath, featuresPath); err != nil {
		return err
	}

	trainer := model.NewTrainer(a.modelParams(), a.cfg.Model.TestMonths, a.logger)
	_, err := trainer.Run(featuresPath, a.cfg.ModelsDir)
	return err
}
