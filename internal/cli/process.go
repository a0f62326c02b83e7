package cli

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vietdata/tourism-pipeline/internal/features"
	"github.com/vietdata/tourism-pipeline/internal/merge"
	"github.com/vietdata/tourism-pipeline/internal/model"
	"github.com/vietdata/tourism-pipeline/internal/normalize"
)

func (a *app) normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Rewrite collected CSVs with canonical province names",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("normalize", func() error {
				n := normalize.New(a.cfg.DataDir, a.cfg.NormalizedDir, a.logger, a.metrics)
				_, err := n.Run(normalize.DefaultFiles())
				return err
			})
		},
	}
}

func (a *app) mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Join the normalized datasets into the modeling table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("merge", func() error {
				m := merge.New(a.cfg.DataDir, a.cfg.NormalizedDir, a.logger, a.metrics)
				_, err := m.Run()
				return err
			})
		},
	}
}

func (a *app) featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Derive the modeling features from the merged table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("features", func() error {
				e := features.New(a.logger)
				return e.Run(
					filepath.Join(a.cfg.NormalizedDir, merge.OutputFile),
					filepath.Join(a.cfg.NormalizedDir, features.OutputFile),
				)
			})
		},
	}
}

func (a *app) trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the traffic forecaster on the feature table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("train", func() error {
				trainer := model.NewTrainer(a.modelParams(), a.cfg.Model.TestMonths, a.logger)
				artifact, err := trainer.Run(
					filepath.Join(a.cfg.NormalizedDir, features.OutputFile),
					a.cfg.ModelsDir,
				)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"trained %d trees  test RMSE %.3f  MAE %.3f  R² %.3f  corr %.3f\n",
					len(artifact.Model.Trees),
					artifact.Test.RMSE, artifact.Test.MAE, artifact.Test.R2, artifact.Test.Correlation)
				return nil
			})
		},
	}
}

func (a *app) predictCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Show the stored model's held-out predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := model.LoadArtifact(filepath.Join(a.cfg.ModelsDir, model.ArtifactFile))
			if err != nil {
				return err
			}
			preds, err := model.ReadPredictions(filepath.Join(a.cfg.ModelsDir, model.PredictionsFile))
			if err != nil {
				return err
			}
			sort.Slice(preds, func(i, j int) bool {
				return preds[i].PredictedChange > preds[j].PredictedChange
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model trained %s  test RMSE %.3f  R² %.3f\n\n",
				artifact.TrainedAt, artifact.Test.RMSE, artifact.Test.R2)
			fmt.Fprintf(out, "%-40s %-20s %10s %10s %8s\n",
				"destination", "province", "traffic", "predicted", "change%")
			for i, p := range preds {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(out, "%-40s %-20s %10.1f %10.1f %8.1f\n",
					p.Destination, p.Province, p.Traffic, p.PredictedTraffic, p.PredictedChange)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "rows to print")
	return cmd
}

func (a *app) modelParams() model.Params {
	return model.Params{
		LearningRate:    a.cfg.Model.LearningRate,
		NumLeaves:       a.cfg.Model.NumLeaves,
		NumRounds:       a.cfg.Model.NumRounds,
		FeatureFraction: a.cfg.Model.FeatureFraction,
		BaggingFraction: a.cfg.Model.BaggingFraction,
		EarlyStopping:   a.cfg.Model.EarlyStopping,
		MinLeafSamples:  a.cfg.Model.MinLeafSamples,
		Seed:            a.cfg.Model.Seed,
	}
}
