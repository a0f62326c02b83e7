package model

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
)

// ArtifactFile is the stored model name under the models directory.
const ArtifactFile = "traffic_gbrt.json"

// PredictionsFile is the scored-rows export consumed by the dashboard.
const PredictionsFile = "predictions.csv"

// Trainer runs the full training workflow over a feature table.
type Trainer struct {
	params     Params
	testMonths int
	logger     *slog.Logger
}

// NewTrainer builds a trainer with the configured hyperparameters.
func NewTrainer(params Params, testMonths int, logger *slog.Logger) *Trainer {
	return &Trainer{params: params, testMonths: testMonths, logger: logger}
}

// Run trains on the feature table at tablePath, evaluates on the held-out
// tail, and stores the artifact plus test predictions under modelsDir.
func (t *Trainer) Run(tablePath, modelsDir string) (*Artifact, error) {
	matrix, err := LoadMatrix(tablePath)
	if err != nil {
		return nil, err
	}
	t.logger.Info("feature table loaded", "rows", len(matrix.X), "features", len(matrix.FeatureNames))

	for i, fc := range Correlations(matrix) {
		if i >= 10 {
			break
		}
		t.logger.Info("feature correlation", "feature", fc.Feature, "r", fmt.Sprintf("%.3f", fc.R))
	}

	train, test, err := matrix.SplitByDate(t.testMonths)
	if err != nil {
		return nil, err
	}
	means := train.ImputeMeans()
	test.ApplyImpute(means)
	t.logger.Info("time split", "train_rows", len(train.X), "test_rows", len(test.X), "test_months", t.testMonths)

	m, err := Train(train.X, train.Y, test.X, test.Y, matrix.FeatureNames, means, t.params, t.logger)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Model:      m,
		Train:      Evaluate(train.Y, m.PredictAll(train.X)),
		Test:       Evaluate(test.Y, m.PredictAll(test.X)),
		TrainedAt:  domain.Clock().Now().UTC().Format(time.RFC3339),
		TopFeature: m.TopFeatures(15),
	}
	t.logger.Info("model evaluated",
		"test_rmse", artifact.Test.RMSE, "test_mae", artifact.Test.MAE,
		"test_r2", artifact.Test.R2, "test_corr", artifact.Test.Correlation)

	if err := artifact.Save(filepath.Join(modelsDir, ArtifactFile)); err != nil {
		return nil, err
	}
	if err := writePredictions(filepath.Join(modelsDir, PredictionsFile), test, m); err != nil {
		return nil, err
	}
	return artifact, nil
}

// writePredictions exports the held-out rows with their scores.
func writePredictions(path string, test *Matrix, m *GBRT) error {
	preds := m.PredictAll(test.X)

	rows := [][]string{{"destination", "province", "region", "date", "traffic", "predicted_traffic", "predicted_change_pct"}}
	for i := range test.X {
		change := 0.0
		if test.Y[i] != 0 {
			change = (preds[i] - test.Y[i]) / test.Y[i] * 100
		}
		rows = append(rows, []string{
			test.Destinations[i],
			test.Provinces[i],
			test.Regions[i],
			test.Dates[i],
			strconv.FormatFloat(test.Y[i], 'f', 2, 64),
			strconv.FormatFloat(preds[i], 'f', 2, 64),
			strconv.FormatFloat(change, 'f', 1, 64),
		})
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}

// ReadPredictions loads a predictions export, newest rows as written.
func ReadPredictions(path string) ([]domain.Prediction, error) {
	rows, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("predictions file %s is empty", path)
	}

	header := rows[0]
	col := func(name string) int { return csvio.Column(header, name) }
	destCol, provCol, regionCol := col("destination"), col("province"), col("region")
	trafficCol, predCol, changeCol := col("traffic"), col("predicted_traffic"), col("predicted_change_pct")
	if destCol < 0 || trafficCol < 0 || predCol < 0 {
		return nil, fmt.Errorf("predictions file %s misses required columns", path)
	}

	out := make([]domain.Prediction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		p := domain.Prediction{
			Destination:      cellAt(row, destCol),
			Province:         cellAt(row, provCol),
			Region:           cellAt(row, regionCol),
			Traffic:          parseOrZero(cellAt(row, trafficCol)),
			PredictedTraffic: parseOrZero(cellAt(row, predCol)),
			PredictedChange:  parseOrZero(cellAt(row, changeCol)),
		}
		out = append(out, p)
	}
	return out, nil
}

func parseOrZero(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
