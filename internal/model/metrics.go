package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Evaluation summarizes model quality on one split.
type Evaluation struct {
	RMSE        float64 `json:"rmse"`
	MAE         float64 `json:"mae"`
	R2          float64 `json:"r2"`
	Correlation float64 `json:"correlation"`
	Rows        int     `json:"rows"`
}

// Evaluate computes all quality metrics for predictions against truth.
func Evaluate(truth, pred []float64) Evaluation {
	return Evaluation{
		RMSE:        RMSE(truth, pred),
		MAE:         MAE(truth, pred),
		R2:          R2(truth, pred),
		Correlation: stat.Correlation(truth, pred, nil),
		Rows:        len(truth),
	}
}

// FeatureCorrelation pairs a feature with its Pearson correlation against the
// target.
type FeatureCorrelation struct {
	Feature string
	R       float64
}

// Correlations computes each feature's Pearson correlation with the target,
// over rows where the feature is present, strongest association first.
// Features with fewer than three valid pairs or no variance are dropped.
func Correlations(m *Matrix) []FeatureCorrelation {
	out := make([]FeatureCorrelation, 0, len(m.FeatureNames))
	for j, name := range m.FeatureNames {
		xs := make([]float64, 0, len(m.X))
		ys := make([]float64, 0, len(m.X))
		for i, row := range m.X {
			if !math.IsNaN(row[j]) {
				xs = append(xs, row[j])
				ys = append(ys, m.Y[i])
			}
		}
		if len(xs) < 3 {
			continue
		}
		r := stat.Correlation(xs, ys, nil)
		if math.IsNaN(r) {
			continue
		}
		out = append(out, FeatureCorrelation{Feature: name, R: r})
	}
	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i].R) > math.Abs(out[j].R)
	})
	return out
}

// RMSE is the root mean squared error.
func RMSE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	var sum float64
	for i := range truth {
		d := truth[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth)))
}

// MAE is the mean absolute error.
func MAE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	var sum float64
	for i := range truth {
		sum += math.Abs(truth[i] - pred[i])
	}
	return sum / float64(len(truth))
}

// R2 is the coefficient of determination against the mean predictor.
func R2(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	m := stat.Mean(truth, nil)
	var ssRes, ssTot float64
	for i := range truth {
		d := truth[i] - pred[i]
		ssRes += d * d
		t := truth[i] - m
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
