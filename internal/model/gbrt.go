// Package model trains and applies the traffic forecaster: gradient-boosted
// regression trees over the engineered feature table, grown leaf-wise with
// bagging, feature subsampling, and early stopping on a held-out tail.
package model

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
)

// Params are the boosting hyperparameters.
type Params struct {
	LearningRate    float64 `json:"learning_rate"`
	NumLeaves       int     `json:"num_leaves"`
	NumRounds       int     `json:"num_rounds"`
	FeatureFraction float64 `json:"feature_fraction"`
	BaggingFraction float64 `json:"bagging_fraction"`
	EarlyStopping   int     `json:"early_stopping"`
	MinLeafSamples  int     `json:"min_leaf_samples"`
	Seed            int64   `json:"seed"`
}

// GBRT is a trained gradient-boosted regression tree ensemble.
type GBRT struct {
	Params       Params    `json:"params"`
	BaseScore    float64   `json:"base_score"`
	Trees        []*Tree   `json:"trees"`
	FeatureNames []string  `json:"feature_names"`
	Impute       []float64 `json:"impute"` // training means, for missing values
	Importance   []float64 `json:"importance"`
	BestRound    int       `json:"best_round"`
	ValidRMSE    float64   `json:"valid_rmse"`
}

// Train fits the ensemble on (X, y) with early stopping against the
// validation split. X must already be imputed; impute carries the training
// means so Predict can fill missing values the same way.
func Train(X [][]float64, y []float64, validX [][]float64, validY []float64,
	featureNames []string, impute []float64, p Params, logger *slog.Logger) (*GBRT, error) {

	if len(X) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("rows/targets disagree: %d vs %d", len(X), len(y))
	}

	numFeatures := len(X[0])
	rng := rand.New(rand.NewSource(p.Seed))

	m := &GBRT{
		Params:       p,
		BaseScore:    mean(y),
		FeatureNames: featureNames,
		Impute:       impute,
		Importance:   make([]float64, numFeatures),
	}

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.BaseScore
	}
	validPred := make([]float64, len(validY))
	for i := range validPred {
		validPred[i] = m.BaseScore
	}

	residuals := make([]float64, len(y))
	tp := treeParams{maxLeaves: p.NumLeaves, minLeafSamples: p.MinLeafSamples}

	bestRMSE := math.Inf(1)
	bestRound := 0
	roundsSinceBest := 0

	for round := 0; round < p.NumRounds; round++ {
		for i := range y {
			residuals[i] = y[i] - pred[i]
		}

		rows := sampleRows(len(y), p.BaggingFraction, rng)
		features := sampleFeatures(numFeatures, p.FeatureFraction, rng)

		tree := growTree(X, residuals, rows, features, tp, m.Importance)
		m.Trees = append(m.Trees, tree)

		for i := range X {
			pred[i] += p.LearningRate * tree.Predict(X[i])
		}
		for i := range validX {
			validPred[i] += p.LearningRate * tree.Predict(validX[i])
		}

		if len(validY) > 0 {
			rmse := RMSE(validY, validPred)
			if rmse < bestRMSE-1e-12 {
				bestRMSE = rmse
				bestRound = round + 1
				roundsSinceBest = 0
			} else {
				roundsSinceBest++
				if p.EarlyStopping > 0 && roundsSinceBest >= p.EarlyStopping {
					logger.Info("early stopping",
						"round", round+1, "best_round", bestRound, "valid_rmse", bestRMSE)
					break
				}
			}
		}
	}

	if len(validY) > 0 && bestRound > 0 {
		m.Trees = m.Trees[:bestRound]
		m.BestRound = bestRound
		m.ValidRMSE = bestRMSE
	} else {
		m.BestRound = len(m.Trees)
	}
	logger.Info("training finished", "trees", len(m.Trees), "features", numFeatures, "rows", len(X))
	return m, nil
}

// Predict scores one sample, imputing missing (NaN) values with the
// training means.
func (m *GBRT) Predict(x []float64) float64 {
	filled := make([]float64, len(x))
	for i, v := range x {
		if math.IsNaN(v) && i < len(m.Impute) {
			v = m.Impute[i]
		}
		filled[i] = v
	}

	score := m.BaseScore
	for _, t := range m.Trees {
		score += m.Params.LearningRate * t.Predict(filled)
	}
	return score
}

// PredictAll scores a batch.
func (m *GBRT) PredictAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.Predict(x)
	}
	return out
}

// TopFeatures returns feature names ordered by accumulated split gain.
func (m *GBRT) TopFeatures(n int) []string {
	type fg struct {
		name string
		gain float64
	}
	ranked := make([]fg, 0, len(m.FeatureNames))
	for i, name := range m.FeatureNames {
		if i < len(m.Importance) {
			ranked = append(ranked, fg{name, m.Importance[i]})
		}
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].gain > ranked[j-1].gain; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].name
	}
	return out
}

// sampleRows draws fraction*n distinct row indexes.
func sampleRows(n int, fraction float64, rng *rand.Rand) []int {
	if fraction <= 0 || fraction >= 1 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	k := int(math.Ceil(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)
	return perm[:k]
}

// sampleFeatures draws fraction*n distinct feature indexes.
func sampleFeatures(n int, fraction float64, rng *rand.Rand) []int {
	if fraction <= 0 || fraction >= 1 {
		features := make([]int, n)
		for i := range features {
			features[i] = i
		}
		return features
	}
	k := int(math.Ceil(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)
	return perm[:k]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
