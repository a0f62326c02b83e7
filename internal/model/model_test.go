package model

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGrowTreeFitsStepFunction(t *testing.T) {
	// y = 1 when x > 0.5, else 0.
	X := make([][]float64, 100)
	y := make([]float64, 100)
	rows := make([]int, 100)
	for i := range X {
		v := float64(i) / 100
		X[i] = []float64{v}
		if v > 0.5 {
			y[i] = 1
		}
		rows[i] = i
	}

	tree := growTree(X, y, rows, []int{0}, treeParams{maxLeaves: 4, minLeafSamples: 5}, nil)
	assert.InDelta(t, 0, tree.Predict([]float64{0.2}), 1e-9)
	assert.InDelta(t, 1, tree.Predict([]float64{0.9}), 1e-9)
}

func TestGrowTreeRespectsLeafBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	X := make([][]float64, 200)
	y := make([]float64, 200)
	rows := make([]int, 200)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64()}
		y[i] = rng.Float64()
		rows[i] = i
	}

	tree := growTree(X, y, rows, []int{0, 1}, treeParams{maxLeaves: 8, minLeafSamples: 2}, nil)
	leaves := 0
	for _, n := range tree.Nodes {
		if n.Leaf {
			leaves++
		}
	}
	assert.LessOrEqual(t, leaves, 8)
	assert.Greater(t, leaves, 1)
}

func TestGrowTreeConstantTargetStaysSingleLeaf(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{5, 5, 5, 5}
	tree := growTree(X, y, []int{0, 1, 2, 3}, []int{0}, treeParams{maxLeaves: 8, minLeafSamples: 1}, nil)
	require.Len(t, tree.Nodes, 1)
	assert.InDelta(t, 5, tree.Predict([]float64{2.5}), 1e-9)
}

func defaultParams() Params {
	return Params{
		LearningRate:    0.1,
		NumLeaves:       15,
		NumRounds:       100,
		FeatureFraction: 1.0,
		BaggingFraction: 1.0,
		EarlyStopping:   20,
		MinLeafSamples:  3,
		Seed:            42,
	}
}

// synthetic builds a learnable dataset: y = 3*x0 + noise.
func synthetic(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() // irrelevant
		X[i] = []float64{x0, x1}
		y[i] = 3*x0 + rng.NormFloat64()*0.1
	}
	return X, y
}

func TestTrainLearnsSignal(t *testing.T) {
	X, y := synthetic(400, 1)
	validX, validY := synthetic(100, 2)

	m, err := Train(X, y, validX, validY, []string{"x0", "noise"}, []float64{0, 0}, defaultParams(), testLogger())
	require.NoError(t, err)
	require.NotEmpty(t, m.Trees)

	eval := Evaluate(validY, m.PredictAll(validX))
	assert.Greater(t, eval.R2, 0.95)
	assert.Less(t, eval.RMSE, 2.0)

	// The informative feature dominates the gain ranking.
	top := m.TopFeatures(2)
	require.NotEmpty(t, top)
	assert.Equal(t, "x0", top[0])
}

func TestTrainIsDeterministicPerSeed(t *testing.T) {
	X, y := synthetic(200, 3)
	validX, validY := synthetic(50, 4)

	p := defaultParams()
	p.BaggingFraction = 0.8
	p.FeatureFraction = 0.5

	m1, err := Train(X, y, validX, validY, []string{"x0", "noise"}, nil, p, testLogger())
	require.NoError(t, err)
	m2, err := Train(X, y, validX, validY, []string{"x0", "noise"}, nil, p, testLogger())
	require.NoError(t, err)

	assert.Equal(t, len(m1.Trees), len(m2.Trees))
	probe := []float64{5, 0.5}
	assert.Equal(t, m1.Predict(probe), m2.Predict(probe))
}

func TestTrainEarlyStopping(t *testing.T) {
	// Pure noise: validation stops improving almost immediately.
	rng := rand.New(rand.NewSource(5))
	X := make([][]float64, 100)
	y := make([]float64, 100)
	for i := range X {
		X[i] = []float64{rng.Float64()}
		y[i] = rng.Float64()
	}
	validX := make([][]float64, 50)
	validY := make([]float64, 50)
	for i := range validX {
		validX[i] = []float64{rng.Float64()}
		validY[i] = rng.Float64()
	}

	p := defaultParams()
	p.NumRounds = 500
	p.EarlyStopping = 10

	m, err := Train(X, y, validX, validY, []string{"x"}, nil, p, testLogger())
	require.NoError(t, err)
	assert.Less(t, len(m.Trees), 500)
	assert.Equal(t, m.BestRound, len(m.Trees))
}

func TestTrainNoRows(t *testing.T) {
	_, err := Train(nil, nil, nil, nil, nil, nil, defaultParams(), testLogger())
	assert.Error(t, err)
}

func TestPredictImputesMissing(t *testing.T) {
	X, y := synthetic(200, 6)
	m, err := Train(X, y, nil, nil, []string{"x0", "noise"}, []float64{5, 0.5}, defaultParams(), testLogger())
	require.NoError(t, err)

	withValue := m.Predict([]float64{5, 0.5})
	withNaN := m.Predict([]float64{math.NaN(), 0.5})
	assert.Equal(t, withValue, withNaN)
}

func TestEvaluateMetrics(t *testing.T) {
	truth := []float64{1, 2, 3, 4}
	perfect := Evaluate(truth, []float64{1, 2, 3, 4})
	assert.Zero(t, perfect.RMSE)
	assert.Zero(t, perfect.MAE)
	assert.InDelta(t, 1.0, perfect.R2, 1e-9)
	assert.InDelta(t, 1.0, perfect.Correlation, 1e-9)

	off := Evaluate(truth, []float64{2, 3, 4, 5})
	assert.InDelta(t, 1.0, off.RMSE, 1e-9)
	assert.InDelta(t, 1.0, off.MAE, 1e-9)
	assert.InDelta(t, 1.0, off.Correlation, 1e-9)
	assert.Less(t, off.R2, 1.0)
}

func TestCorrelations(t *testing.T) {
	m := &Matrix{
		FeatureNames: []string{"up", "down", "flat", "sparse"},
		X: [][]float64{
			{1, 4, 7, math.NaN()},
			{2, 3, 7, math.NaN()},
			{3, 2, 7, 1},
			{4, 2, 7, math.NaN()},
		},
		Y: []float64{10, 20, 30, 40},
	}

	corrs := Correlations(m)
	require.Len(t, corrs, 2) // flat has no variance, sparse too few pairs

	assert.Equal(t, "up", corrs[0].Feature)
	assert.InDelta(t, 1.0, corrs[0].R, 1e-9)
	assert.Equal(t, "down", corrs[1].Feature)
	assert.Less(t, corrs[1].R, -0.9)
}

func TestArtifactRoundTrip(t *testing.T) {
	X, y := synthetic(100, 7)
	m, err := Train(X, y, nil, nil, []string{"x0", "noise"}, []float64{0, 0}, defaultParams(), testLogger())
	require.NoError(t, err)

	artifact := &Artifact{
		Model: m,
		Train: Evaluate(y, m.PredictAll(X)),
	}
	path := filepath.Join(t.TempDir(), ArtifactFile)
	require.NoError(t, artifact.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Model)

	probe := []float64{3.3, 0.1}
	assert.InDelta(t, m.Predict(probe), loaded.Model.Predict(probe), 1e-12)
}

func TestLoadArtifactRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, (&Artifact{Model: &GBRT{}}).Save(path))
	_, err := LoadArtifact(path)
	assert.ErrorContains(t, err, "no trees")
}
