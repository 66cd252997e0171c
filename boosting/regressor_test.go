package boosting

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	carerrors "github.com/mohsenim/carprice/pkg/errors"
)

// syntheticData builds n rows of a noisy piecewise target that a tree
// ensemble can fit but a constant cannot.
func syntheticData(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 5
		target := 3*x0 - 2*x1
		if x0 > 5 {
			target += 10
		}
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, target+rng.NormFloat64()*0.1)
	}
	return X, y
}

func mse(pred mat.Matrix, y *mat.Dense) float64 {
	rows, _ := y.Dims()
	var sum float64
	for i := 0; i < rows; i++ {
		diff := pred.At(i, 0) - y.At(i, 0)
		sum += diff * diff
	}
	return sum / float64(rows)
}

func TestRegressorFitPredict(t *testing.T) {
	X, y := syntheticData(400, 1)

	reg := NewRegressor().
		WithNumIterations(50).
		WithMaxDepth(4).
		WithMinChildSamples(5)
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.IsFitted())
	require.NotNil(t, reg.Model)
	assert.Equal(t, 50, len(reg.Model.Trees))
	assert.Equal(t, 2, reg.Model.NumFeatures)

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	rows, cols := pred.Dims()
	assert.Equal(t, 400, rows)
	assert.Equal(t, 1, cols)

	// The ensemble must beat the constant mean predictor by a wide margin.
	var mean float64
	for i := 0; i < 400; i++ {
		mean += y.At(i, 0)
	}
	mean /= 400
	var baseline float64
	for i := 0; i < 400; i++ {
		diff := y.At(i, 0) - mean
		baseline += diff * diff
	}
	baseline /= 400

	assert.Less(t, mse(pred, y), baseline*0.1)
}

func TestRegressorSubsampleDeterminism(t *testing.T) {
	X, y := syntheticData(300, 2)

	fit := func(seed int64) mat.Matrix {
		reg := NewRegressor().
			WithNumIterations(20).
			WithMaxDepth(8).
			WithSubsample(0.7).
			WithMinChildSamples(5).
			WithRandomState(seed)
		require.NoError(t, reg.Fit(X, y))
		pred, err := reg.Predict(X)
		require.NoError(t, err)
		return pred
	}

	pred1 := fit(37)
	pred2 := fit(37)
	for i := 0; i < 300; i++ {
		assert.Equal(t, pred1.At(i, 0), pred2.At(i, 0))
	}
}

func TestRegressorMaxDepth(t *testing.T) {
	X, y := syntheticData(200, 3)

	reg := NewRegressor().
		WithNumIterations(10).
		WithMaxDepth(1).
		WithMinChildSamples(5)
	require.NoError(t, reg.Fit(X, y))

	// A depth-1 tree is a single split, at most two leaves.
	for _, tree := range reg.Model.Trees {
		assert.LessOrEqual(t, tree.NumLeaves, 2)
	}
}

func TestRegressorNotFitted(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := NewRegressor().Predict(X)
	require.Error(t, err)

	var notFitted *carerrors.NotFittedError
	assert.ErrorAs(t, err, &notFitted)
}

func TestRegressorDimensionMismatch(t *testing.T) {
	X := mat.NewDense(4, 2, nil)
	y := mat.NewDense(3, 1, nil)

	err := NewRegressor().Fit(X, y)
	require.Error(t, err)

	var dimErr *carerrors.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestRegressorScore(t *testing.T) {
	X, y := syntheticData(300, 4)

	reg := NewRegressor().
		WithNumIterations(50).
		WithMaxDepth(4).
		WithMinChildSamples(5)
	require.NoError(t, reg.Fit(X, y))

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
}

func TestTrainerEmptyData(t *testing.T) {
	trainer := NewTrainer(TrainingParams{})
	err := trainer.Fit(&mat.Dense{}, &mat.Dense{})
	require.Error(t, err)
	assert.True(t, carerrors.Is(err, carerrors.ErrEmptyData))
}

func TestTrainerInvalidSubsample(t *testing.T) {
	X, y := syntheticData(50, 5)
	trainer := NewTrainer(TrainingParams{Subsample: 1.5})
	err := trainer.Fit(X, y)
	require.Error(t, err)

	var validationErr *carerrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestModelPredictRow(t *testing.T) {
	model := &Model{
		NumFeatures: 1,
		InitScore:   2.0,
		Trees: []Tree{
			{
				Nodes: []Node{
					{SplitFeature: 0, Threshold: 5, LeftChild: 1, RightChild: 2},
					{LeftChild: -1, RightChild: -1, LeafValue: -1.0},
					{LeftChild: -1, RightChild: -1, LeafValue: 1.0},
				},
				NumLeaves: 2,
			},
		},
	}

	assert.InDelta(t, 1.0, model.PredictRow([]float64{3}), 1e-12)
	assert.InDelta(t, 3.0, model.PredictRow([]float64{7}), 1e-12)
}

func TestModelPredictDimensionMismatch(t *testing.T) {
	model := &Model{NumFeatures: 3}
	X := mat.NewDense(2, 2, nil)

	_, err := model.Predict(X)
	require.Error(t, err)
}

func TestTrainerConstantTarget(t *testing.T) {
	X := mat.NewDense(60, 1, nil)
	y := mat.NewDense(60, 1, nil)
	for i := 0; i < 60; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 7.5)
	}

	reg := NewRegressor().WithNumIterations(5).WithMinChildSamples(5)
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 60; i++ {
		assert.True(t, math.Abs(pred.At(i, 0)-7.5) < 1e-9)
	}
}
