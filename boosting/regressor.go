package boosting

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/core/model"
	"github.com/mohsenim/carprice/metrics"
	"github.com/mohsenim/carprice/pkg/errors"
)

// Regressor is a gradient boosted trees regressor with a
// scikit-learn-shaped API.
type Regressor struct {
	model.BaseEstimator

	// Model is the fitted ensemble; exported for serialization.
	Model *Model

	NumIterations   int
	LearningRate    float64
	MaxDepth        int // <= 0 means unlimited
	MinChildSamples int
	Subsample       float64
	RegLambda       float64
	RandomState     int64
	Verbosity       int
}

// NewRegressor creates a regressor with default hyperparameters.
func NewRegressor() *Regressor {
	return &Regressor{
		NumIterations:   100,
		LearningRate:    0.1,
		MaxDepth:        -1,
		MinChildSamples: 20,
		Subsample:       1.0,
		RegLambda:       1.0,
		RandomState:     42,
	}
}

// WithMaxDepth sets the maximum tree depth.
func (r *Regressor) WithMaxDepth(d int) *Regressor {
	r.MaxDepth = d
	return r
}

// WithSubsample sets the per-iteration row sampling fraction.
func (r *Regressor) WithSubsample(fraction float64) *Regressor {
	r.Subsample = fraction
	return r
}

// WithNumIterations sets the number of boosting iterations.
func (r *Regressor) WithNumIterations(n int) *Regressor {
	r.NumIterations = n
	return r
}

// WithLearningRate sets the shrinkage rate.
func (r *Regressor) WithLearningRate(lr float64) *Regressor {
	r.LearningRate = lr
	return r
}

// WithMinChildSamples sets the minimum number of rows per leaf.
func (r *Regressor) WithMinChildSamples(n int) *Regressor {
	r.MinChildSamples = n
	return r
}

// WithRandomState sets the seed driving row subsampling.
func (r *Regressor) WithRandomState(seed int64) *Regressor {
	r.RandomState = seed
	return r
}

// Fit trains the regressor on X and the n×1 target matrix y.
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Regressor.Fit")

	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Regressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Regressor.Fit", 1, yCols, 1)
	}

	params := TrainingParams{
		NumIterations: r.NumIterations,
		LearningRate:  r.LearningRate,
		MaxDepth:      r.MaxDepth,
		MinDataInLeaf: r.MinChildSamples,
		Lambda:        r.RegLambda,
		Subsample:     r.Subsample,
		Seed:          r.RandomState,
		Verbosity:     r.Verbosity,
	}

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "training failed")
	}

	r.Model = trainer.GetModel()
	r.SetFitted()
	return nil
}

// Predict returns an n×1 matrix of predictions for X. It does not
// mutate the regressor, so a fitted regressor may be shared across
// goroutines.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regressor", "Predict")
	}
	return r.Model.Predict(X)
}

// Score returns the coefficient of determination R² on X, y.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := r.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.R2Score(yVec, predVec)
}
