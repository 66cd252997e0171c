package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that can be trained on labeled data.
type Fitter interface {
	// Fit trains the model on X with targets y.
	Fit(X, y mat.Matrix) error
}

// Predictor is a model that can predict targets for new data.
type Predictor interface {
	// Predict returns one prediction row per input row.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor combines training and prediction for regression models.
type Regressor interface {
	Fitter
	Predictor
}
