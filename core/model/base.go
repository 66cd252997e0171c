// Package model defines the estimator contracts shared by the
// preprocessing, boosting and pipeline packages.
package model

// EstimatorState tracks whether an estimator has been fitted.
type EstimatorState int

const (
	// NotFitted marks an estimator that has not been trained yet.
	NotFitted EstimatorState = iota
	// Fitted marks a trained estimator.
	Fitted
)

// BaseEstimator is embedded by every estimator to carry fitted state.
// The field is exported so the state survives gob serialization; gob
// cannot encode a struct whose fields are all unexported, and custom
// gob methods here would be promoted onto embedding estimators and
// shadow their own field encoding.
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted reports whether the estimator has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial, unfitted state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
