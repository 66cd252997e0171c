// Package pipeline composes the ordinal encoder and the boosting
// regressor into a single fitted artifact shared by the trainer and the
// prediction service.
package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/boosting"
	"github.com/mohsenim/carprice/core/model"
	"github.com/mohsenim/carprice/dataset"
	"github.com/mohsenim/carprice/pkg/errors"
	"github.com/mohsenim/carprice/preprocessing"
)

// Pipeline encodes the categorical columns of a batch, passes the
// numeric columns through unchanged, and feeds the combined matrix
// (encoded categoricals first, numerics after) into the regressor.
type Pipeline struct {
	Encoder   *preprocessing.OrdinalEncoder
	Regressor *boosting.Regressor
}

// New builds a pipeline from an explicitly constructed encoder and
// regressor.
func New(encoder *preprocessing.OrdinalEncoder, regressor *boosting.Regressor) *Pipeline {
	return &Pipeline{Encoder: encoder, Regressor: regressor}
}

// Fit fits the encoder on the batch's categorical columns, then trains
// the regressor on the combined feature matrix against y.
func (p *Pipeline) Fit(b dataset.Batch, y *mat.VecDense) error {
	if err := b.Validate(); err != nil {
		return err
	}
	n := b.Len()
	if n == 0 {
		return errors.NewModelError("Pipeline.Fit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("Pipeline.Fit", n, y.Len(), 0)
	}

	encoded, err := p.Encoder.FitTransform(b.Categorical)
	if err != nil {
		return err
	}

	X := p.assemble(encoded, b.Numeric)
	target := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		target.Set(i, 0, y.AtVec(i))
	}

	return p.Regressor.Fit(X, target)
}

// Predict returns one prediction per batch row, in row order. An empty
// batch yields an empty slice.
func (p *Pipeline) Predict(b dataset.Batch) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	n := b.Len()
	if n == 0 {
		return []float64{}, nil
	}

	encoded, err := p.Encoder.Transform(b.Categorical)
	if err != nil {
		return nil, err
	}

	predictions, err := p.Regressor.Predict(p.assemble(encoded, b.Numeric))
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = predictions.At(i, 0)
	}
	return out, nil
}

// assemble concatenates encoded categorical columns and numeric columns
// into the regressor's feature matrix.
func (p *Pipeline) assemble(encoded, numeric *mat.Dense) *mat.Dense {
	n, catCols := encoded.Dims()
	_, numCols := numeric.Dims()

	X := mat.NewDense(n, catCols+numCols, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < catCols; j++ {
			X.Set(i, j, encoded.At(i, j))
		}
		for j := 0; j < numCols; j++ {
			X.Set(i, catCols+j, numeric.At(i, j))
		}
	}
	return X
}

// Save serializes the fitted pipeline to path.
func (p *Pipeline) Save(path string) error {
	return model.SaveModel(p, path)
}

// Load deserializes a fitted pipeline from path and verifies that it is
// internally consistent with the feature schema.
func Load(path string) (*Pipeline, error) {
	var p Pipeline
	if err := model.LoadModel(&p, path); err != nil {
		return nil, err
	}

	if p.Encoder == nil || p.Regressor == nil || p.Regressor.Model == nil ||
		!p.Encoder.IsFitted() || !p.Regressor.IsFitted() {
		return nil, errors.NewModelError("pipeline.Load", "artifact is missing fitted components", nil)
	}
	want := p.Encoder.NumColumns() + len(dataset.NumericColumns)
	if p.Regressor.Model.NumFeatures != want {
		return nil, errors.NewDimensionError("pipeline.Load", want, p.Regressor.Model.NumFeatures, 1)
	}
	if p.Encoder.NumColumns() != len(dataset.CategoricalColumns) {
		return nil, errors.NewDimensionError("pipeline.Load", len(dataset.CategoricalColumns), p.Encoder.NumColumns(), 1)
	}

	return &p, nil
}
