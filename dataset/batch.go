package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/pkg/errors"
)

// Batch is a tabular batch of feature rows: categorical columns as
// strings, numeric columns as a dense matrix. Row i of Categorical and
// row i of Numeric describe the same record.
type Batch struct {
	Categorical [][]string
	Numeric     *mat.Dense
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int {
	return len(b.Categorical)
}

// Validate checks that the batch matches the feature schema: consistent
// row counts and the declared categorical/numeric widths.
func (b Batch) Validate() error {
	n := len(b.Categorical)
	for _, row := range b.Categorical {
		if len(row) != len(CategoricalColumns) {
			return errors.NewDimensionError("Batch.Validate", len(CategoricalColumns), len(row), 1)
		}
	}
	if n == 0 {
		if b.Numeric != nil {
			r, _ := b.Numeric.Dims()
			if r != 0 {
				return errors.NewDimensionError("Batch.Validate", 0, r, 0)
			}
		}
		return nil
	}
	if b.Numeric == nil {
		return errors.NewValueError("Batch.Validate", "numeric columns missing")
	}
	r, c := b.Numeric.Dims()
	if r != n {
		return errors.NewDimensionError("Batch.Validate", n, r, 0)
	}
	if c != len(NumericColumns) {
		return errors.NewDimensionError("Batch.Validate", len(NumericColumns), c, 1)
	}
	return nil
}

// Table is a labeled dataset: a feature batch plus the target vector.
type Table struct {
	Batch
	Target *mat.VecDense
}
