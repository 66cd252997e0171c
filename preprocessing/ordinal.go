// Package preprocessing implements feature transformers fitted on
// training data and reapplied at prediction time.
package preprocessing

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/core/model"
	"github.com/mohsenim/carprice/pkg/errors"
)

// Unknown-category policies for OrdinalEncoder.
const (
	// HandleUnknownError rejects categories not seen during Fit.
	HandleUnknownError = "error"
	// HandleUnknownUseEncodedValue maps unseen categories to UnknownValue.
	HandleUnknownUseEncodedValue = "use_encoded_value"
)

// OrdinalEncoder maps each distinct category value to an integer code.
// Codes are assigned per column in lexicographic order at fit time and
// never change afterwards.
type OrdinalEncoder struct {
	model.BaseEstimator

	// Categories holds, for each column, the sorted category values seen
	// during Fit. The code of a value is its index in this slice.
	Categories [][]string

	// HandleUnknown selects the policy for categories unseen during Fit.
	HandleUnknown string

	// UnknownValue is the code used for unseen categories when
	// HandleUnknown is HandleUnknownUseEncodedValue.
	UnknownValue float64

	// code lookup per column, built by Fit and rebuilt by GobDecode.
	// Never written on the Transform path.
	mapping []map[string]float64
}

// NewOrdinalEncoder creates an OrdinalEncoder that rejects unknown
// categories at transform time.
func NewOrdinalEncoder() *OrdinalEncoder {
	return &OrdinalEncoder{
		HandleUnknown: HandleUnknownError,
		UnknownValue:  -1,
	}
}

// WithHandleUnknown sets the unknown-category policy.
func (e *OrdinalEncoder) WithHandleUnknown(policy string, unknownValue float64) *OrdinalEncoder {
	e.HandleUnknown = policy
	e.UnknownValue = unknownValue
	return e
}

// Fit learns the category set of each column from X.
func (e *OrdinalEncoder) Fit(X [][]string) error {
	if len(X) == 0 {
		return errors.NewModelError("OrdinalEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	if e.HandleUnknown != HandleUnknownError && e.HandleUnknown != HandleUnknownUseEncodedValue {
		return errors.NewValidationError("HandleUnknown", "unsupported policy", e.HandleUnknown)
	}

	nCols := len(X[0])
	for _, row := range X {
		if len(row) != nCols {
			return errors.NewDimensionError("OrdinalEncoder.Fit", nCols, len(row), 1)
		}
	}

	e.Categories = make([][]string, nCols)
	for j := 0; j < nCols; j++ {
		seen := make(map[string]struct{})
		for _, row := range X {
			seen[row[j]] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		e.Categories[j] = values
	}

	e.buildMapping()
	e.SetFitted()
	return nil
}

// Transform encodes X using the categories learned during Fit and
// returns one float column of codes per input column. It does not
// mutate the encoder, so a fitted encoder may be shared across
// goroutines.
func (e *OrdinalEncoder) Transform(X [][]string) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OrdinalEncoder", "Transform")
	}

	nCols := len(e.Categories)
	if len(X) == 0 {
		return nil, errors.NewModelError("OrdinalEncoder.Transform", "empty data", errors.ErrEmptyData)
	}
	for _, row := range X {
		if len(row) != nCols {
			return nil, errors.NewDimensionError("OrdinalEncoder.Transform", nCols, len(row), 1)
		}
	}

	result := mat.NewDense(len(X), nCols, nil)
	for i, row := range X {
		for j, value := range row {
			code, ok := e.mapping[j][value]
			if !ok {
				if e.HandleUnknown == HandleUnknownUseEncodedValue {
					code = e.UnknownValue
				} else {
					return nil, errors.NewValueError("OrdinalEncoder.Transform",
						fmt.Sprintf("unknown category %q in column %d", value, j))
				}
			}
			result.Set(i, j, code)
		}
	}

	return result, nil
}

// FitTransform fits the encoder and transforms the same data.
func (e *OrdinalEncoder) FitTransform(X [][]string) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// NumColumns returns the number of columns the encoder was fitted with.
func (e *OrdinalEncoder) NumColumns() int {
	return len(e.Categories)
}

func (e *OrdinalEncoder) buildMapping() {
	e.mapping = make([]map[string]float64, len(e.Categories))
	for j, values := range e.Categories {
		m := make(map[string]float64, len(values))
		for code, v := range values {
			m[v] = float64(code)
		}
		e.mapping[j] = m
	}
}

// GobEncode serializes the encoder through its exported fields.
func (e OrdinalEncoder) GobEncode() ([]byte, error) {
	type plain OrdinalEncoder
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(plain(e)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores the encoder and rebuilds the code lookup, so a
// decoded encoder transforms without further initialization.
func (e *OrdinalEncoder) GobDecode(data []byte) error {
	type plain OrdinalEncoder
	var p plain
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return err
	}
	*e = OrdinalEncoder(p)
	if e.IsFitted() {
		e.buildMapping()
	}
	return nil
}

// String returns a short description of the encoder.
func (e *OrdinalEncoder) String() string {
	if !e.IsFitted() {
		return fmt.Sprintf("OrdinalEncoder(handle_unknown=%s)", e.HandleUnknown)
	}
	return fmt.Sprintf("OrdinalEncoder(handle_unknown=%s, n_columns=%d)", e.HandleUnknown, len(e.Categories))
}
