package server

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/dataset"
	"github.com/mohsenim/carprice/pkg/errors"
)

// parseBatch decodes a JSON array of records and validates each record
// against the configured column set before anything reaches the model.
// Records must carry exactly the declared columns: categoricals as
// strings, numerics as numbers.
func parseBatch(body io.Reader, columns []string) (dataset.Batch, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var records []map[string]interface{}
	if err := dec.Decode(&records); err != nil {
		return dataset.Batch{}, errors.NewSchemaError(-1, nil, nil,
			"request body must be a JSON array of records")
	}

	n := len(records)
	cats := make([][]string, 0, n)
	nums := make([]float64, 0, n*len(dataset.NumericColumns))

	for i, record := range records {
		if missing, extra := diffColumns(record, columns); len(missing) > 0 || len(extra) > 0 {
			return dataset.Batch{}, errors.NewSchemaError(i, missing, extra, "")
		}

		catRow := make([]string, len(dataset.CategoricalColumns))
		for j, col := range dataset.CategoricalColumns {
			s, ok := record[col].(string)
			if !ok {
				return dataset.Batch{}, errors.NewSchemaError(i, nil, nil,
					fmt.Sprintf("column %q must be a string", col))
			}
			catRow[j] = s
		}
		cats = append(cats, catRow)

		for _, col := range dataset.NumericColumns {
			num, ok := record[col].(json.Number)
			if !ok {
				return dataset.Batch{}, errors.NewSchemaError(i, nil, nil,
					fmt.Sprintf("column %q must be a number", col))
			}
			v, err := num.Float64()
			if err != nil {
				return dataset.Batch{}, errors.NewSchemaError(i, nil, nil,
					fmt.Sprintf("column %q must be a number", col))
			}
			nums = append(nums, v)
		}
	}

	batch := dataset.Batch{Categorical: cats}
	if n > 0 {
		batch.Numeric = mat.NewDense(n, len(dataset.NumericColumns), nums)
	}
	return batch, nil
}

// diffColumns compares a record's keys with the declared column set.
func diffColumns(record map[string]interface{}, columns []string) (missing, extra []string) {
	for _, col := range columns {
		if _, ok := record[col]; !ok {
			missing = append(missing, col)
		}
	}

	schema := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		schema[col] = struct{}{}
	}
	for key := range record {
		if _, ok := schema[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return missing, extra
}
