package dataset

import (
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/pkg/errors"
)

// record maps one CSV row of the cleaned AutoScout24 dataset.
type record struct {
	Make       string  `csv:"make"`
	Model      string  `csv:"model"`
	Fuel       string  `csv:"fuel"`
	Gear       string  `csv:"gear"`
	OfferType  string  `csv:"offerType"`
	MileageLog float64 `csv:"mileage_log"`
	HP         float64 `csv:"hp"`
	Age        float64 `csv:"age"`
	PriceLog   float64 `csv:"price_log"`
}

// LoadCSV reads a labeled dataset from a CSV file with a header row.
// A header missing any schema column is an error, not a zero-filled
// column.
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open dataset")
	}
	defer file.Close()

	var rows []*record
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to parse dataset")
	}
	if len(rows) == 0 {
		return nil, errors.NewValueError("LoadCSV", "dataset has no rows")
	}

	cats := make([][]string, len(rows))
	nums := mat.NewDense(len(rows), len(NumericColumns), nil)
	target := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		cats[i] = []string{r.Make, r.Model, r.Fuel, r.Gear, r.OfferType}
		nums.Set(i, 0, r.MileageLog)
		nums.Set(i, 1, r.HP)
		nums.Set(i, 2, r.Age)
		target.SetVec(i, r.PriceLog)
	}

	return &Table{
		Batch:  Batch{Categorical: cats, Numeric: nums},
		Target: target,
	}, nil
}

func init() {
	// A schema column absent from the CSV header must fail at load time.
	gocsv.FailIfUnmatchedStructTags = true
}
