package dataset

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/pkg/errors"
)

// TrainTestSplit partitions a table into training and held-out subsets.
// The shuffle is driven by the given seed, so a fixed seed always
// produces an identical split.
func TrainTestSplit(tbl *Table, testFraction float64, seed int64) (train, test *Table, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("testFraction", "must be in (0, 1)", testFraction)
	}
	n := tbl.Len()
	if n < 2 {
		return nil, nil, errors.NewValueError("TrainTestSplit", "need at least 2 rows to split")
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)

	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}

	test = subset(tbl, indices[:nTest])
	train = subset(tbl, indices[nTest:])
	return train, test, nil
}

func subset(tbl *Table, indices []int) *Table {
	n := len(indices)
	cats := make([][]string, n)
	nums := mat.NewDense(n, len(NumericColumns), nil)
	target := mat.NewVecDense(n, nil)
	for i, idx := range indices {
		cats[i] = tbl.Categorical[idx]
		for j := 0; j < len(NumericColumns); j++ {
			nums.Set(i, j, tbl.Numeric.At(idx, j))
		}
		target.SetVec(i, tbl.Target.AtVec(idx))
	}
	return &Table{
		Batch:  Batch{Categorical: cats, Numeric: nums},
		Target: target,
	}
}
