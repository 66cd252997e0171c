// Package dataset defines the tabular schema shared by the trainer and
// the prediction service, and loads the training data from CSV.
//
// The column set and order declared here is the single source of truth:
// the encoder baked into a saved pipeline and the service's input
// validation both derive from these lists.
package dataset

// Categorical feature columns, encoded to ordinal codes before training.
var CategoricalColumns = []string{"make", "model", "fuel", "gear", "offerType"}

// Numeric feature columns, passed through unchanged. mileage_log is the
// natural logarithm of mileage, applied upstream during data cleaning.
var NumericColumns = []string{"mileage_log", "hp", "age"}

// TargetColumn is the regression target: the natural logarithm of the
// sale price. Predictions stay in this log space.
const TargetColumn = "price_log"

// FeatureColumns returns all input columns in schema order,
// categorical first.
func FeatureColumns() []string {
	cols := make([]string, 0, len(CategoricalColumns)+len(NumericColumns))
	cols = append(cols, CategoricalColumns...)
	cols = append(cols, NumericColumns...)
	return cols
}

// NumFeatures is the width of the feature schema.
func NumFeatures() int {
	return len(CategoricalColumns) + len(NumericColumns)
}
