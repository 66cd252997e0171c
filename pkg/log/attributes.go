// Standard attribute keys used across training and serving logs.
// Hierarchical names keep log analysis and filtering consistent.

package log

const (
	// ComponentKey identifies which package emitted the record.
	// Examples: "boosting.trainer", "server", "pipeline"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "load", "save"
	OperationKey = "ml.operation"

	// SamplesKey is the number of rows in the data being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// DurationMsKey records the execution time of an operation in
	// milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records a loss or error metric value.
	LossKey = "metrics.loss"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"
)
