// Package log defines standard attribute keys for inference operations.
//
// Keys follow a hierarchical naming convention (e.g. "data.samples",
// "artifact.path") so that log records can be filtered consistently.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model, e.g. "lightgbm".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// ObjectiveKey records the model objective read from the artifact.
	ObjectiveKey = "model.objective"

	// TreesKey records the number of trees in an ensemble.
	TreesKey = "model.trees"
)

// Artifact context.
const (
	// ArtifactPathKey is the filesystem path of a model artifact.
	ArtifactPathKey = "artifact.path"

	// ArtifactFormatKey is the detected format: "text", "json" or "gob".
	ArtifactFormatKey = "artifact.format"

	// CacheHitKey reports whether an artifact was served from the cache.
	CacheHitKey = "artifact.cache_hit"

	// ReportPathKey is where an evaluation chart was written.
	ReportPathKey = "report.path"
)

// Data shape.
const (
	// SamplesKey indicates the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns passed to the model.
	FeaturesKey = "data.features"

	// MissingColumnsKey lists required columns absent from the dataset.
	MissingColumnsKey = "data.missing_columns"
)

// Performance and evaluation.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// ThreadsKey records the worker count used for row-parallel prediction.
	ThreadsKey = "perf.threads"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// RMSEKey and friends record evaluation metrics on the actual scale.
	RMSEKey    = "metrics.rmse"
	MAEKey     = "metrics.mae"
	R2ScoreKey = "metrics.r2_score"
	MAPEKey    = "metrics.mape"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// StacktraceKey contains stack trace information extracted from cockroachdb/errors.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationLoad     = "load"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"

	ErrorArtifactLoad         = "ARTIFACT_LOAD"
	ErrorSchemaValidation     = "SCHEMA_VALIDATION"
	ErrorDimensionMismatch    = "DIMENSION_MISMATCH"
	ErrorNumericalInstability = "NUMERICAL_INSTABILITY"
)
