// This file contains predefined attribute keys shared by every component of a
// model search run. The keys follow a hierarchical naming convention
// (e.g. "model.name", "cv.fold") so that log records of a run can be filtered
// by model, search strategy or fold.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model family, e.g. "lightgbm", "xgboost".
	ModelNameKey = "model.name"

	// RunIDKey identifies one orchestrator run.
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "select", "tune", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "component"

	// PhaseKey indicates the phase of the run.
	// Examples: "splitting", "feature_selection", "tuning", "final_fit", "aggregate"
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns being processed.
	FeaturesKey = "data.features"

	// TrainSizeKey and TestSizeKey describe the holdout split.
	TrainSizeKey = "data.train_size"
	TestSizeKey  = "data.test_size"
)

// Cross-validation and search
const (
	// FoldKey is the zero-based index of a CV fold.
	FoldKey = "cv.fold"

	// NSplitsKey is the number of CV folds.
	NSplitsKey = "cv.n_splits"

	// StrategyKey names a feature-selection or tuning strategy.
	StrategyKey = "search.strategy"

	// CandidatesKey is the number of candidates a search will score.
	CandidatesKey = "search.candidates"

	// CandidateKey describes the candidate being scored (parameter set or feature).
	CandidateKey = "search.candidate"

	// ScoreKey is a CV-averaged candidate score.
	ScoreKey = "search.score"

	// PassKey is the pass number of a line search.
	PassKey = "search.pass"

	// SelectedFeaturesKey lists the features kept by a selector.
	SelectedFeaturesKey = "selection.features"

	// NFeaturesKey is the number of features kept by a selector.
	NFeaturesKey = "selection.n_features"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records a loss value.
	LossKey = "metrics.loss"

	// LossNameKey names the loss function of a run.
	LossNameKey = "metrics.loss_name"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the current iteration of an iterative algorithm.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// ErrorDetailKey holds the structured fields of a typed error.
	ErrorDetailKey = "error.detail"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ConfigHashKey records the hash of the run configuration.
	ConfigHashKey = "config.hash"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationSelect       = "select"
	OperationTune         = "tune"

	PhaseSplitting        = "splitting"
	PhaseFeatureSelection = "feature_selection"
	PhaseTuning           = "tuning"
	PhaseFinalFit         = "final_fit"
	PhaseAggregate        = "aggregate"
)
