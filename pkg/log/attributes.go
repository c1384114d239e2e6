// Standard attribute keys for sciguard log records.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "segment.score") so that log pipelines can filter on prefixes.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "DecisionTreeRegressor".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed ("fit", "predict", "score").
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase ("training", "inference", "search").
	PhaseKey = "ml.phase"
)

// Check context.
const (
	// CheckNameKey names the validation check, e.g. "WeakSegmentsPerformance".
	CheckNameKey = "check.name"

	// RunIDKey correlates all records emitted by a single check run.
	RunIDKey = "check.run_id"

	// ScorerKey names the scorer used by the check.
	ScorerKey = "check.scorer"

	// ConditionKey names an evaluated condition.
	ConditionKey = "check.condition"

	// CategoryKey records a condition outcome ("PASS", "WARN", "FAIL").
	CategoryKey = "check.category"
)

// Segment search context.
const (
	Feature1Key       = "segment.feature1"
	Feature2Key       = "segment.feature2"
	FeaturePairKey    = "segment.pair"
	SegmentScoreKey   = "segment.score"
	SegmentSizeKey    = "segment.size"
	SegmentsFoundKey  = "segment.count"
	AverageScoreKey   = "segment.average_score"
	CandidatesKey     = "search.candidates"
	FoldsKey          = "search.folds"
	BestParamsKey     = "search.best_params"
	TreeDepthKey      = "tree.depth"
	TreeLeavesKey     = "tree.leaves"
	RareCategoriesKey = "encoding.rare_categories"
)

// Data shape.
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of target classes for classification.
	ClassesKey = "data.classes"

	// PathKey records the file a dataset or artifact was read from or written to.
	PathKey = "data.path"
)

// Performance.
const (
	DurationMsKey = "perf.duration_ms"
	WorkersKey    = "perf.workers"
	LossKey       = "metrics.loss"
	ScoreKey      = "metrics.score"
	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	ErrorTypeKey  = "error.type"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationEncode  = "encode"
	OperationSearch  = "search"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
	PhaseSearch        = "search"
	PhaseDisplay       = "display"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorNotSupported      = "NOT_SUPPORTED"
	ErrorNoSegments        = "NO_SEGMENTS"
)
