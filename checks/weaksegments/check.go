// Package weaksegments finds the two-feature regions of the input space where
// a model performs worst.
//
// For every pair of the most important features, a regression tree of the
// per-sample loss is fitted on the pair; its leaves are rectangular regions,
// and the leaf where the model scores lowest is the pair's weak segment.
package weaksegments

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/checks"
	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/partition"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
	"github.com/YuminosukeSato/sciguard/pkg/telemetry"
	"github.com/YuminosukeSato/sciguard/scoring"
)

// CheckName identifies the check in results, logs and metrics.
const CheckName = "WeakSegmentsPerformance"

// Segment is the weakest leaf found for one feature pair. Ranges are in the
// encoded feature space; for categorical features the categories covered by
// the range are listed as well.
type Segment struct {
	Score              float64
	Feature1           string
	Feature1Range      partition.Range
	Feature1Categories []string
	Feature2           string
	Feature2Range      partition.Range
	Feature2Categories []string
	// DataFraction is the share of the sampled rows inside the segment.
	DataFraction float64
}

// Value is the result value of the check.
type Value struct {
	// Segments are sorted by ascending score.
	Segments   []Segment
	AvgScore   float64
	ScorerName string
}

// Check searches for weak segments. Build it with New.
type Check struct {
	columns           []string
	ignoreColumns     []string
	nTopFeatures      int
	metric            *scoring.MetricSpec
	lossPerSample     map[string]float64
	classesIndexOrder []float64
	nSamples          int
	threshold         float64
	nToShow           int
	randomState       int64
	workers           int
	params            SearchParams

	metrics    *telemetry.Metrics
	logger     log.Logger
	conditions []checks.Condition[Value]
}

// Option configures a Check.
type Option func(*Check)

// WithColumns restricts the search to the given features.
func WithColumns(columns ...string) Option {
	return func(c *Check) { c.columns = columns }
}

// WithIgnoreColumns excludes features from the search. Ignored when WithColumns is given.
func WithIgnoreColumns(columns ...string) Option {
	return func(c *Check) { c.ignoreColumns = columns }
}

// WithNTopFeatures sets how many of the most important features are paired. Default 5.
func WithNTopFeatures(n int) Option {
	return func(c *Check) { c.nTopFeatures = n }
}

// WithSegmentMinimumSizeRatio sets the smallest share of the data a segment may hold. Default 0.01.
func WithSegmentMinimumSizeRatio(ratio float64) Option {
	return func(c *Check) { c.params.MinLeafFraction = ratio }
}

// WithScorer selects the metric segments are scored with. Default: the task's default metric.
func WithScorer(spec *scoring.MetricSpec) Option {
	return func(c *Check) { c.metric = spec }
}

// WithLossPerSample supplies the loss the error model is fitted on, by sample id.
// Without it, log loss (classification) or squared error (regression) is used.
func WithLossPerSample(loss map[string]float64) Option {
	return func(c *Check) { c.lossPerSample = loss }
}

// WithClassesIndexOrder gives the class of every probability column.
func WithClassesIndexOrder(classes []float64) Option {
	return func(c *Check) { c.classesIndexOrder = classes }
}

// WithNSamples sets the number of rows sampled for the search. Default 10000.
func WithNSamples(n int) Option {
	return func(c *Check) { c.nSamples = n }
}

// WithCategoricalAggregationThreshold sets the frequency below which a
// category is merged into "other". Default 0.05.
func WithCategoricalAggregationThreshold(threshold float64) Option {
	return func(c *Check) { c.threshold = threshold }
}

// WithNToShow sets how many segments get a display panel. Default 3.
func WithNToShow(n int) Option {
	return func(c *Check) { c.nToShow = n }
}

// WithRandomState seeds sampling and tree fitting. Default 42.
func WithRandomState(seed int64) Option {
	return func(c *Check) { c.randomState = seed }
}

// WithWorkers sets how many feature pairs are searched at once. Default 1.
func WithWorkers(n int) Option {
	return func(c *Check) { c.workers = n }
}

// WithSearchParams replaces the error-model parameters.
func WithSearchParams(p SearchParams) Option {
	return func(c *Check) { c.params = p }
}

// WithTelemetry records search metrics.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(c *Check) { c.metrics = m }
}

// WithLogger replaces the package logger.
func WithLogger(l log.Logger) Option {
	return func(c *Check) { c.logger = l }
}

// New creates a check with the given options.
func New(opts ...Option) (*Check, error) {
	c := &Check{
		nTopFeatures: 5,
		nSamples:     10_000,
		threshold:    0.05,
		nToShow:      3,
		randomState:  42,
		workers:      1,
		params:       DefaultSearchParams(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("weaksegments")
	}

	switch {
	case c.nTopFeatures < 2:
		return nil, errors.NewValidationError("n_top_features", "must be at least 2", c.nTopFeatures)
	case c.nSamples < 1:
		return nil, errors.NewValidationError("n_samples", "must be positive", c.nSamples)
	case c.threshold < 0 || c.threshold > 1:
		return nil, errors.NewValidationError("categorical_aggregation_threshold", "must be in [0, 1]", c.threshold)
	case c.nToShow < 0:
		return nil, errors.NewValidationError("n_to_show", "must not be negative", c.nToShow)
	case c.workers < 1:
		return nil, errors.NewValidationError("workers", "must be at least 1", c.workers)
	}
	if err := c.params.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Run searches the context's dataset for weak segments of its model.
func (c *Check) Run(ctx context.Context, cc *checks.Context) (result *checks.Result[Value], err error) {
	start := time.Now()
	defer func() { c.metrics.CheckRun(CheckName, err) }()

	result = checks.NewResult(CheckName, Value{})
	logger := c.logger.With(log.CheckNameKey, CheckName, log.RunIDKey, result.RunID.String())

	data := cc.Dataset.Sample(c.nSamples, c.randomState, true)
	if data.NSamples() == 0 {
		return nil, errors.NewNotSupportedError(CheckName, "dataset has no sample with a label")
	}

	pred, err := cc.Model.Predict(data)
	if err != nil {
		return nil, errors.Wrap(err, "predicting")
	}
	var proba *mat.Dense
	if cc.TaskType.IsClassification() {
		pm, ok := cc.Model.(scoring.ProbaModel)
		if !ok {
			return nil, errors.NewNotSupportedError(CheckName, "classification requires a model that predicts probabilities")
		}
		if proba, err = pm.PredictProba(data); err != nil {
			return nil, errors.Wrap(err, "predicting probabilities")
		}
	}

	loss, err := c.loss(cc, data)
	if err != nil {
		return nil, err
	}

	data, err = data.Select(c.columns, c.ignoreColumns, true)
	if err != nil {
		return nil, err
	}
	if len(data.Features()) < 2 {
		return nil, errors.NewNotSupportedError(CheckName, "Check requires data to have at least two features in order to run.")
	}

	encoded, mappings, err := encodeFeatures(data, c.threshold, logger)
	if err != nil {
		return nil, err
	}
	static, err := c.staticModel(cc, encoded, pred, proba)
	if err != nil {
		return nil, err
	}

	scorer, err := cc.SingleScorer(c.metric)
	if err != nil {
		return nil, err
	}

	s := &searcher{
		model:   static,
		data:    encoded,
		loss:    loss,
		scorer:  scorer,
		params:  c.params,
		seed:    c.randomState,
		workers: c.workers,
		metrics: c.metrics,
		logger:  logger,
	}
	segments, err := s.search(ctx, rankFeatures(cc, encoded.Features()), c.nTopFeatures)
	c.metrics.ObserveSearch(start)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.NewProcessError(CheckName, "Unable to train a error model to find weak segments.", errors.ErrNoValidSegments)
	}

	avg, err := scorer.Score(static, encoded)
	if err != nil {
		return nil, errors.Wrap(err, "scoring sampled data")
	}
	avg = math.Round(avg*1000) / 1000

	if cc.WithDisplay {
		panels, err := buildPanels(static, encoded, segments, avg, scorer, c.nToShow, mappings)
		if err != nil {
			return nil, err
		}
		for _, p := range panels {
			result.AddPanel(p)
		}
	}

	for i := range segments {
		seg := &segments[i]
		if m, ok := mappings[seg.Feature1]; ok {
			seg.Feature1Categories = m.CategoriesBetween(seg.Feature1Range.Lower, seg.Feature1Range.Upper, true)
		}
		if m, ok := mappings[seg.Feature2]; ok {
			seg.Feature2Categories = m.CategoriesBetween(seg.Feature2Range.Lower, seg.Feature2Range.Upper, true)
		}
	}

	result.Value = Value{Segments: segments, AvgScore: avg, ScorerName: scorer.Name()}
	result.EvaluateConditions(c.conditions)
	c.metrics.SegmentsReported(len(segments))

	logger.Info("weak segments search finished",
		log.SegmentsFoundKey, len(segments),
		log.AverageScoreKey, avg,
		log.ScorerKey, scorer.Name(),
		log.SegmentScoreKey, segments[0].Score,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// loss returns the per-sample loss of data, from the user-supplied values when given.
func (c *Check) loss(cc *checks.Context, data *dataset.Dataset) ([]float64, error) {
	if c.lossPerSample == nil {
		loss, err := scoring.PerSampleLoss(cc.Model, cc.TaskType, data, c.classesIndexOrder)
		if err != nil {
			return nil, errors.Wrap(err, "computing loss per sample")
		}
		return loss, nil
	}
	ids := data.Index()
	loss := make([]float64, len(ids))
	for i, id := range ids {
		v, ok := c.lossPerSample[id]
		if !ok {
			return nil, errors.NewValidationError("loss_per_sample", "no loss for sample", id)
		}
		loss[i] = v
	}
	return loss, nil
}

// staticModel serves the predictions made on the raw rows for the encoded rows.
func (c *Check) staticModel(cc *checks.Context, encoded *dataset.Dataset, pred *mat.VecDense, proba *mat.Dense) (*checks.StaticModel, error) {
	if proba == nil {
		return checks.NewStaticModel(encoded, pred, nil, nil, false)
	}
	_, nCols := proba.Dims()
	classes := c.classesIndexOrder
	if classes == nil {
		if lister, ok := cc.Model.(scoring.ClassLister); ok {
			classes = lister.Classes()
		}
	}
	if len(classes) != nCols {
		classes = make([]float64, nCols)
		for k := range classes {
			classes[k] = float64(k)
		}
	}
	return checks.NewStaticModel(encoded, pred, proba, classes, false)
}

// rankFeatures orders features by descending importance when the context
// knows it, dropping features without an importance; otherwise the dataset
// order is kept.
func rankFeatures(cc *checks.Context, features []string) []string {
	importance, ok := cc.FeatureImportance()
	if !ok {
		return features
	}
	var ranked []string
	for _, f := range features {
		if _, ok := importance[f]; ok {
			ranked = append(ranked, f)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return importance[ranked[a]] > importance[ranked[b]] })
	return ranked
}
