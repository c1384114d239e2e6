package weaksegments

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/partition"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
	"github.com/YuminosukeSato/sciguard/pkg/telemetry"
	"github.com/YuminosukeSato/sciguard/scoring"
	"github.com/YuminosukeSato/sciguard/sklearn/model_selection"
	"github.com/YuminosukeSato/sciguard/sklearn/tree"
)

// SearchParams configures the error-model trees fitted for every feature pair.
type SearchParams struct {
	// MinLeafFraction is the smallest share of the data a leaf may hold.
	MinLeafFraction float64
	MaxDepth        int
	MinSamplesLeaf  int
	CVFolds         int
	Criteria        []string
	// GridJobs bounds the parallel candidate×fold fits of one pair; <= 0 uses every core.
	GridJobs int
}

// DefaultSearchParams returns the parameters used unless overridden.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		MinLeafFraction: 0.01,
		MaxDepth:        5,
		MinSamplesLeaf:  10,
		CVFolds:         3,
		Criteria:        []string{tree.CriterionSquaredError, tree.CriterionAbsoluteError},
	}
}

func (p SearchParams) validate() error {
	if p.MinLeafFraction < 0 || p.MinLeafFraction > 0.5 {
		return errors.NewValidationError("segment_minimum_size_ratio", "must be in [0, 0.5]", p.MinLeafFraction)
	}
	if p.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.MinSamplesLeaf)
	}
	if p.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be at least 2", p.CVFolds)
	}
	if len(p.Criteria) == 0 {
		return errors.NewValidationError("criteria", "at least one criterion is required", p.Criteria)
	}
	for _, c := range p.Criteria {
		if c != tree.CriterionSquaredError && c != tree.CriterionAbsoluteError {
			return errors.NewValidationError("criteria", "unknown regression criterion", c)
		}
	}
	return nil
}

func (p SearchParams) grid() model_selection.ParamGrid {
	criteria := make([]interface{}, len(p.Criteria))
	for i, c := range p.Criteria {
		criteria[i] = c
	}
	return model_selection.ParamGrid{
		"criterion":                criteria,
		"max_depth":                {p.MaxDepth},
		"min_weight_fraction_leaf": {p.MinLeafFraction},
		"min_samples_leaf":         {p.MinSamplesLeaf},
	}
}

// errNoScorableLeaf marks an error model that cannot point at a segment: it
// never split, or none of its leaves produced a score.
var errNoScorableLeaf = errors.New("error model has no scorable leaf")

// searcher finds the weakest leaf of an error model per feature pair.
// Every field is read only during a search.
type searcher struct {
	model   scoring.Model
	data    *dataset.Dataset
	loss    []float64
	scorer  scoring.Scorer
	params  SearchParams
	seed    int64
	workers int
	metrics *telemetry.Metrics
	logger  log.Logger
}

// search evaluates every pair of the first nTop ranked features and returns
// the found segments sorted by ascending score; ties keep pair order.
func (s *searcher) search(ctx context.Context, rank []string, nTop int) ([]Segment, error) {
	n := min(len(rank), nTop)
	var pairs [][2]string
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]string{rank[i], rank[j]})
		}
	}

	found := make([]*Segment, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.workers, 1))
	for k, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seg, ok, err := s.findWeakSegment(pair[0], pair[1])
			if err != nil {
				return errors.Wrapf(err, "searching %s vs %s", pair[0], pair[1])
			}
			s.metrics.PairEvaluated()
			if !ok {
				s.metrics.PairSkipped()
				return nil
			}
			found[k] = &seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(found))
	for _, seg := range found {
		if seg != nil {
			segments = append(segments, *seg)
		}
	}
	sort.SliceStable(segments, func(a, b int) bool { return segments[a].Score < segments[b].Score })
	return segments, nil
}

// findWeakSegment grid-searches a tree of the loss on (f1, f2) maximizing
// minus the worst leaf score, then returns that worst leaf of the refit tree.
// ok is false when no usable tree could be fitted. Scorer failures are
// returned as errors.
func (s *searcher) findWeakSegment(f1, f2 string) (seg Segment, ok bool, err error) {
	features := []string{f1, f2}
	pairKey := f1 + " vs " + f2
	X, err := s.data.FeatureMatrix(features)
	if err != nil {
		return Segment{}, false, err
	}
	y := mat.NewDense(len(s.loss), 1, append([]float64(nil), s.loss...))

	var (
		mu    sync.Mutex
		fatal error
	)
	objective := func(est model.Tunable, _, _ mat.Matrix) (float64, error) {
		s.metrics.TreeFitted()
		score, _, err := s.worstLeaf(est, features)
		if err != nil {
			if !errors.Is(err, errNoScorableLeaf) {
				mu.Lock()
				if fatal == nil {
					fatal = err
				}
				mu.Unlock()
			}
			return math.NaN(), err
		}
		return -score, nil
	}

	gs := model_selection.NewGridSearchCV(
		tree.NewDecisionTreeRegressor(tree.WithRandomState(s.seed)),
		s.params.grid(),
		model_selection.WithCV(model_selection.NewKFold(s.params.CVFolds, false, 0)),
		model_selection.WithScoring(objective),
		model_selection.WithNJobs(s.params.GridJobs),
	)
	fitErr := gs.Fit(X, y)
	if fatal != nil {
		return Segment{}, false, fatal
	}
	if fitErr != nil {
		s.logger.Debug("no error model for pair", fitErr, log.FeaturePairKey, pairKey)
		return Segment{}, false, nil
	}

	s.metrics.TreeFitted()
	score, filter, err := s.worstLeaf(gs.BestEstimator_, features)
	if errors.Is(err, errNoScorableLeaf) {
		s.logger.Debug("refit error model has no scorable leaf", log.FeaturePairKey, pairKey)
		return Segment{}, false, nil
	}
	if err != nil {
		return Segment{}, false, err
	}

	rows, err := filter.Apply(s.data)
	if err != nil {
		return Segment{}, false, err
	}
	seg = Segment{
		Score:         score,
		Feature1:      f1,
		Feature1Range: filter.Get(f1),
		Feature2:      f2,
		Feature2Range: filter.Get(f2),
		DataFraction:  float64(len(rows)) / float64(s.data.NSamples()),
	}
	s.logger.Debug("weak segment found",
		log.FeaturePairKey, pairKey,
		log.SegmentScoreKey, seg.Score,
		log.SegmentSizeKey, len(rows),
		log.BestParamsKey, fmt.Sprint(gs.BestParams_),
	)
	return seg, true, nil
}

// worstLeaf scores the data of every leaf of the fitted tree and returns the
// lowest score with its filter. Empty leaves score NaN and are ignored.
func (s *searcher) worstLeaf(est model.Tunable, features []string) (float64, partition.Filter, error) {
	reg, ok := est.(*tree.DecisionTreeRegressor)
	if !ok {
		return 0, nil, errors.NewValueError("worstLeaf", fmt.Sprintf("unexpected estimator %T", est))
	}
	filters, err := partition.ConvertTreeLeavesIntoFilters(reg.Tree(), features)
	if err != nil {
		return 0, nil, err
	}
	if len(filters) < 2 {
		return 0, nil, errNoScorableLeaf
	}

	worst := math.Inf(1)
	var worstFilter partition.Filter
	for _, f := range filters {
		rows, err := f.Apply(s.data)
		if err != nil {
			return 0, nil, err
		}
		score, err := s.scorer.Score(s.model, s.data.Take(rows))
		if err != nil {
			return 0, nil, err
		}
		if score < worst {
			worst, worstFilter = score, f
		}
	}
	if worstFilter == nil {
		return 0, nil, errNoScorableLeaf
	}
	return worst, worstFilter, nil
}
