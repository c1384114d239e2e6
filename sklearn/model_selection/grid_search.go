package model_selection

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/core/parallel"
	"github.com/YuminosukeSato/sciguard/metrics"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
)

// ScoringFunc scores a fitted estimator on a validation fold. Higher is better.
// An error or a NaN marks the fold as failed.
type ScoringFunc func(est model.Tunable, X, y mat.Matrix) (float64, error)

// ParamGrid maps a hyperparameter name to the values to try.
type ParamGrid map[string][]interface{}

// Candidates expands the grid into every combination.
// Keys vary in sorted order with the last key changing fastest, as in scikit-learn.
func (g ParamGrid) Candidates() []map[string]interface{} {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []map[string]interface{}{{}}
	for _, k := range keys {
		next := make([]map[string]interface{}, 0, len(out)*len(g[k]))
		for _, base := range out {
			for _, v := range g[k] {
				c := make(map[string]interface{}, len(base)+1)
				for bk, bv := range base {
					c[bk] = bv
				}
				c[k] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

// CVResult は1候補の交差検証結果
type CVResult struct {
	Params     map[string]interface{}
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Rank       int
}

// GridSearchCV exhaustively evaluates a parameter grid with cross-validation
// and refits the best candidate on the full data.
type GridSearchCV struct {
	Estimator model.Tunable
	ParamGrid ParamGrid
	CV        Splitter
	Scoring   ScoringFunc
	NJobs     int // <= 0 means one worker per CPU core
	Refit     bool

	BestParams_    map[string]interface{}
	BestScore_     float64
	BestIndex_     int
	BestEstimator_ model.Tunable
	CVResults_     []CVResult
}

// GridSearchOption configures a GridSearchCV.
type GridSearchOption func(*GridSearchCV)

// WithCV sets the splitter. Default is a 5-fold KFold without shuffling.
func WithCV(cv Splitter) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.CV = cv
	}
}

// WithScoring sets the scoring function. Default is the negative mean squared error.
func WithScoring(fn ScoringFunc) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.Scoring = fn
	}
}

// WithNJobs sets the number of concurrent fits.
func WithNJobs(n int) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.NJobs = n
	}
}

// WithRefit controls whether the best candidate is refitted on the full data.
func WithRefit(refit bool) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.Refit = refit
	}
}

// NewGridSearchCV creates a grid search over estimator.
func NewGridSearchCV(estimator model.Tunable, grid ParamGrid, opts ...GridSearchOption) *GridSearchCV {
	gs := &GridSearchCV{
		Estimator: estimator,
		ParamGrid: grid,
		CV:        NewKFold(5, false, 0),
		Scoring:   NegMeanSquaredError,
		NJobs:     1,
		Refit:     true,
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// NegMeanSquaredError scores a fitted estimator by -MSE on (X, y).
func NegMeanSquaredError(est model.Tunable, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return math.NaN(), err
	}
	mse, err := metrics.MSEMatrix(y, pred)
	if err != nil {
		return math.NaN(), err
	}
	return -mse, nil
}

// Fit runs the search. A fold whose fit or scoring fails scores NaN, and a
// candidate with any NaN fold ranks last. Fit fails only when every candidate is NaN.
func (gs *GridSearchCV) Fit(X, y mat.Matrix) error {
	const op = "GridSearchCV.Fit"
	if gs.Estimator == nil {
		return errors.NewValueError(op, "estimator is nil")
	}
	if X == nil || y == nil {
		return errors.NewValueError(op, "X and y are required")
	}
	xr, _ := X.Dims()
	yr, _ := y.Dims()
	if xr != yr {
		return errors.NewDimensionError(op, xr, yr, 0)
	}

	candidates := gs.ParamGrid.Candidates()
	folds, err := gs.CV.Split(X)
	if err != nil {
		return errors.Wrap(err, "grid search split")
	}

	nFolds := len(folds)
	scores := make([]float64, len(candidates)*nFolds)
	failures := make([]error, len(scores))
	parallel.ForEach(len(scores), gs.NJobs, func(task int) {
		c, f := task/nFolds, task%nFolds
		scores[task], failures[task] = gs.fitAndScore(candidates[c], folds[f], X, y)
	})

	gs.CVResults_ = make([]CVResult, len(candidates))
	for c, params := range candidates {
		fs := scores[c*nFolds : (c+1)*nFolds]
		mean, std := stat.PopMeanStdDev(fs, nil)
		gs.CVResults_[c] = CVResult{
			Params:     params,
			FoldScores: append([]float64(nil), fs...),
			MeanScore:  mean,
			StdScore:   std,
		}
	}
	best := rankResults(gs.CVResults_)

	logger := log.GetLoggerWithName("model_selection")
	if best < 0 {
		var cause error
		for _, e := range failures {
			if e != nil {
				cause = e
				break
			}
		}
		if cause == nil {
			cause = errors.New("every fold scored NaN")
		}
		return errors.NewModelError(op, "search", cause)
	}

	gs.BestIndex_ = best
	gs.BestParams_ = candidates[best]
	gs.BestScore_ = gs.CVResults_[best].MeanScore

	if logger.Enabled(context.Background(), log.LevelDebug) {
		logger.Debug("grid search finished",
			log.CandidatesKey, len(candidates),
			log.FoldsKey, nFolds,
			log.BestParamsKey, fmt.Sprint(gs.BestParams_),
			log.ScoreKey, gs.BestScore_,
		)
	}

	if !gs.Refit {
		return nil
	}
	est := gs.Estimator.Clone()
	if err := est.SetParams(gs.BestParams_); err != nil {
		return err
	}
	if err := est.Fit(X, y); err != nil {
		return errors.Wrap(err, "grid search refit")
	}
	gs.BestEstimator_ = est
	return nil
}

func (gs *GridSearchCV) fitAndScore(params map[string]interface{}, fold Fold, X, y mat.Matrix) (score float64, err error) {
	defer errors.Recover(&err, "GridSearchCV.fitAndScore")
	score = math.NaN()

	est := gs.Estimator.Clone()
	if err = est.SetParams(params); err != nil {
		return score, err
	}
	if err = est.Fit(TakeRows(X, fold.TrainIndices), TakeRows(y, fold.TrainIndices)); err != nil {
		return score, err
	}
	s, err := gs.Scoring(est, TakeRows(X, fold.TestIndices), TakeRows(y, fold.TestIndices))
	if err != nil {
		return score, err
	}
	return s, nil
}

// rankResults assigns ranks by descending mean score with NaN last and returns
// the index of the first best candidate, or -1 when every mean is NaN.
func rankResults(results []CVResult) int {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := results[order[a]].MeanScore, results[order[b]].MeanScore
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		if math.IsNaN(sa) {
			return false
		}
		return sa > sb
	})
	for pos, i := range order {
		rank := pos + 1
		if pos > 0 {
			prev := results[order[pos-1]]
			if prev.MeanScore == results[i].MeanScore {
				rank = prev.Rank
			}
		}
		results[i].Rank = rank
	}
	if len(order) == 0 || math.IsNaN(results[order[0]].MeanScore) {
		return -1
	}
	return order[0]
}
