package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/metrics"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// Named metrics.
const (
	Accuracy                = "accuracy"
	NegLogLoss              = "neg_log_loss"
	RocAUC                  = "roc_auc"
	ClassificationError     = "classification_error"
	NegMeanSquaredError     = "neg_mean_squared_error"
	NegRootMeanSquaredError = "neg_root_mean_squared_error"
	NegMeanAbsoluteError    = "neg_mean_absolute_error"
	R2                      = "r2"
	ExplainedVariance       = "explained_variance"
	NDCG                    = "ndcg"
	AveragePrecision        = "average_precision"

	// NegMeanAbsolutePercentageError is in percent. Rows with a zero target are skipped.
	NegMeanAbsolutePercentageError = "neg_mean_absolute_percentage_error"
)

type metricKind int

const (
	namedMetric metricKind = iota
	customMetric
	precomputedScorer
)

// MetricSpec selects a metric: a named metric, a custom function, or a ready Scorer.
type MetricSpec struct {
	kind   metricKind
	name   string
	fn     MetricFunc
	scorer Scorer
}

// NamedMetric selects one of the built-in metrics by name.
func NamedMetric(name string) *MetricSpec {
	return &MetricSpec{kind: namedMetric, name: name}
}

// CustomMetric wraps a user function. Higher must be better.
func CustomMetric(name string, fn MetricFunc) *MetricSpec {
	return &MetricSpec{kind: customMetric, name: name, fn: fn}
}

// PrecomputedScorer uses s as is.
func PrecomputedScorer(s Scorer) *MetricSpec {
	return &MetricSpec{kind: precomputedScorer, name: s.Name(), scorer: s}
}

// Name returns the metric name.
func (m *MetricSpec) Name() string {
	return m.name
}

// DefaultMetric returns the metric used when none is given.
func DefaultMetric(task TaskType) string {
	if task.IsClassification() {
		return Accuracy
	}
	return NegRootMeanSquaredError
}

// Resolve turns spec into a Scorer. A nil spec selects the task default.
// Unknown names fail with NotSupportedError.
func Resolve(spec *MetricSpec, task TaskType) (Scorer, error) {
	if spec == nil {
		spec = NamedMetric(DefaultMetric(task))
	}
	switch spec.kind {
	case precomputedScorer:
		if spec.scorer == nil {
			return nil, errors.NewValidationError("scorer", "precomputed scorer is nil", nil)
		}
		return spec.scorer, nil
	case customMetric:
		if spec.fn == nil {
			return nil, errors.NewValidationError("scorer", "custom metric function is nil", spec.name)
		}
		return &metricScorer{name: spec.name, fn: spec.fn, task: task}, nil
	}

	fn, needsProba, ok := builtin(spec.name, task)
	if !ok {
		return nil, errors.NewNotSupportedError("scorer",
			fmt.Sprintf("unknown metric %q, supported: %s", spec.name, strings.Join(MetricNames(), ", ")))
	}
	return &metricScorer{name: spec.name, fn: fn, needsProba: needsProba, task: task}, nil
}

// MetricNames lists the built-in metric names, sorted.
func MetricNames() []string {
	names := []string{
		Accuracy, NegLogLoss, RocAUC, ClassificationError,
		NegMeanSquaredError, NegRootMeanSquaredError, NegMeanAbsoluteError,
		NegMeanAbsolutePercentageError, R2, ExplainedVariance, NDCG, AveragePrecision,
	}
	sort.Strings(names)
	return names
}

func negate(f func(yTrue, yPred *mat.VecDense) (float64, error)) MetricFunc {
	return func(yTrue, yPred *mat.VecDense, _ *mat.Dense) (float64, error) {
		v, err := f(yTrue, yPred)
		return -v, err
	}
}

func plain(f func(yTrue, yPred *mat.VecDense) (float64, error)) MetricFunc {
	return func(yTrue, yPred *mat.VecDense, _ *mat.Dense) (float64, error) {
		return f(yTrue, yPred)
	}
}

func builtin(name string, task TaskType) (fn MetricFunc, needsProba bool, ok bool) {
	switch name {
	case Accuracy:
		return plain(metrics.Accuracy), false, true
	case ClassificationError:
		return negate(metrics.ClassificationError), false, true
	case NegLogLoss:
		return func(yTrue, _ *mat.VecDense, proba *mat.Dense) (float64, error) {
			v, err := metrics.LogLoss(yTrue, proba)
			return -v, err
		}, true, true
	case RocAUC:
		return rocAUC, true, true
	case NegMeanSquaredError:
		return negate(metrics.MSE), false, true
	case NegRootMeanSquaredError:
		return negate(metrics.RMSE), false, true
	case NegMeanAbsoluteError:
		return negate(metrics.MAE), false, true
	case NegMeanAbsolutePercentageError:
		return negate(metrics.MAPE), false, true
	case R2:
		return plain(forceFinite(metrics.R2Score)), false, true
	case ExplainedVariance:
		return plain(forceFinite(metrics.ExplainedVarianceScore)), false, true
	case NDCG:
		return func(yTrue, yPred *mat.VecDense, _ *mat.Dense) (float64, error) {
			return metrics.NDCG(yTrue, yPred, -1)
		}, false, true
	case AveragePrecision:
		if task.IsClassification() {
			return func(yTrue, _ *mat.VecDense, proba *mat.Dense) (float64, error) {
				return metrics.AveragePrecision(yTrue, positiveColumn(proba))
			}, true, true
		}
		return plain(metrics.AveragePrecision), false, true
	}
	return nil, false, false
}

// rocAUC is the binary AUC of the positive column, or the one-vs-rest macro
// average for more than two classes.
func rocAUC(yTrue, _ *mat.VecDense, proba *mat.Dense) (float64, error) {
	_, c := proba.Dims()
	if c <= 2 {
		return metrics.AUC(yTrue, positiveColumn(proba))
	}
	var sum float64
	for k := 0; k < c; k++ {
		bin := mat.NewVecDense(yTrue.Len(), nil)
		for i := 0; i < yTrue.Len(); i++ {
			if int(yTrue.AtVec(i)) == k {
				bin.SetVec(i, 1)
			}
		}
		auc, err := metrics.AUC(bin, mat.VecDenseCopyOf(proba.ColView(k)))
		if err != nil {
			return math.NaN(), err
		}
		sum += auc
	}
	return sum / float64(c), nil
}

func positiveColumn(proba *mat.Dense) *mat.VecDense {
	_, c := proba.Dims()
	return mat.VecDenseCopyOf(proba.ColView(c - 1))
}

// forceFinite returns 1 for a perfect fit of a constant target and 0 otherwise
// instead of failing on zero variance.
func forceFinite(f func(yTrue, yPred *mat.VecDense) (float64, error)) func(yTrue, yPred *mat.VecDense) (float64, error) {
	return func(yTrue, yPred *mat.VecDense) (float64, error) {
		if yTrue == nil || yPred == nil || yTrue.Len() != yPred.Len() || yTrue.Len() == 0 {
			return f(yTrue, yPred)
		}
		first := yTrue.AtVec(0)
		constant := true
		for i := 1; i < yTrue.Len(); i++ {
			if yTrue.AtVec(i) != first {
				constant = false
				break
			}
		}
		if !constant {
			return f(yTrue, yPred)
		}
		for i := 0; i < yTrue.Len(); i++ {
			if yPred.AtVec(i) != yTrue.AtVec(i) {
				return 0, nil
			}
		}
		return 1, nil
	}
}
