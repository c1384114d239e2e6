// Package scoring resolves performance metrics into scorers that evaluate a
// model on a dataset slice. Every scorer is "higher is better": loss metrics
// are negated.
package scoring

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// Model predicts on a dataset slice.
type Model interface {
	Predict(data *dataset.Dataset) (*mat.VecDense, error)
}

// ProbaModel also predicts class probabilities, one column per class.
type ProbaModel interface {
	Model
	PredictProba(data *dataset.Dataset) (*mat.Dense, error)
}

// ClassLister exposes the label of every probability column, in column order.
type ClassLister interface {
	Classes() []float64
}

// Scorer evaluates a model on the labeled rows of a dataset.
type Scorer interface {
	Name() string
	// Score returns NaN without error for an empty dataset.
	Score(m Model, data *dataset.Dataset) (float64, error)
}

// MetricFunc computes a metric from labels, predictions and, when the task is
// a classification, class probabilities (nil otherwise) in the model's class order.
type MetricFunc func(yTrue, yPred *mat.VecDense, proba *mat.Dense) (float64, error)

type metricScorer struct {
	name       string
	fn         MetricFunc
	needsProba bool
	task       TaskType
}

func (s *metricScorer) Name() string { return s.name }

func (s *metricScorer) Score(m Model, data *dataset.Dataset) (score float64, err error) {
	defer errors.Recover(&err, "scorer "+s.name)
	score = math.NaN()

	if data == nil || data.NSamples() == 0 {
		return math.NaN(), nil
	}
	y := data.LabelVector()
	if y == nil {
		return math.NaN(), errors.NewValueError("scorer "+s.name, "dataset has no label")
	}
	pred, err := m.Predict(data)
	if err != nil {
		return math.NaN(), errors.Wrapf(err, "scorer %s: predict", s.name)
	}

	var proba *mat.Dense
	if s.needsProba || s.task.IsClassification() {
		pm, ok := m.(ProbaModel)
		if !ok {
			if s.needsProba {
				return math.NaN(), errors.NewNotSupportedError("scorer "+s.name, "model does not predict probabilities")
			}
		} else {
			if proba, err = pm.PredictProba(data); err != nil {
				return math.NaN(), errors.Wrapf(err, "scorer %s: predict_proba", s.name)
			}
		}
	}
	if s.needsProba {
		// probability metrics index proba columns by label
		_, nCols := proba.Dims()
		if y, err = ClassIndices(m, y, nCols); err != nil {
			return math.NaN(), err
		}
	}
	return s.fn(y, pred, proba)
}

// ClassIndices maps labels to probability column indices using the model's
// class order when it exposes one. Otherwise labels must already be indices.
func ClassIndices(m interface{}, y *mat.VecDense, nCols int) (*mat.VecDense, error) {
	lister, ok := m.(ClassLister)
	if !ok {
		return y, nil
	}
	return MapClasses(lister.Classes(), y, nCols)
}

// MapClasses maps every label to its position in classes.
func MapClasses(classes []float64, y *mat.VecDense, nCols int) (*mat.VecDense, error) {
	if len(classes) != nCols {
		return nil, errors.NewDimensionError("MapClasses", nCols, len(classes), 1)
	}
	pos := make(map[float64]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	out := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		p, ok := pos[y.AtVec(i)]
		if !ok {
			return nil, errors.NewValidationError("yTrue", "label not in class order", y.AtVec(i))
		}
		out.SetVec(i, float64(p))
	}
	return out, nil
}

// SortedClasses returns the distinct labels in ascending order.
func SortedClasses(y []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range y {
		if !seen[v] && !math.IsNaN(v) {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
