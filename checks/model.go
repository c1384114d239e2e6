package checks

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// StaticModel answers Predict and PredictProba from predictions computed
// beforehand, looked up by sample id.
type StaticModel struct {
	predictions map[string]float64
	probas      map[string][]float64
	classes     []float64

	reference *dataset.Dataset
	validate  bool
}

// NewStaticModel stores pred (and proba, one row per sample, columns in classes
// order; nil for regression) for the rows of data. With validate, Predict
// rejects rows whose features differ from the ones stored.
func NewStaticModel(data *dataset.Dataset, pred *mat.VecDense, proba mat.Matrix, classes []float64, validate bool) (*StaticModel, error) {
	const op = "NewStaticModel"
	n := data.NSamples()
	if pred == nil || pred.Len() != n {
		got := 0
		if pred != nil {
			got = pred.Len()
		}
		return nil, errors.NewDimensionError(op, n, got, 0)
	}

	m := &StaticModel{
		predictions: make(map[string]float64, n),
		classes:     append([]float64(nil), classes...),
		reference:   data,
		validate:    validate,
	}
	for i, id := range data.Index() {
		m.predictions[id] = pred.AtVec(i)
	}

	if proba != nil {
		r, c := proba.Dims()
		if r != n {
			return nil, errors.NewDimensionError(op, n, r, 0)
		}
		if len(classes) != c {
			return nil, errors.NewDimensionError(op, c, len(classes), 1)
		}
		m.probas = make(map[string][]float64, n)
		for i, id := range data.Index() {
			row := make([]float64, c)
			mat.Row(row, i, proba)
			m.probas[id] = row
		}
	}
	return m, nil
}

// Classes returns the label of every probability column.
func (m *StaticModel) Classes() []float64 {
	return append([]float64(nil), m.classes...)
}

// Predict returns the stored prediction of every row of data.
func (m *StaticModel) Predict(data *dataset.Dataset) (*mat.VecDense, error) {
	if err := m.check("Predict", data); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(data.NSamples(), nil)
	for i, id := range data.Index() {
		out.SetVec(i, m.predictions[id])
	}
	return out, nil
}

// PredictProba returns the stored probabilities of every row of data.
func (m *StaticModel) PredictProba(data *dataset.Dataset) (*mat.Dense, error) {
	if m.probas == nil {
		return nil, errors.NewNotSupportedError("StaticModel.PredictProba", "no probabilities were given")
	}
	if err := m.check("PredictProba", data); err != nil {
		return nil, err
	}
	out := mat.NewDense(data.NSamples(), len(m.classes), nil)
	for i, id := range data.Index() {
		out.SetRow(i, m.probas[id])
	}
	return out, nil
}

func (m *StaticModel) check(method string, data *dataset.Dataset) error {
	op := "StaticModel." + method
	if data == nil || data.NSamples() == 0 {
		return errors.NewValueError(op, "no rows to predict")
	}
	for i, id := range data.Index() {
		ref, ok := m.reference.Position(id)
		if !ok {
			return errors.NewValueError(op, fmt.Sprintf("sample %q has no stored prediction", id))
		}
		if m.validate && !sameFeatures(m.reference, ref, data, i) {
			return errors.NewValueError(op, fmt.Sprintf("sample %q differs from the data the predictions were made on", id))
		}
	}
	return nil
}

func sameFeatures(a *dataset.Dataset, ra int, b *dataset.Dataset, rb int) bool {
	for _, cb := range b.Columns() {
		ca, ok := a.Column(cb.Name)
		if !ok || ca.Kind != cb.Kind {
			return false
		}
		if cb.Kind == dataset.Categorical {
			if ca.Categorical[ra] != cb.Categorical[rb] {
				return false
			}
			continue
		}
		x, y := ca.Numeric[ra], cb.Numeric[rb]
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}
	return true
}

// EstimatorModel adapts a matrix estimator to dataset input by selecting the
// features it was trained on, in training order.
type EstimatorModel struct {
	est      model.Predictor
	features []string
}

// NewEstimatorModel wraps est, which was fitted on the given feature columns.
func NewEstimatorModel(est model.Predictor, features []string) *EstimatorModel {
	return &EstimatorModel{est: est, features: append([]string(nil), features...)}
}

// Predict returns the first output column of the estimator.
func (m *EstimatorModel) Predict(data *dataset.Dataset) (*mat.VecDense, error) {
	X, err := data.FeatureMatrix(m.features)
	if err != nil {
		return nil, err
	}
	p, err := m.est.Predict(X)
	if err != nil {
		return nil, err
	}
	rows, _ := p.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, p.At(i, 0))
	}
	return out, nil
}

// PredictProba delegates to the estimator when it predicts probabilities.
func (m *EstimatorModel) PredictProba(data *dataset.Dataset) (*mat.Dense, error) {
	pp, ok := m.est.(model.ProbaPredictor)
	if !ok {
		return nil, errors.NewNotSupportedError("EstimatorModel.PredictProba",
			fmt.Sprintf("%T does not predict probabilities", m.est))
	}
	X, err := data.FeatureMatrix(m.features)
	if err != nil {
		return nil, err
	}
	p, err := pp.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(p), nil
}

// Classes returns the estimator's classes, or nil for regressors.
func (m *EstimatorModel) Classes() []float64 {
	if c, ok := m.est.(interface{ Classes() []float64 }); ok {
		return c.Classes()
	}
	return nil
}

// FeatureImportances maps the estimator's importances to feature names.
func (m *EstimatorModel) FeatureImportances() map[string]float64 {
	fi, ok := m.est.(model.FeatureImportancer)
	if !ok {
		return nil
	}
	imp := fi.GetFeatureImportances()
	if len(imp) != len(m.features) {
		return nil
	}
	out := make(map[string]float64, len(imp))
	for i, name := range m.features {
		out[name] = imp[i]
	}
	return out
}
