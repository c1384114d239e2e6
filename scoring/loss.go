package scoring

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/metrics"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// PerSampleLoss computes the loss of every row of data: -log(p_true) clipped at
// 1e-15 for classification, squared error for regression. classOrder gives the
// label of every probability column; when nil the model's Classes() are used,
// and without those the labels must already be column indices.
func PerSampleLoss(m Model, task TaskType, data *dataset.Dataset, classOrder []float64) ([]float64, error) {
	const op = "PerSampleLoss"
	y := data.LabelVector()
	if y == nil {
		return nil, errors.NewValueError(op, "dataset has no label")
	}

	if task.IsClassification() {
		pm, ok := m.(ProbaModel)
		if !ok {
			return nil, errors.NewNotSupportedError(op, "classification loss requires a model with PredictProba")
		}
		proba, err := pm.PredictProba(data)
		if err != nil {
			return nil, errors.Wrap(err, "per-sample loss: predict_proba")
		}
		_, nCols := proba.Dims()
		var idx *mat.VecDense
		if classOrder != nil {
			idx, err = MapClasses(classOrder, y, nCols)
		} else {
			idx, err = ClassIndices(m, y, nCols)
		}
		if err != nil {
			return nil, err
		}
		return metrics.PerSampleLogLoss(idx, proba)
	}

	pred, err := m.Predict(data)
	if err != nil {
		return nil, errors.Wrap(err, "per-sample loss: predict")
	}
	if pred.Len() != y.Len() {
		return nil, errors.NewDimensionError(op, y.Len(), pred.Len(), 0)
	}
	loss := make([]float64, y.Len())
	for i := range loss {
		d := y.AtVec(i) - pred.AtVec(i)
		loss[i] = d * d
	}
	return loss, nil
}
