package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/metrics"
	"github.com/YuminosukeSato/sciguard/scoring"
)

// fixedModel predicts the same vector for any data.
type fixedModel []float64

func (m fixedModel) Predict(*dataset.Dataset) (*mat.VecDense, error) {
	return mat.NewVecDense(len(m), append([]float64(nil), m...)), nil
}

// Named scorers report losses negated so that higher is always better.
func TestScorersNegateLosses(t *testing.T) {
	yTrue := []float64{3, -0.5, 2, 7}
	yPred := fixedModel{2.5, 0, 2, 8}
	d, err := dataset.New(nil, []dataset.Column{dataset.NewNumericColumn("x", make([]float64, 4))}, "y", yTrue)
	require.NoError(t, err)

	tests := []struct {
		metric string
		fn     func(yTrue, yPred *mat.VecDense) (float64, error)
		sign   float64
	}{
		{scoring.NegMeanSquaredError, metrics.MSE, -1},
		{scoring.NegRootMeanSquaredError, metrics.RMSE, -1},
		{scoring.NegMeanAbsoluteError, metrics.MAE, -1},
		{scoring.NegMeanAbsolutePercentageError, metrics.MAPE, -1},
		{scoring.R2, metrics.R2Score, 1},
		{scoring.ExplainedVariance, metrics.ExplainedVarianceScore, 1},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			want, err := tt.fn(mat.NewVecDense(4, yTrue), mat.NewVecDense(4, yPred))
			require.NoError(t, err)

			s, err := scoring.Resolve(scoring.NamedMetric(tt.metric), scoring.Regression)
			require.NoError(t, err)
			got, err := s.Score(yPred, d)
			require.NoError(t, err)
			assert.InDelta(t, tt.sign*want, got, 1e-12)
		})
	}

	// a better model scores higher under every regression scorer
	better := fixedModel{2.9, -0.4, 2, 7.2}
	for _, tt := range tests {
		s, err := scoring.Resolve(scoring.NamedMetric(tt.metric), scoring.Regression)
		require.NoError(t, err)
		worse, err := s.Score(yPred, d)
		require.NoError(t, err)
		improved, err := s.Score(better, d)
		require.NoError(t, err)
		assert.Greater(t, improved, worse, tt.metric)
	}
}

func TestClassificationErrorScorerIsNegated(t *testing.T) {
	d, err := dataset.New(nil, []dataset.Column{dataset.NewNumericColumn("x", make([]float64, 4))}, "y", []float64{0, 1, 1, 0})
	require.NoError(t, err)
	m := fixedModel{0, 1, 0, 0}

	s, err := scoring.Resolve(scoring.NamedMetric(scoring.ClassificationError), scoring.Binary)
	require.NoError(t, err)
	got, err := s.Score(m, d)
	require.NoError(t, err)
	assert.Equal(t, -0.25, got)

	s, err = scoring.Resolve(scoring.NamedMetric(scoring.Accuracy), scoring.Binary)
	require.NoError(t, err)
	got, err = s.Score(m, d)
	require.NoError(t, err)
	assert.Equal(t, 0.75, got)
}
