package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// lookupModel answers by sample id.
type lookupModel struct {
	pred    map[string]float64
	proba   map[string][]float64
	classes []float64
}

func (m *lookupModel) Predict(d *dataset.Dataset) (*mat.VecDense, error) {
	out := mat.NewVecDense(d.NSamples(), nil)
	for i, id := range d.Index() {
		out.SetVec(i, m.pred[id])
	}
	return out, nil
}

func (m *lookupModel) PredictProba(d *dataset.Dataset) (*mat.Dense, error) {
	out := mat.NewDense(d.NSamples(), len(m.classes), nil)
	for i, id := range d.Index() {
		out.SetRow(i, m.proba[id])
	}
	return out, nil
}

func (m *lookupModel) Classes() []float64 { return m.classes }

type predictOnly struct{ inner lookupModel }

func (m *predictOnly) Predict(d *dataset.Dataset) (*mat.VecDense, error) {
	return m.inner.Predict(d)
}

func labeled(t *testing.T, y []float64) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(nil, []dataset.Column{
		dataset.NewNumericColumn("x", make([]float64, len(y))),
	}, "y", y)
	require.NoError(t, err)
	return d
}

func TestResolve_Defaults(t *testing.T) {
	s, err := Resolve(nil, Regression)
	require.NoError(t, err)
	assert.Equal(t, NegRootMeanSquaredError, s.Name())

	s, err = Resolve(nil, Binary)
	require.NoError(t, err)
	assert.Equal(t, Accuracy, s.Name())

	_, err = Resolve(NamedMetric("f1_fancy"), Binary)
	var ns *errors.NotSupportedError
	assert.True(t, errors.As(err, &ns))

	_, err = Resolve(CustomMetric("c", nil), Binary)
	assert.Error(t, err)
}

func TestScorer_Regression(t *testing.T) {
	d := labeled(t, []float64{1, 2, 3})
	m := &lookupModel{pred: map[string]float64{"0": 1, "1": 2, "2": 5}}

	tests := []struct {
		metric string
		want   float64
	}{
		{NegMeanSquaredError, -4.0 / 3},
		{NegRootMeanSquaredError, -math.Sqrt(4.0 / 3)},
		{NegMeanAbsoluteError, -2.0 / 3},
		{NegMeanAbsolutePercentageError, -100 * (2.0 / 3) / 3},
		{R2, 1 - 4.0/2},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			s, err := Resolve(NamedMetric(tt.metric), Regression)
			require.NoError(t, err)
			got, err := s.Score(m, d)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestScorer_MAPESkipsZeroTargets(t *testing.T) {
	s, err := Resolve(NamedMetric(NegMeanAbsolutePercentageError), Regression)
	require.NoError(t, err)

	got, err := s.Score(&lookupModel{pred: map[string]float64{"0": 1, "1": 1}}, labeled(t, []float64{0, 2}))
	require.NoError(t, err)
	assert.InDelta(t, -50.0, got, 1e-12)

	_, err = s.Score(&lookupModel{pred: map[string]float64{"0": 1, "1": 1}}, labeled(t, []float64{0, 0}))
	assert.Error(t, err)
}

func TestScorer_EmptySliceIsNaN(t *testing.T) {
	d := labeled(t, []float64{1, 2})
	s, err := Resolve(nil, Regression)
	require.NoError(t, err)
	got, err := s.Score(&lookupModel{}, d.Take([]int{}))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestScorer_R2ConstantTarget(t *testing.T) {
	d := labeled(t, []float64{2, 2})
	s, err := Resolve(NamedMetric(R2), Regression)
	require.NoError(t, err)

	got, err := s.Score(&lookupModel{pred: map[string]float64{"0": 2, "1": 2}}, d)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = s.Score(&lookupModel{pred: map[string]float64{"0": 2, "1": 3}}, d)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func binaryModel() *lookupModel {
	return &lookupModel{
		classes: []float64{10, 20},
		pred:    map[string]float64{"0": 10, "1": 20, "2": 20, "3": 20},
		proba: map[string][]float64{
			"0": {0.9, 0.1},
			"1": {0.2, 0.8},
			"2": {0.25, 0.75},
			"3": {0.3, 0.7},
		},
	}
}

func TestScorer_Classification(t *testing.T) {
	d := labeled(t, []float64{10, 20, 10, 20})
	m := binaryModel()

	wantLogLoss := -(math.Log(0.9) + math.Log(0.8) + math.Log(0.25) + math.Log(0.7)) / 4
	tests := []struct {
		metric string
		want   float64
	}{
		{Accuracy, 0.75},
		{ClassificationError, -0.25},
		{NegLogLoss, -wantLogLoss},
		{RocAUC, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			s, err := Resolve(NamedMetric(tt.metric), Binary)
			require.NoError(t, err)
			got, err := s.Score(m, d)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScorer_ProbaRequired(t *testing.T) {
	d := labeled(t, []float64{0, 1})
	s, err := Resolve(NamedMetric(NegLogLoss), Binary)
	require.NoError(t, err)
	_, err = s.Score(&predictOnly{}, d)
	var ns *errors.NotSupportedError
	assert.True(t, errors.As(err, &ns))
}

func TestScorer_Custom(t *testing.T) {
	d := labeled(t, []float64{10, 20, 10, 20})
	m := binaryModel()

	var sawProba bool
	s, err := Resolve(CustomMetric("mine", func(yTrue, yPred *mat.VecDense, proba *mat.Dense) (float64, error) {
		sawProba = proba != nil
		return yTrue.AtVec(0) + yPred.AtVec(0), nil
	}), Binary)
	require.NoError(t, err)
	got, err := s.Score(m, d)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got, "custom metrics see the original labels")
	assert.True(t, sawProba)

	failing, err := Resolve(CustomMetric("bad", func(_, _ *mat.VecDense, _ *mat.Dense) (float64, error) {
		return 0, errors.New("metric failed")
	}), Binary)
	require.NoError(t, err)
	_, err = failing.Score(m, d)
	assert.EqualError(t, err, "metric failed")

	panicking, err := Resolve(CustomMetric("boom", func(_, _ *mat.VecDense, _ *mat.Dense) (float64, error) {
		panic("boom")
	}), Binary)
	require.NoError(t, err)
	got, err = panicking.Score(m, d)
	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "boom", pe.PanicValue)
	assert.True(t, math.IsNaN(got))
}

func TestPrecomputedScorer(t *testing.T) {
	inner, err := Resolve(NamedMetric(Accuracy), Binary)
	require.NoError(t, err)
	s, err := Resolve(PrecomputedScorer(inner), Regression)
	require.NoError(t, err)
	assert.Same(t, inner, s)
}

func TestPerSampleLoss(t *testing.T) {
	d := labeled(t, []float64{10, 20, 10, 20})

	loss, err := PerSampleLoss(binaryModel(), Binary, d, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-math.Log(0.9), -math.Log(0.8), -math.Log(0.25), -math.Log(0.7)}, loss, 1e-12)

	// explicit order overrides the model's classes
	loss, err = PerSampleLoss(binaryModel(), Binary, d, []float64{20, 10})
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.1), loss[0], 1e-12)

	reg := labeled(t, []float64{1, 2, 3})
	loss, err = PerSampleLoss(&lookupModel{pred: map[string]float64{"0": 0, "1": 2, "2": 6}}, Regression, reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 9}, loss)

	_, err = PerSampleLoss(&predictOnly{}, Binary, d, nil)
	assert.Error(t, err)
}

func TestParseTaskType(t *testing.T) {
	tt, err := ParseTaskType("Binary")
	require.NoError(t, err)
	assert.Equal(t, Binary, tt)
	assert.True(t, tt.IsClassification())
	_, err = ParseTaskType("ranking")
	assert.Error(t, err)
}
