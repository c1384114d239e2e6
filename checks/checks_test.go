package checks

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/scoring"
	"github.com/YuminosukeSato/sciguard/sklearn/tree"
)

func newData(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		[]string{"a", "b", "c", "d"},
		[]dataset.Column{
			dataset.NewNumericColumn("x", []float64{1, 2, 3, 4}),
			dataset.NewCategoricalColumn("color", []string{"red", "blue", "red", ""}),
		},
		"y", []float64{0, 1, 0, 1},
	)
	require.NoError(t, err)
	return d
}

func TestStaticModel_LooksUpById(t *testing.T) {
	d := newData(t)
	pred := mat.NewVecDense(4, []float64{0, 1, 1, 1})
	proba := mat.NewDense(4, 2, []float64{0.9, 0.1, 0.2, 0.8, 0.4, 0.6, 0.3, 0.7})
	m, err := NewStaticModel(d, pred, proba, []float64{0, 1}, true)
	require.NoError(t, err)

	sub := d.Take([]int{3, 1})
	got, err := m.Predict(sub)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, got.RawVector().Data)

	p, err := m.PredictProba(sub)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.7}, p.RawRowView(0))
	assert.Equal(t, []float64{0.2, 0.8}, p.RawRowView(1))
	assert.Equal(t, []float64{0, 1}, m.Classes())
}

func TestStaticModel_Errors(t *testing.T) {
	d := newData(t)
	pred := mat.NewVecDense(4, []float64{0, 1, 1, 1})

	_, err := NewStaticModel(d, mat.NewVecDense(3, nil), nil, nil, false)
	require.Error(t, err)

	m, err := NewStaticModel(d, pred, nil, nil, true)
	require.NoError(t, err)

	_, err = m.PredictProba(d)
	var ns *errors.NotSupportedError
	assert.True(t, errors.As(err, &ns))

	_, err = m.Predict(d.Take(nil))
	assert.Error(t, err, "empty input")

	other, err := dataset.New([]string{"z"}, []dataset.Column{
		dataset.NewNumericColumn("x", []float64{1}),
		dataset.NewCategoricalColumn("color", []string{"red"}),
	}, "y", []float64{0})
	require.NoError(t, err)
	_, err = m.Predict(other)
	assert.Error(t, err, "unknown sample id")

	changed, err := d.WithColumns(dataset.NewNumericColumn("x", []float64{1, 2, 3, 5}))
	require.NoError(t, err)
	_, err = m.Predict(changed)
	assert.Error(t, err, "features differ from the stored rows")

	loose, err := NewStaticModel(d, pred, nil, nil, false)
	require.NoError(t, err)
	_, err = loose.Predict(changed)
	assert.NoError(t, err)
}

func TestNewContext_InfersTaskAndImportance(t *testing.T) {
	d := newData(t)
	numeric, err := d.Select([]string{"x"}, nil, true)
	require.NoError(t, err)

	X, err := numeric.FeatureMatrix(nil)
	require.NoError(t, err)
	clf := tree.NewDecisionTreeClassifier()
	require.NoError(t, clf.Fit(X, mat.NewDense(4, 1, numeric.Label())))

	ctx, err := NewContext(numeric, NewEstimatorModel(clf, []string{"x"}))
	require.NoError(t, err)
	assert.Equal(t, Binary, ctx.TaskType)
	assert.True(t, ctx.WithDisplay)

	imp, ok := ctx.FeatureImportance()
	require.True(t, ok)
	assert.InDelta(t, 1.0, imp["x"], 1e-12)

	scorer, err := ctx.SingleScorer(nil)
	require.NoError(t, err)
	assert.Equal(t, scoring.Accuracy, scorer.Name())

	reg := tree.NewDecisionTreeRegressor()
	require.NoError(t, reg.Fit(X, mat.NewDense(4, 1, numeric.Label())))
	ctx, err = NewContext(numeric, NewEstimatorModel(reg, []string{"x"}),
		WithFeatureImportance(map[string]float64{"x": 3}), WithDisplay(false))
	require.NoError(t, err)
	assert.Equal(t, Regression, ctx.TaskType)
	assert.False(t, ctx.WithDisplay)
	imp, _ = ctx.FeatureImportance()
	assert.Equal(t, 3.0, imp["x"])

	ctx, err = NewContext(numeric, NewEstimatorModel(reg, []string{"x"}), WithTaskType(Multiclass))
	require.NoError(t, err)
	assert.Equal(t, Multiclass, ctx.TaskType)
}

func TestNewContext_Validation(t *testing.T) {
	d := newData(t)
	m, err := NewStaticModel(d, mat.NewVecDense(4, nil), nil, nil, false)
	require.NoError(t, err)

	_, err = NewContext(nil, m)
	assert.Error(t, err)
	_, err = NewContext(d, nil)
	assert.Error(t, err)

	unlabeled, err := dataset.New(nil, []dataset.Column{dataset.NewNumericColumn("x", []float64{1})}, "", nil)
	require.NoError(t, err)
	_, err = NewContext(unlabeled, m)
	var ns *errors.NotSupportedError
	assert.True(t, errors.As(err, &ns))
}

func TestEstimatorModel_ProbaRequiresClassifier(t *testing.T) {
	d := newData(t)
	numeric, err := d.Select([]string{"x"}, nil, true)
	require.NoError(t, err)
	X, err := numeric.FeatureMatrix(nil)
	require.NoError(t, err)

	reg := tree.NewDecisionTreeRegressor()
	require.NoError(t, reg.Fit(X, mat.NewDense(4, 1, numeric.Label())))
	em := NewEstimatorModel(reg, []string{"x"})

	pred, err := em.Predict(numeric)
	require.NoError(t, err)
	assert.Equal(t, 4, pred.Len())
	assert.Nil(t, em.Classes())

	_, err = em.PredictProba(numeric)
	var ns *errors.NotSupportedError
	assert.True(t, errors.As(err, &ns))
}

func TestResult_PanelsAndConditions(t *testing.T) {
	r := NewResult("Demo", 0.5)
	assert.NotEqual(t, uuid.Nil, r.RunID)

	r.AddPanel(Panel{Key: "b vs c"})
	r.AddPanel(Panel{Key: "a vs b"})
	r.AddPanel(Panel{Key: "b vs c", Title: "again"})
	panels := r.Panels()
	require.Len(t, panels, 2)
	assert.Equal(t, "b vs c", panels[0].Key)
	assert.Equal(t, "again", panels[0].Title)

	conds := []Condition[float64]{
		{Name: "positive", Eval: func(v float64) (ConditionCategory, string, error) {
			if v > 0 {
				return CategoryPass, "ok", nil
			}
			return CategoryWarn, "not positive", nil
		}},
		{Name: "broken", Eval: func(float64) (ConditionCategory, string, error) {
			return "", "", errors.New("boom")
		}},
	}
	got := r.EvaluateConditions(conds)
	require.Len(t, got, 2)
	assert.Equal(t, CategoryPass, got[0].Category)
	assert.Equal(t, CategoryError, got[1].Category)
	assert.Equal(t, "boom", got[1].Details)
	assert.False(t, r.PassedConditions())
}
