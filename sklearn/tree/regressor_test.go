package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

func stepData() (*mat.Dense, *mat.Dense) {
	// y jumps from 1 to 5 at x0 = 4.5; x1 is noise
	X := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64((i*7)%3))
		if i < 5 {
			y.Set(i, 0, 1)
		} else {
			y.Set(i, 0, 5)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor_FitsStep(t *testing.T) {
	for _, criterion := range []string{CriterionSquaredError, CriterionAbsoluteError} {
		t.Run(criterion, func(t *testing.T) {
			X, y := stepData()
			dt := NewDecisionTreeRegressor(WithCriterion(criterion), WithMaxDepth(3))
			require.NoError(t, dt.Fit(X, y))

			root := dt.Tree().Root
			require.False(t, root.IsLeaf())
			assert.Equal(t, 0, root.Feature)
			assert.InDelta(t, 4.5, root.Threshold, 1e-12)
			assert.Equal(t, 2, dt.GetNLeaves())

			pred, err := dt.Predict(X)
			require.NoError(t, err)
			for i := 0; i < 10; i++ {
				assert.Equal(t, y.At(i, 0), pred.At(i, 0))
			}
			assert.InDelta(t, 1.0, dt.Score(X, y), 1e-12)
			assert.Equal(t, []float64{1, 0}, dt.GetFeatureImportances())
		})
	}
}

func TestDecisionTreeRegressor_ConstantTargetIsSingleLeaf(t *testing.T) {
	X, _ := stepData()
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		y.Set(i, 0, 0.3)
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(5))
	require.NoError(t, dt.Fit(X, y))
	assert.True(t, dt.Tree().Root.IsLeaf())
	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, []float64{0, 0}, dt.GetFeatureImportances())
}

func TestDecisionTreeRegressor_MinSamplesLeafAndWeightFraction(t *testing.T) {
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, math.Sin(float64(i)/7))
	}

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(10), WithMinWeightFractionLeaf(0.1))
	require.NoError(t, dt.Fit(X, y))
	for _, leaf := range dt.Tree().Leaves() {
		assert.GreaterOrEqual(t, leaf.NSamples, 20, "leaf holds less than a tenth of the samples")
	}
}

func TestDecisionTreeRegressor_AbsoluteErrorLeafIsMedian(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{1, 2, 10, 100})

	dt := NewDecisionTreeRegressor(WithCriterion(CriterionAbsoluteError), WithMaxDepth(1), WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))

	leaves := dt.Tree().Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, []float64{1.5}, leaves[0].Value)
	assert.Equal(t, []float64{55}, leaves[1].Value)
}

func TestDecisionTreeRegressor_Deterministic(t *testing.T) {
	n := 300
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%17))
		X.Set(i, 1, float64(i%17)) // duplicate of feature 0
		X.Set(i, 2, float64((i*13)%29))
		y.Set(i, 0, float64(i%17)*0.5+float64((i*13)%29)*0.1)
	}

	fit := func(seed int64) *Tree {
		dt := NewDecisionTreeRegressor(WithMaxDepth(4), WithRandomState(seed))
		require.NoError(t, dt.Fit(X, y))
		return dt.Tree()
	}

	a, b := fit(42), fit(42)
	la, lb := a.Leaves(), b.Leaves()
	require.Equal(t, len(la), len(lb))
	var walk func(x, y *Node)
	walk = func(x, y *Node) {
		require.Equal(t, x.IsLeaf(), y.IsLeaf())
		if x.IsLeaf() {
			assert.Equal(t, x.Value, y.Value)
			return
		}
		assert.Equal(t, x.Feature, y.Feature)
		assert.Equal(t, x.Threshold, y.Threshold)
		walk(x.Left, y.Left)
		walk(x.Right, y.Right)
	}
	walk(a.Root, b.Root)
}

func TestDecisionTreeRegressor_ApplyMatchesPredict(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor(WithMaxDepth(4))
	require.NoError(t, dt.Fit(X, y))

	total := 0
	for _, leaf := range dt.Tree().Leaves() {
		total += leaf.NSamples
	}
	assert.Equal(t, 10, total)

	row := make([]float64, 2)
	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		mat.Row(row, i, X)
		assert.Equal(t, pred.At(i, 0), dt.Tree().Apply(row).Value[0])
	}
}

func TestDecisionTreeRegressor_Errors(t *testing.T) {
	dt := NewDecisionTreeRegressor()

	_, err := dt.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = dt.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}), mat.NewDense(2, 1, []float64{1, 2}))
	var ni *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ni))

	err = dt.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	assert.Error(t, dt.SetParams(map[string]interface{}{"criterion": "gini"}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"max_features": 2}))

	X, y := stepData()
	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	assert.True(t, errors.As(err, &dim))
}

func TestDecisionTreeRegressor_CloneAndParams(t *testing.T) {
	dt := NewDecisionTreeRegressor(WithMaxDepth(5), WithMinSamplesLeaf(10))
	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":                CriterionAbsoluteError,
		"min_weight_fraction_leaf": 0.01,
		"random_state":             float64(7),
	}))

	clone := dt.Clone()
	params := clone.GetParams()
	assert.Equal(t, CriterionAbsoluteError, params["criterion"])
	assert.Equal(t, 5, params["max_depth"])
	assert.Equal(t, 10, params["min_samples_leaf"])
	assert.Equal(t, 0.01, params["min_weight_fraction_leaf"])
	assert.Equal(t, int64(7), params["random_state"])

	_, err := clone.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Error(t, err, "clone must be unfitted")
}
