package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/sklearn/model_selection"
)

// handTree splits on x1 <= 0.5, then on x0 <= 2 to the right.
func handTree() (*Tree, []*Node) {
	a := &Node{Feature: -1, Value: []float64{10}, NSamples: 4, Depth: 1}
	b := &Node{Feature: -1, Value: []float64{20}, NSamples: 3, Depth: 2}
	c := &Node{Feature: -1, Value: []float64{30}, NSamples: 3, Depth: 2}
	right := &Node{Feature: 0, Threshold: 2, Left: b, Right: c, NSamples: 6, Depth: 1}
	root := &Node{Feature: 1, Threshold: 0.5, Left: a, Right: right, NSamples: 10}
	return &Tree{Root: root, NFeatures: 2, NOutputs: 1}, []*Node{a, b, c}
}

func TestTree_Walk(t *testing.T) {
	tr, leaves := handTree()

	assert.Equal(t, leaves, tr.Leaves())
	assert.Equal(t, 2, tr.Depth())
	assert.Equal(t, 3, tr.NLeaves())
	assert.Equal(t, 5, tr.NodeCount())
	assert.False(t, tr.Root.IsLeaf())

	tests := []struct {
		name string
		row  []float64
		want *Node
	}{
		{"threshold goes left", []float64{9, 0.5}, leaves[0]},
		{"right then left", []float64{2, 1}, leaves[1]},
		{"right then right", []float64{2.1, 1}, leaves[2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, tr.Apply(tt.row))
		})
	}
}

func TestTree_Empty(t *testing.T) {
	tr := &Tree{}
	assert.Empty(t, tr.Leaves())
	assert.Equal(t, 0, tr.NodeCount())
	assert.Equal(t, 0, tr.Depth())
}

// threeClassData labels x0 in [0, 3) as 9, [3, 6) as 2 and [6, 9) as 5.
// x1 is constant.
func threeClassData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(9, 2, nil)
	y := mat.NewDense(9, 1, nil)
	labels := []float64{9, 2, 5}
	for i := 0; i < 9; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, 1)
		y.Set(i, 0, labels[i/3])
	}
	return X, y
}

func TestDecisionTreeClassifier_ClassOrder(t *testing.T) {
	for _, criterion := range []string{CriterionGini, CriterionEntropy} {
		t.Run(criterion, func(t *testing.T) {
			X, y := threeClassData()
			dt := NewDecisionTreeClassifier(WithCriterion(criterion))
			require.NoError(t, dt.Fit(X, y))

			assert.Equal(t, []float64{2, 5, 9}, dt.Classes())
			assert.Equal(t, 3, dt.GetNLeaves())
			assert.Equal(t, []float64{1, 0}, dt.GetFeatureImportances())
			assert.InDelta(t, 1.0, dt.Score(X, y), 1e-12)

			proba, err := dt.PredictProba(X)
			require.NoError(t, err)
			r, c := proba.Dims()
			require.Equal(t, 9, r)
			require.Equal(t, 3, c)
			// columns follow Classes()
			assert.Equal(t, []float64{0, 0, 1}, mat.Row(nil, 0, proba))
			assert.Equal(t, []float64{1, 0, 0}, mat.Row(nil, 4, proba))
			assert.Equal(t, []float64{0, 1, 0}, mat.Row(nil, 8, proba))

			for _, leaf := range dt.Tree().Leaves() {
				assert.Len(t, leaf.Value, 3)
				assert.Zero(t, leaf.Impurity)
			}
		})
	}
}

func TestDecisionTreeClassifier_MaxDepth(t *testing.T) {
	X, y := threeClassData()
	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 1, dt.GetDepth())
	assert.Equal(t, 2, dt.GetNLeaves())
	// one pure leaf of three rows, one mixed leaf of six
	assert.InDelta(t, 2.0/3, dt.Score(X, y), 1e-12)

	var sizes []int
	for _, leaf := range dt.Tree().Leaves() {
		sizes = append(sizes, leaf.NSamples)
	}
	assert.ElementsMatch(t, []int{3, 6}, sizes)
}

func TestDecisionTreeClassifier_SetParams(t *testing.T) {
	X, y := threeClassData()
	dt := NewDecisionTreeClassifier(WithMaxDepth(4))
	require.NoError(t, dt.Fit(X, y))

	err := dt.SetParams(map[string]interface{}{"max_depth": 1, "criterion": CriterionSquaredError})
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 4, dt.GetParams()["max_depth"], "a rejected update changes nothing")
	assert.NotNil(t, dt.Tree())

	// grid values decoded from YAML arrive as float64
	require.NoError(t, dt.SetParams(map[string]interface{}{"max_depth": float64(1), "criterion": CriterionEntropy}))
	assert.Nil(t, dt.Tree())
	_, err = dt.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	clone := dt.Clone()
	assert.Equal(t, dt.GetParams(), clone.GetParams())
	require.NoError(t, clone.Fit(X, y))
	assert.Nil(t, dt.Tree(), "fitting the clone leaves the original unfitted")
}

func TestGridSearchCV_RefitsClonedTree(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64((i*7)%5))
		if i >= n/2 {
			y.Set(i, 0, 4)
		}
	}

	base := NewDecisionTreeRegressor(WithRandomState(3))
	gs := model_selection.NewGridSearchCV(base, model_selection.ParamGrid{
		"criterion": {CriterionSquaredError, CriterionAbsoluteError},
		"max_depth": {1, 3},
	}, model_selection.WithCV(model_selection.NewKFold(4, true, 1)))
	require.NoError(t, gs.Fit(X, y))

	assert.Len(t, gs.CVResults_, 4)
	assert.LessOrEqual(t, gs.BestScore_, 0.0)
	assert.Nil(t, base.Tree(), "the search works on clones")

	best, ok := gs.BestEstimator_.(*DecisionTreeRegressor)
	require.True(t, ok)
	require.NotNil(t, best.Tree())
	params := best.GetParams()
	assert.Equal(t, gs.BestParams_["criterion"], params["criterion"])
	assert.Equal(t, gs.BestParams_["max_depth"], params["max_depth"])
	assert.Equal(t, int64(3), params["random_state"])
	assert.InDelta(t, 1.0, best.Score(X, y), 1e-12)
}
