package model_selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/sklearn/tree"
)

func TestKFold_ContiguousFolds(t *testing.T) {
	kf := NewKFold(3, false, 0)
	folds, err := kf.Split(mat.NewDense(10, 1, nil))
	require.NoError(t, err)
	require.Len(t, folds, 3)

	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].TestIndices)
	assert.Equal(t, []int{4, 5, 6}, folds[1].TestIndices)
	assert.Equal(t, []int{7, 8, 9}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 3, 7, 8, 9}, folds[1].TrainIndices)
}

func TestKFold_ShuffleIsPartition(t *testing.T) {
	X := mat.NewDense(23, 2, nil)
	a, err := NewKFold(4, true, 42).Split(X)
	require.NoError(t, err)
	b, err := NewKFold(4, true, 42).Split(X)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	seen := make(map[int]int)
	for _, f := range a {
		assert.Len(t, f.TrainIndices, 23-len(f.TestIndices))
		for _, i := range f.TestIndices {
			seen[i]++
		}
	}
	assert.Len(t, seen, 23)
	for i, n := range seen {
		assert.Equal(t, 1, n, "sample %d tested more than once", i)
	}
}

func TestKFold_TooManySplits(t *testing.T) {
	_, err := NewKFold(5, false, 0).Split(mat.NewDense(3, 1, nil))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestParamGrid_Candidates(t *testing.T) {
	grid := ParamGrid{
		"max_depth": {1, 2},
		"criterion": {"squared_error", "absolute_error"},
	}
	got := grid.Candidates()
	require.Len(t, got, 4)
	assert.Equal(t, map[string]interface{}{"criterion": "squared_error", "max_depth": 1}, got[0])
	assert.Equal(t, map[string]interface{}{"criterion": "squared_error", "max_depth": 2}, got[1])
	assert.Equal(t, map[string]interface{}{"criterion": "absolute_error", "max_depth": 1}, got[2])

	assert.Equal(t, []map[string]interface{}{{}}, ParamGrid{}.Candidates())
}

func stepData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%10))
		X.Set(i, 1, float64(i))
		if i%10 >= 5 {
			y.Set(i, 0, 3)
		}
	}
	return X, y
}

// depthScore prefers max_depth 3 without looking at the data.
func depthScore(est model.Tunable, _, _ mat.Matrix) (float64, error) {
	d := est.GetParams()["max_depth"].(int)
	return -math.Abs(float64(d - 3)), nil
}

func TestGridSearchCV_SelectsBestAndRefits(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		X, y := stepData(30)
		gs := NewGridSearchCV(tree.NewDecisionTreeRegressor(),
			ParamGrid{"max_depth": {1, 2, 3, 4}},
			WithCV(NewKFold(3, false, 0)),
			WithScoring(depthScore),
			WithNJobs(jobs),
		)
		require.NoError(t, gs.Fit(X, y))

		assert.Equal(t, 2, gs.BestIndex_)
		assert.Equal(t, 3, gs.BestParams_["max_depth"])
		assert.Equal(t, 0.0, gs.BestScore_)
		ranks := []int{}
		for _, r := range gs.CVResults_ {
			ranks = append(ranks, r.Rank)
			assert.Len(t, r.FoldScores, 3)
		}
		assert.Equal(t, []int{4, 2, 1, 2}, ranks)

		require.NotNil(t, gs.BestEstimator_)
		pred, err := gs.BestEstimator_.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, 3.0, pred.At(7, 0))
		assert.Equal(t, 0.0, pred.At(2, 0))
	}
}

func TestGridSearchCV_DefaultScoring(t *testing.T) {
	X, y := stepData(30)
	gs := NewGridSearchCV(tree.NewDecisionTreeRegressor(),
		ParamGrid{"criterion": {tree.CriterionSquaredError, tree.CriterionAbsoluteError}},
		WithCV(NewKFold(3, false, 0)),
	)
	require.NoError(t, gs.Fit(X, y))
	// each fold holds every x0 value, so both criteria predict perfectly
	assert.Equal(t, 0, gs.BestIndex_)
	assert.InDelta(t, 0.0, gs.BestScore_, 1e-12)
}

func TestGridSearchCV_NaNCandidatesRankLast(t *testing.T) {
	X, y := stepData(30)
	scoring := func(est model.Tunable, _, _ mat.Matrix) (float64, error) {
		if est.GetParams()["max_depth"].(int) == 1 {
			return math.NaN(), nil
		}
		return -1, nil
	}
	gs := NewGridSearchCV(tree.NewDecisionTreeRegressor(),
		ParamGrid{"max_depth": {1, 2}},
		WithCV(NewKFold(3, false, 0)),
		WithScoring(scoring),
	)
	require.NoError(t, gs.Fit(X, y))
	assert.Equal(t, 1, gs.BestIndex_)
	assert.Equal(t, 2, gs.CVResults_[0].Rank)
	assert.True(t, math.IsNaN(gs.CVResults_[0].MeanScore))
}

func TestGridSearchCV_AllCandidatesFail(t *testing.T) {
	X, y := stepData(30)
	scoring := func(model.Tunable, mat.Matrix, mat.Matrix) (float64, error) {
		return 0, errors.New("single leaf")
	}
	gs := NewGridSearchCV(tree.NewDecisionTreeRegressor(),
		ParamGrid{"max_depth": {1, 2}},
		WithCV(NewKFold(3, false, 0)),
		WithScoring(scoring),
	)
	err := gs.Fit(X, y)
	require.Error(t, err)
	var me *errors.ModelError
	assert.True(t, errors.As(err, &me))
	assert.Nil(t, gs.BestEstimator_)
}

func TestGridSearchCV_ScoringPanicIsAbsorbed(t *testing.T) {
	X, y := stepData(30)
	scoring := func(est model.Tunable, _, _ mat.Matrix) (float64, error) {
		if est.GetParams()["max_depth"].(int) == 2 {
			panic("boom")
		}
		return -1, nil
	}
	gs := NewGridSearchCV(tree.NewDecisionTreeRegressor(),
		ParamGrid{"max_depth": {1, 2}},
		WithCV(NewKFold(3, false, 0)),
		WithScoring(scoring),
		WithRefit(false),
	)
	require.NoError(t, gs.Fit(X, y))
	assert.Equal(t, 0, gs.BestIndex_)
	assert.Nil(t, gs.BestEstimator_)
}
