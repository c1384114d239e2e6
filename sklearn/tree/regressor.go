package tree

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/core/parallel"
	"github.com/YuminosukeSato/sciguard/metrics"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
)

// predictParallelThreshold is the number of rows above which Predict fans out.
const predictParallelThreshold = 2048

// DecisionTreeRegressor is a CART regression tree.
// Compatible with scikit-learn's DecisionTreeRegressor for the supported parameters.
type DecisionTreeRegressor struct {
	treeParams
	state *model.StateManager

	tree_               *Tree
	featureImportances_ []float64
}

// NewDecisionTreeRegressor creates a regressor using the squared_error criterion by default.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		treeParams: defaultParams(CriterionSquaredError),
		state:      model.NewStateManager("DecisionTreeRegressor"),
	}
	for _, opt := range opts {
		opt(&dt.treeParams)
	}
	return dt
}

// Fit grows the tree on X (n×d) and y (n×1).
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	const op = "DecisionTreeRegressor.Fit"
	if err := dt.validate(CriterionSquaredError, CriterionAbsoluteError); err != nil {
		return err
	}
	cols, nSamples, err := columns(op, X)
	if err != nil {
		return err
	}
	yv, err := target(op, y, nSamples)
	if err != nil {
		return err
	}

	var crit criterion
	if dt.criterion == CriterionAbsoluteError {
		crit = &absoluteError{y: yv}
	} else {
		crit = &squaredError{y: yv}
	}

	b := newBuilder(dt.treeParams, crit, cols, nSamples)
	dt.tree_ = b.build(nSamples, 1)
	dt.featureImportances_ = b.normalizedImportances()
	dt.state.SetFitted(len(cols), nSamples)

	logger := log.GetLoggerWithName("tree")
	if logger.Enabled(context.Background(), log.LevelDebug) {
		logger.Debug("tree fitted",
			log.ModelNameKey, "DecisionTreeRegressor",
			log.SamplesKey, nSamples,
			log.FeaturesKey, len(cols),
			log.TreeDepthKey, dt.tree_.Depth(),
			log.TreeLeavesKey, dt.tree_.NLeaves(),
		)
	}
	return nil
}

// Predict returns the leaf value for every row of X as an n×1 matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	rows, _, err := checkPredictInput(dt.state, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	applyRows(dt.tree_, X, func(i int, leaf *Node) {
		out.Set(i, 0, leaf.Value[0])
	})
	return out, nil
}

// Score returns the coefficient of determination R² of the prediction.
// NaN is returned when it is undefined.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return math.NaN()
	}
	r2, err := metrics.R2Score(columnVec(y), columnVec(pred))
	if err != nil {
		return math.NaN()
	}
	return r2
}

// Tree returns the fitted tree, or nil before Fit.
func (dt *DecisionTreeRegressor) Tree() *Tree {
	return dt.tree_
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NLeaves()
}

// GetFeatureImportances returns the normalized impurity-based importances.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.getParams()
}

// SetParams updates the hyperparameters and resets the fitted state.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	if err := dt.setParams(params, CriterionSquaredError, CriterionAbsoluteError); err != nil {
		return err
	}
	dt.state.Reset()
	dt.tree_ = nil
	return nil
}

// Clone returns an unfitted regressor with the same hyperparameters.
func (dt *DecisionTreeRegressor) Clone() model.Tunable {
	return &DecisionTreeRegressor{
		treeParams: dt.treeParams,
		state:      model.NewStateManager("DecisionTreeRegressor"),
	}
}

func checkPredictInput(state *model.StateManager, X mat.Matrix) (int, int, error) {
	if X == nil {
		return 0, 0, errors.NewValueError("Predict", "X is nil")
	}
	if d, ok := X.(*mat.Dense); ok && d.IsEmpty() {
		return 0, 0, errors.NewValueError("Predict", "X is empty")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return 0, 0, errors.NewValueError("Predict", "X is empty")
	}
	if err := state.RequireFeatures("Predict", cols); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// applyRows routes every row of X to its leaf and calls fn with the row index.
func applyRows(t *Tree, X mat.Matrix, fn func(i int, leaf *Node)) {
	rows, cols := X.Dims()
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			fn(i, t.Apply(row))
		}
	})
}

func columnVec(m mat.Matrix) *mat.VecDense {
	rows, _ := m.Dims()
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
