package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/metrics"
)

// DecisionTreeClassifier is a CART classification tree.
// Compatible with scikit-learn's DecisionTreeClassifier for the supported parameters.
type DecisionTreeClassifier struct {
	treeParams
	state *model.StateManager

	tree_               *Tree
	classes_            []float64 // sorted unique labels
	nClasses_           int
	featureImportances_ []float64
}

// NewDecisionTreeClassifier creates a classifier using the gini criterion by default.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		treeParams: defaultParams(CriterionGini),
		state:      model.NewStateManager("DecisionTreeClassifier"),
	}
	for _, opt := range opts {
		opt(&dt.treeParams)
	}
	return dt
}

// Fit grows the tree on X (n×d) and the class labels y (n×1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	const op = "DecisionTreeClassifier.Fit"
	if err := dt.validate(CriterionGini, CriterionEntropy); err != nil {
		return err
	}
	cols, nSamples, err := columns(op, X)
	if err != nil {
		return err
	}
	labels, err := target(op, y, nSamples)
	if err != nil {
		return err
	}

	dt.classes_ = uniqueSorted(labels)
	dt.nClasses_ = len(dt.classes_)
	encoded := make([]int, nSamples)
	for i, v := range labels {
		encoded[i] = sort.SearchFloat64s(dt.classes_, v)
	}

	crit := &classCriterion{y: encoded, nClasses: dt.nClasses_, entropy: dt.criterion == CriterionEntropy}
	b := newBuilder(dt.treeParams, crit, cols, nSamples)
	dt.tree_ = b.build(nSamples, dt.nClasses_)
	dt.featureImportances_ = b.normalizedImportances()
	dt.state.SetFitted(len(cols), nSamples)
	return nil
}

// Predict returns the most probable class label for every row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	rows, _, err := checkPredictInput(dt.state, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	applyRows(dt.tree_, X, func(i int, leaf *Node) {
		best := 0
		for k, p := range leaf.Value {
			if p > leaf.Value[best] {
				best = k
			}
		}
		out.Set(i, 0, dt.classes_[best])
	})
	return out, nil
}

// PredictProba returns the class probabilities (n × number of classes).
// Columns follow Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("PredictProba"); err != nil {
		return nil, err
	}
	rows, _, err := checkPredictInput(dt.state, X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, dt.nClasses_, nil)
	applyRows(dt.tree_, X, func(i int, leaf *Node) {
		out.SetRow(i, leaf.Value)
	})
	return out, nil
}

// Score returns the mean accuracy on X and y. NaN is returned on invalid input.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return math.NaN()
	}
	acc, err := metrics.Accuracy(columnVec(y), columnVec(pred))
	if err != nil {
		return math.NaN()
	}
	return acc
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// Tree returns the fitted tree, or nil before Fit.
func (dt *DecisionTreeClassifier) Tree() *Tree {
	return dt.tree_
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NLeaves()
}

// GetFeatureImportances returns the normalized impurity-based importances.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.getParams()
}

// SetParams updates the hyperparameters and resets the fitted state.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	if err := dt.setParams(params, CriterionGini, CriterionEntropy); err != nil {
		return err
	}
	dt.state.Reset()
	dt.tree_ = nil
	return nil
}

// Clone returns an unfitted classifier with the same hyperparameters.
func (dt *DecisionTreeClassifier) Clone() model.Tunable {
	return &DecisionTreeClassifier{
		treeParams: dt.treeParams,
		state:      model.NewStateManager("DecisionTreeClassifier"),
	}
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0)
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
