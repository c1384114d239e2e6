package tree

import (
	"fmt"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// treeParams holds the hyperparameters shared by the regressor and the classifier.
type treeParams struct {
	criterion             string
	maxDepth              int // <= 0 means unlimited
	minSamplesSplit       int
	minSamplesLeaf        int
	minWeightFractionLeaf float64
	randomState           int64
}

// Option is a functional option for DecisionTreeRegressor and DecisionTreeClassifier.
type Option func(*treeParams)

// WithCriterion sets the split quality criterion
// ("squared_error", "absolute_error" for regression; "gini", "entropy" for classification).
func WithCriterion(criterion string) Option {
	return func(p *treeParams) {
		p.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. Zero or negative means unlimited.
func WithMaxDepth(depth int) Option {
	return func(p *treeParams) {
		p.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(p *treeParams) {
		p.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in every leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *treeParams) {
		p.minSamplesLeaf = n
	}
}

// WithMinWeightFractionLeaf sets the minimum fraction of the training samples in every leaf.
func WithMinWeightFractionLeaf(f float64) Option {
	return func(p *treeParams) {
		p.minWeightFractionLeaf = f
	}
}

// WithRandomState seeds the feature permutation used when searching splits.
func WithRandomState(seed int64) Option {
	return func(p *treeParams) {
		p.randomState = seed
	}
}

func defaultParams(criterion string) treeParams {
	return treeParams{
		criterion:       criterion,
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     0,
	}
}

func (p *treeParams) getParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":                p.criterion,
		"max_depth":                p.maxDepth,
		"min_samples_split":        p.minSamplesSplit,
		"min_samples_leaf":         p.minSamplesLeaf,
		"min_weight_fraction_leaf": p.minWeightFractionLeaf,
		"random_state":             p.randomState,
	}
}

// setParams applies params atomically: on error nothing is changed.
func (p *treeParams) setParams(params map[string]interface{}, allowed ...string) error {
	next := *p
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok || !contains(allowed, s) {
				return errors.NewValidationError("criterion", fmt.Sprintf("must be one of %v", allowed), value)
			}
			next.criterion = s
		case "max_depth":
			next.maxDepth, err = toInt(key, value)
		case "min_samples_split":
			next.minSamplesSplit, err = toInt(key, value)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = toInt(key, value)
		case "min_weight_fraction_leaf":
			next.minWeightFractionLeaf, err = toFloat(key, value)
		case "random_state":
			var seed int
			seed, err = toInt(key, value)
			next.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	*p = next
	return nil
}

func (p *treeParams) validate(allowed ...string) error {
	if !contains(allowed, p.criterion) {
		return errors.NewValidationError("criterion", fmt.Sprintf("must be one of %v", allowed), p.criterion)
	}
	if p.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", p.minSamplesSplit)
	}
	if p.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.minSamplesLeaf)
	}
	if p.minWeightFractionLeaf < 0 || p.minWeightFractionLeaf > 0.5 {
		return errors.NewValidationError("min_weight_fraction_leaf", "must be in [0, 0.5]", p.minWeightFractionLeaf)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.NewValidationError(key, "must be an integer", value)
		}
		return int(v), nil
	case nil:
		// None in scikit-learn terms
		return 0, nil
	}
	return 0, errors.NewValidationError(key, "must be an integer", value)
}

func toFloat(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(key, "must be a number", value)
}
