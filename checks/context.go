// Package checks holds what every validation check shares: the run context
// (dataset, model, task type, feature importance), model adapters and the
// result and condition types.
package checks

import (
	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/scoring"
)

// TaskType is the kind of supervised problem under validation.
type TaskType = scoring.TaskType

const (
	Regression = scoring.Regression
	Binary     = scoring.Binary
	Multiclass = scoring.Multiclass
)

// importanceProvider is implemented by models that know their feature importance.
type importanceProvider interface {
	FeatureImportances() map[string]float64
}

// Context is the input of a check run.
type Context struct {
	Dataset     *dataset.Dataset
	Model       scoring.Model
	TaskType    TaskType
	WithDisplay bool

	importance map[string]float64
	taskSet    bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithTaskType sets the task type instead of inferring it from the model.
func WithTaskType(t TaskType) ContextOption {
	return func(c *Context) {
		c.TaskType = t
		c.taskSet = true
	}
}

// WithFeatureImportance sets the importance of each feature, higher is more important.
func WithFeatureImportance(importance map[string]float64) ContextOption {
	return func(c *Context) {
		c.importance = importance
	}
}

// WithDisplay controls whether checks build display panels. Default true.
func WithDisplay(enabled bool) ContextOption {
	return func(c *Context) {
		c.WithDisplay = enabled
	}
}

// NewContext validates the inputs of a check run.
// Without WithTaskType, a model exposing two classes is Binary, more classes
// Multiclass, and anything else Regression.
func NewContext(data *dataset.Dataset, m scoring.Model, opts ...ContextOption) (*Context, error) {
	if data == nil {
		return nil, errors.NewValueError("checks.NewContext", "dataset is nil")
	}
	if !data.HasLabel() {
		return nil, errors.NewNotSupportedError("checks.NewContext", "dataset has no label column")
	}
	if len(data.Features()) == 0 {
		return nil, errors.NewNotSupportedError("checks.NewContext", "dataset has no features")
	}
	if m == nil {
		return nil, errors.NewValueError("checks.NewContext", "model is nil")
	}

	c := &Context{Dataset: data, Model: m, WithDisplay: true}
	for _, opt := range opts {
		opt(c)
	}
	if !c.taskSet {
		c.TaskType = inferTaskType(m)
	}
	if c.importance == nil {
		if p, ok := m.(importanceProvider); ok {
			c.importance = p.FeatureImportances()
		}
	}
	return c, nil
}

func inferTaskType(m scoring.Model) TaskType {
	lister, ok := m.(scoring.ClassLister)
	if !ok {
		return Regression
	}
	switch n := len(lister.Classes()); {
	case n == 2:
		return Binary
	case n > 2:
		return Multiclass
	}
	return Regression
}

// FeatureImportance returns the importance of each feature when known.
func (c *Context) FeatureImportance() (map[string]float64, bool) {
	if len(c.importance) == 0 {
		return nil, false
	}
	out := make(map[string]float64, len(c.importance))
	for k, v := range c.importance {
		out[k] = v
	}
	return out, true
}

// SingleScorer resolves spec for the task; nil selects the task default.
func (c *Context) SingleScorer(spec *scoring.MetricSpec) (scoring.Scorer, error) {
	return scoring.Resolve(spec, c.TaskType)
}
