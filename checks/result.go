package checks

import (
	"github.com/google/uuid"
)

// ConditionCategory is the outcome of a condition.
type ConditionCategory string

const (
	CategoryPass  ConditionCategory = "PASS"
	CategoryWarn  ConditionCategory = "WARN"
	CategoryFail  ConditionCategory = "FAIL"
	CategoryError ConditionCategory = "ERROR"
)

// IsPass reports whether the condition passed.
func (c ConditionCategory) IsPass() bool { return c == CategoryPass }

// ConditionResult is the outcome of one condition on a check value.
type ConditionResult struct {
	Name     string
	Category ConditionCategory
	Details  string
}

// Condition evaluates a check value. When the evaluation itself fails, the
// result is recorded with CategoryError.
type Condition[V any] struct {
	Name string
	Eval func(value V) (ConditionCategory, string, error)
}

// Panel is the data of one heatmap: a grid of cell scores and sample
// fractions laid out Scores[row][col], rows along the Y axis.
type Panel struct {
	Key        string
	Title      string
	XLabel     string
	YLabel     string
	ColorLabel string
	XTicks     []string
	YTicks     []string
	Scores     [][]float64
	Fractions  [][]float64
	Text       [][]string
	Message    string
}

// Result is the output of a check run.
type Result[V any] struct {
	RunID     uuid.UUID
	CheckName string
	Value     V
	Display   map[string]Panel
	// DisplayOrder lists the Display keys in the order they were added.
	DisplayOrder []string
	Conditions   []ConditionResult
}

// NewResult creates a result with a fresh run id.
func NewResult[V any](checkName string, value V) *Result[V] {
	return &Result[V]{
		RunID:     uuid.New(),
		CheckName: checkName,
		Value:     value,
		Display:   map[string]Panel{},
	}
}

// AddPanel stores p under p.Key.
func (r *Result[V]) AddPanel(p Panel) {
	if _, ok := r.Display[p.Key]; !ok {
		r.DisplayOrder = append(r.DisplayOrder, p.Key)
	}
	r.Display[p.Key] = p
}

// Panels returns the panels in the order they were added.
func (r *Result[V]) Panels() []Panel {
	out := make([]Panel, 0, len(r.DisplayOrder))
	for _, k := range r.DisplayOrder {
		out = append(out, r.Display[k])
	}
	return out
}

// EvaluateConditions runs every condition on the result value and stores the
// outcomes.
func (r *Result[V]) EvaluateConditions(conds []Condition[V]) []ConditionResult {
	r.Conditions = r.Conditions[:0]
	for _, c := range conds {
		cat, details, err := c.Eval(r.Value)
		if err != nil {
			cat, details = CategoryError, err.Error()
		}
		r.Conditions = append(r.Conditions, ConditionResult{Name: c.Name, Category: cat, Details: details})
	}
	return r.Conditions
}

// PassedConditions reports whether every condition passed.
func (r *Result[V]) PassedConditions() bool {
	for _, c := range r.Conditions {
		if !c.Category.IsPass() {
			return false
		}
	}
	return true
}
