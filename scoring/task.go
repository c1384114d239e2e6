package scoring

import (
	"strings"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// TaskType is the kind of supervised problem a model solves.
type TaskType int

const (
	Regression TaskType = iota
	Binary
	Multiclass
)

func (t TaskType) String() string {
	switch t {
	case Binary:
		return "binary"
	case Multiclass:
		return "multiclass"
	default:
		return "regression"
	}
}

// IsClassification reports whether t is Binary or Multiclass.
func (t TaskType) IsClassification() bool {
	return t == Binary || t == Multiclass
}

// ParseTaskType parses "regression", "binary" or "multiclass".
func ParseTaskType(s string) (TaskType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regression":
		return Regression, nil
	case "binary":
		return Binary, nil
	case "multiclass":
		return Multiclass, nil
	}
	return Regression, errors.NewValidationError("task_type", "must be regression, binary or multiclass", s)
}
