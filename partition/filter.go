// Package partition turns fitted decision trees into rectangular filters over
// features and builds display boundaries around a segment.
package partition

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/sklearn/tree"
)

// Range is the half-open interval Lower < x <= Upper.
type Range struct {
	Lower float64
	Upper float64
}

// Unbounded returns the range covering every value.
func Unbounded() Range {
	return Range{Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// Contains reports whether x lies in the range. NaN is never contained.
func (r Range) Contains(x float64) bool {
	return x > r.Lower && x <= r.Upper
}

// IsUnbounded reports whether both edges are infinite.
func (r Range) IsUnbounded() bool {
	return math.IsInf(r.Lower, -1) && math.IsInf(r.Upper, 1)
}

func (r Range) String() string {
	return fmt.Sprintf("(%g, %g]", r.Lower, r.Upper)
}

// Filter constrains features to ranges. A feature not in the filter is unconstrained.
type Filter map[string]Range

// Clone returns a copy of f.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Get returns the range of feature, or Unbounded when f does not constrain it.
func (f Filter) Get(feature string) Range {
	if r, ok := f[feature]; ok {
		return r
	}
	return Unbounded()
}

// Apply returns the rows of d that satisfy every constraint, in row order.
// Constrained features must be numeric.
func (f Filter) Apply(d *dataset.Dataset) ([]int, error) {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([][]float64, len(names))
	for j, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return nil, errors.NewValidationError("filter", "unknown feature column", name)
		}
		if c.Kind != dataset.Numeric {
			return nil, errors.NewValueError("Filter.Apply",
				fmt.Sprintf("feature %q is categorical; filters apply to encoded data", name))
		}
		cols[j] = c.Numeric
	}

	rows := []int{}
	for i := 0; i < d.NSamples(); i++ {
		match := true
		for j, name := range names {
			if !f[name].Contains(cols[j][i]) {
				match = false
				break
			}
		}
		if match {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

// ConvertTreeLeavesIntoFilters returns one filter per leaf, left to right.
// A left child adds x <= threshold, a right child adds x > threshold, and each
// leaf filter is the conjunction of the constraints on its path. The filters
// never overlap and together cover the whole input space.
func ConvertTreeLeavesIntoFilters(t *tree.Tree, featureNames []string) ([]Filter, error) {
	if t == nil || t.Root == nil {
		return nil, errors.NewValueError("ConvertTreeLeavesIntoFilters", "tree is not fitted")
	}
	if len(featureNames) != t.NFeatures {
		return nil, errors.NewDimensionError("ConvertTreeLeavesIntoFilters", t.NFeatures, len(featureNames), 1)
	}

	var out []Filter
	var walk func(n *tree.Node, f Filter)
	walk = func(n *tree.Node, f Filter) {
		if n.IsLeaf() {
			out = append(out, f)
			return
		}
		name := featureNames[n.Feature]
		r := f.Get(name)

		left := f.Clone()
		left[name] = Range{Lower: r.Lower, Upper: math.Min(r.Upper, n.Threshold)}
		walk(n.Left, left)

		right := f
		right[name] = Range{Lower: math.Max(r.Lower, n.Threshold), Upper: r.Upper}
		walk(n.Right, right)
	}
	walk(t.Root, Filter{})
	return out, nil
}
