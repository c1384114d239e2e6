// Package dataset holds labeled tabular data: named numeric or categorical
// feature columns, an optional float64 label and a stable sample index.
package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// Kind is the type of a feature column.
type Kind int

const (
	// Numeric columns hold float64 values with NaN for missing.
	Numeric Kind = iota
	// Categorical columns hold strings with "" for missing.
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is one named feature column.
type Column struct {
	Name        string
	Kind        Kind
	Numeric     []float64
	Categorical []string
}

// NewNumericColumn creates a numeric column.
func NewNumericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: Numeric, Numeric: values}
}

// NewCategoricalColumn creates a categorical column.
func NewCategoricalColumn(name string, values []string) Column {
	return Column{Name: name, Kind: Categorical, Categorical: values}
}

// Len returns the number of values.
func (c Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Categorical)
	}
	return len(c.Numeric)
}

func (c Column) take(rows []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Categorical {
		out.Categorical = make([]string, len(rows))
		for i, r := range rows {
			out.Categorical[i] = c.Categorical[r]
		}
		return out
	}
	out.Numeric = make([]float64, len(rows))
	for i, r := range rows {
		out.Numeric[i] = c.Numeric[r]
	}
	return out
}

// Dataset is an immutable labeled table. Every operation returns a new Dataset.
type Dataset struct {
	index     []string
	position  map[string]int
	columns   []Column
	byName    map[string]int
	labelName string
	label     []float64
}

// New builds a dataset. A nil index becomes "0".."n-1". labelName may be empty
// for unlabeled data, in which case label must be nil.
func New(index []string, columns []Column, labelName string, label []float64) (*Dataset, error) {
	const op = "dataset.New"
	var n int
	switch {
	case len(columns) > 0:
		n = columns[0].Len()
	case label != nil:
		n = len(label)
	case index != nil:
		n = len(index)
	}

	d := &Dataset{
		columns:   columns,
		byName:    make(map[string]int, len(columns)),
		labelName: labelName,
		label:     label,
	}
	for i, c := range columns {
		if c.Len() != n {
			return nil, errors.NewDimensionError(op+" column "+c.Name, n, c.Len(), 0)
		}
		if _, dup := d.byName[c.Name]; dup || c.Name == "" {
			return nil, errors.NewValidationError("columns", "column names must be unique and non-empty", c.Name)
		}
		if c.Name == labelName {
			return nil, errors.NewValidationError("columns", "feature column has the label name", c.Name)
		}
		d.byName[c.Name] = i
	}
	if labelName == "" && label != nil {
		return nil, errors.NewValidationError("label", "label values given without a label name", len(label))
	}
	if label != nil && len(label) != n {
		return nil, errors.NewDimensionError(op+" label", n, len(label), 0)
	}

	if index == nil {
		index = make([]string, n)
		for i := range index {
			index[i] = strconv.Itoa(i)
		}
	}
	if len(index) != n {
		return nil, errors.NewDimensionError(op+" index", n, len(index), 0)
	}
	d.index = index
	d.position = make(map[string]int, n)
	for i, id := range index {
		if _, dup := d.position[id]; dup {
			return nil, errors.NewValidationError("index", "sample ids must be unique", id)
		}
		d.position[id] = i
	}
	return d, nil
}

// NSamples returns the number of rows.
func (d *Dataset) NSamples() int { return len(d.index) }

// Index returns the sample ids in row order.
func (d *Dataset) Index() []string { return append([]string(nil), d.index...) }

// Position returns the row of sample id.
func (d *Dataset) Position(id string) (int, bool) {
	p, ok := d.position[id]
	return p, ok
}

// Features returns the feature names in column order.
func (d *Dataset) Features() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name
	}
	return out
}

// CatFeatures returns the categorical feature names in column order.
func (d *Dataset) CatFeatures() []string {
	var out []string
	for _, c := range d.columns {
		if c.Kind == Categorical {
			out = append(out, c.Name)
		}
	}
	return out
}

// IsCategorical reports whether name is a categorical feature.
func (d *Dataset) IsCategorical(name string) bool {
	c, ok := d.Column(name)
	return ok && c.Kind == Categorical
}

// Column returns the named feature column. The returned slices must not be modified.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[i], true
}

// Columns returns every feature column.
func (d *Dataset) Columns() []Column { return append([]Column(nil), d.columns...) }

// HasLabel reports whether the dataset is labeled.
func (d *Dataset) HasLabel() bool { return d.label != nil }

// LabelName returns the label column name.
func (d *Dataset) LabelName() string { return d.labelName }

// Label returns the label values. The slice must not be modified.
func (d *Dataset) Label() []float64 { return d.label }

// LabelVector returns the label as a vector, or nil for unlabeled data.
func (d *Dataset) LabelVector() *mat.VecDense {
	if d.label == nil || len(d.label) == 0 {
		return nil
	}
	return mat.NewVecDense(len(d.label), append([]float64(nil), d.label...))
}

// Take returns the rows at the given positions, in that order.
func (d *Dataset) Take(rows []int) *Dataset {
	out := &Dataset{
		index:     make([]string, len(rows)),
		position:  make(map[string]int, len(rows)),
		columns:   make([]Column, len(d.columns)),
		byName:    d.byName,
		labelName: d.labelName,
	}
	for i, r := range rows {
		out.index[i] = d.index[r]
		out.position[d.index[r]] = i
	}
	for j, c := range d.columns {
		out.columns[j] = c.take(rows)
	}
	if d.label != nil {
		out.label = make([]float64, len(rows))
		for i, r := range rows {
			out.label[i] = d.label[r]
		}
	}
	return out
}

// Sample returns up to n rows drawn without replacement with a seeded generator.
// With dropNaLabel, rows whose label is NaN are removed first. When n covers
// every remaining row, they are returned in their original order.
func (d *Dataset) Sample(n int, seed int64, dropNaLabel bool) *Dataset {
	rows := make([]int, 0, d.NSamples())
	for i := 0; i < d.NSamples(); i++ {
		if dropNaLabel && d.label != nil && math.IsNaN(d.label[i]) {
			continue
		}
		rows = append(rows, i)
	}
	if n >= 0 && n < len(rows) {
		s := uint64(seed)
		r := rand.New(rand.NewPCG(s, s))
		r.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		rows = rows[:n]
	}
	return d.Take(rows)
}

// Select keeps the given feature columns, or every column except ignore when
// columns is nil. Unknown names are rejected. The label is dropped unless keepLabel.
func (d *Dataset) Select(columns, ignore []string, keepLabel bool) (*Dataset, error) {
	for _, name := range append(append([]string(nil), columns...), ignore...) {
		if _, ok := d.byName[name]; !ok {
			return nil, errors.NewValidationError("columns", "unknown feature column", name)
		}
	}

	var names []string
	if columns != nil {
		names = columns
	} else {
		skip := make(map[string]bool, len(ignore))
		for _, name := range ignore {
			skip[name] = true
		}
		for _, c := range d.columns {
			if !skip[c.Name] {
				names = append(names, c.Name)
			}
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = d.columns[d.byName[name]]
	}
	labelName, label := "", []float64(nil)
	if keepLabel {
		labelName, label = d.labelName, d.label
	}
	return New(d.index, cols, labelName, label)
}

// WithColumns returns a copy where the given columns replace the same-named ones.
func (d *Dataset) WithColumns(replacements ...Column) (*Dataset, error) {
	cols := append([]Column(nil), d.columns...)
	for _, r := range replacements {
		i, ok := d.byName[r.Name]
		if !ok {
			return nil, errors.NewValidationError("columns", "unknown feature column", r.Name)
		}
		cols[i] = r
	}
	return New(d.index, cols, d.labelName, d.label)
}

// FeatureMatrix returns the named numeric features as an n×len(features) matrix.
// Every feature when features is nil.
func (d *Dataset) FeatureMatrix(features []string) (*mat.Dense, error) {
	if features == nil {
		features = d.Features()
	}
	if d.NSamples() == 0 || len(features) == 0 {
		return nil, errors.NewModelError("dataset.FeatureMatrix", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewDense(d.NSamples(), len(features), nil)
	for j, name := range features {
		c, ok := d.Column(name)
		if !ok {
			return nil, errors.NewValidationError("features", "unknown feature column", name)
		}
		if c.Kind != Numeric {
			return nil, errors.NewValueError("dataset.FeatureMatrix",
				fmt.Sprintf("feature %q is categorical; encode it first", name))
		}
		out.SetCol(j, c.Numeric)
	}
	return out, nil
}
