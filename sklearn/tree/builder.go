package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

const (
	// featureThreshold is the smallest gap between two sorted feature values
	// that is treated as a possible split position.
	featureThreshold = 1e-7
	// impurityEpsilon marks a node as pure.
	impurityEpsilon = 1e-12
)

// builder grows a tree depth-first.
type builder struct {
	params        treeParams
	crit          criterion
	cols          [][]float64
	minWeightLeaf float64
	rng           *rand.Rand
	importances   []float64
}

type split struct {
	feature   int
	threshold float64
	cost      float64
	left      []int
	right     []int
}

func newBuilder(params treeParams, crit criterion, cols [][]float64, nSamples int) *builder {
	seed := uint64(params.randomState)
	return &builder{
		params:        params,
		crit:          crit,
		cols:          cols,
		minWeightLeaf: params.minWeightFractionLeaf * float64(nSamples),
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		importances:   make([]float64, len(cols)),
	}
}

func (b *builder) build(nSamples, nOutputs int) *Tree {
	idx := make([]int, nSamples)
	for i := range idx {
		idx[i] = i
	}
	return &Tree{
		Root:      b.grow(idx, 0),
		NFeatures: len(b.cols),
		NOutputs:  nOutputs,
	}
}

func (b *builder) grow(idx []int, depth int) *Node {
	n := len(idx)
	cost := b.crit.nodeCost(idx)
	node := &Node{
		Feature:  -1,
		Value:    b.crit.leafValue(idx),
		Impurity: cost / float64(n),
		NSamples: n,
		Depth:    depth,
	}

	minSplit := b.params.minSamplesSplit
	if 2*b.params.minSamplesLeaf > minSplit {
		minSplit = 2 * b.params.minSamplesLeaf
	}
	if (b.params.maxDepth > 0 && depth >= b.params.maxDepth) ||
		n < minSplit ||
		float64(n) < 2*b.minWeightLeaf ||
		node.Impurity <= impurityEpsilon {
		return node
	}

	s, ok := b.bestSplit(idx)
	if !ok {
		return node
	}

	b.importances[s.feature] += cost - s.cost
	node.Feature = s.feature
	node.Threshold = s.threshold
	node.Left = b.grow(s.left, depth+1)
	node.Right = b.grow(s.right, depth+1)
	return node
}

// bestSplit scans the features in a seeded random order and returns the split
// with the lowest child cost. Ties keep the first split found.
func (b *builder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	minLeaf := b.params.minSamplesLeaf
	best := split{cost: math.Inf(1), feature: -1}
	bestPos := -1
	var bestSorted []int

	sorted := make([]int, n)
	costs := make([]float64, n+1)
	for _, f := range b.rng.Perm(len(b.cols)) {
		col := b.cols[f]
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })

		if col[sorted[n-1]] <= col[sorted[0]]+featureThreshold {
			continue
		}

		b.crit.splitCosts(sorted, costs)
		for p := minLeaf; p <= n-minLeaf; p++ {
			lo, hi := col[sorted[p-1]], col[sorted[p]]
			if hi <= lo+featureThreshold {
				continue
			}
			if float64(p) < b.minWeightLeaf || float64(n-p) < b.minWeightLeaf {
				continue
			}
			if costs[p] < best.cost {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, cost: costs[p]}
				bestPos = p
				bestSorted = append(bestSorted[:0], sorted...)
			}
		}
	}

	if bestPos < 0 {
		return split{}, false
	}
	best.left = append([]int(nil), bestSorted[:bestPos]...)
	best.right = append([]int(nil), bestSorted[bestPos:]...)
	return best, true
}

// normalizedImportances returns the impurity decrease per feature scaled to sum to 1.
// A tree without splits yields all zeros.
func (b *builder) normalizedImportances() []float64 {
	out := make([]float64, len(b.importances))
	var total float64
	for _, v := range b.importances {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range b.importances {
		out[i] = v / total
	}
	return out
}

// columns validates X and returns it column-major.
func columns(op string, X mat.Matrix) ([][]float64, int, error) {
	if X == nil {
		return nil, 0, errors.NewValueError(op, "X is nil")
	}
	if d, ok := X.(*mat.Dense); ok && d.IsEmpty() {
		return nil, 0, errors.NewValueError(op, "X is empty")
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, 0, errors.NewValueError(op, "X is empty")
	}
	cols := make([][]float64, nFeatures)
	for j := range cols {
		cols[j] = make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, errors.NewNumericalInstabilityError(op, []float64{v}, i)
			}
			cols[j][i] = v
		}
	}
	return cols, nSamples, nil
}

// target validates y (n×1) and returns it as a slice.
func target(op string, y mat.Matrix, nSamples int) ([]float64, error) {
	if y == nil {
		return nil, errors.NewValueError(op, "y is nil")
	}
	rows, cols := y.Dims()
	if rows != nSamples {
		return nil, errors.NewDimensionError(op, nSamples, rows, 0)
	}
	if cols != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector (n×1 matrix)")
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = y.At(i, 0)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, errors.NewNumericalInstabilityError(op, []float64{out[i]}, i)
		}
	}
	return out, nil
}
