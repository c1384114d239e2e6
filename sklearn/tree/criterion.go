package tree

import (
	"container/heap"
	"math"
	"sort"
)

// criterion measures node impurity.
//
// All costs are totals over the samples (count * per-sample impurity) so that
// the cost of a split is simply cost(left) + cost(right).
type criterion interface {
	// nodeCost returns the total impurity of the samples in idx.
	nodeCost(idx []int) float64
	// splitCosts fills costs[i], 1 <= i < len(sorted), with the cost of the
	// split left = sorted[:i], right = sorted[i:].
	splitCosts(sorted []int, costs []float64)
	// leafValue returns the prediction stored in a leaf.
	leafValue(idx []int) []float64
}

// Regression criteria.
const (
	CriterionSquaredError  = "squared_error"
	CriterionAbsoluteError = "absolute_error"
)

// Classification criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// squaredError is the variance reduction criterion; leaves predict the mean.
type squaredError struct {
	y []float64
}

func (c *squaredError) nodeCost(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	mean := 0.0
	for _, i := range idx {
		mean += c.y[i]
	}
	mean /= float64(len(idx))
	var ss float64
	for _, i := range idx {
		d := c.y[i] - mean
		ss += d * d
	}
	return ss
}

func (c *squaredError) splitCosts(sorted []int, costs []float64) {
	n := len(sorted)
	var total, totalSq float64
	for _, i := range sorted {
		total += c.y[i]
		totalSq += c.y[i] * c.y[i]
	}
	var left, leftSq float64
	for p := 1; p < n; p++ {
		v := c.y[sorted[p-1]]
		left += v
		leftSq += v * v
		nl, nr := float64(p), float64(n-p)
		right, rightSq := total-left, totalSq-leftSq
		costs[p] = (leftSq - left*left/nl) + (rightSq - right*right/nr)
	}
}

func (c *squaredError) leafValue(idx []int) []float64 {
	mean := 0.0
	for _, i := range idx {
		mean += c.y[i]
	}
	return []float64{mean / float64(len(idx))}
}

// absoluteError is the mean absolute deviation criterion; leaves predict the median.
type absoluteError struct {
	y []float64
}

func (c *absoluteError) nodeCost(idx []int) float64 {
	var m runningMedian
	for _, i := range idx {
		m.push(c.y[i])
	}
	return m.absDeviation()
}

func (c *absoluteError) splitCosts(sorted []int, costs []float64) {
	n := len(sorted)
	suffix := make([]float64, n+1)
	var m runningMedian
	for p := n - 1; p >= 1; p-- {
		m.push(c.y[sorted[p]])
		suffix[p] = m.absDeviation()
	}
	m = runningMedian{}
	for p := 1; p < n; p++ {
		m.push(c.y[sorted[p-1]])
		costs[p] = m.absDeviation() + suffix[p]
	}
}

func (c *absoluteError) leafValue(idx []int) []float64 {
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = c.y[i]
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return []float64{vals[mid]}
	}
	return []float64{(vals[mid-1] + vals[mid]) / 2}
}

// runningMedian keeps a max-heap of the lower half and a min-heap of the upper
// half so that sum|y - median| is available after every push.
type runningMedian struct {
	lower    maxHeap
	upper    minHeap
	sumLower float64
	sumUpper float64
}

func (m *runningMedian) push(v float64) {
	if m.lower.Len() == 0 || v <= m.lower.floatHeap[0] {
		heap.Push(&m.lower, v)
		m.sumLower += v
	} else {
		heap.Push(&m.upper, v)
		m.sumUpper += v
	}
	// keep len(lower) == len(upper) or len(upper)+1
	if m.lower.Len() > m.upper.Len()+1 {
		x := heap.Pop(&m.lower).(float64)
		m.sumLower -= x
		heap.Push(&m.upper, x)
		m.sumUpper += x
	} else if m.upper.Len() > m.lower.Len() {
		x := heap.Pop(&m.upper).(float64)
		m.sumUpper -= x
		heap.Push(&m.lower, x)
		m.sumLower += x
	}
}

func (m *runningMedian) absDeviation() float64 {
	d := m.sumUpper - m.sumLower
	if m.lower.Len() > m.upper.Len() {
		d += m.lower.floatHeap[0]
	}
	return math.Max(d, 0)
}

type floatHeap []float64

func (h floatHeap) Len() int      { return len(h) }
func (h floatHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *floatHeap) Push(x any)   { *h = append(*h, x.(float64)) }

func (h *floatHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type minHeap struct{ floatHeap }

func (h minHeap) Less(i, j int) bool { return h.floatHeap[i] < h.floatHeap[j] }

type maxHeap struct{ floatHeap }

func (h maxHeap) Less(i, j int) bool { return h.floatHeap[i] > h.floatHeap[j] }

// classCriterion implements gini and entropy over encoded class indices.
type classCriterion struct {
	y        []int
	nClasses int
	entropy  bool
}

func (c *classCriterion) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if c.entropy {
		var h float64
		for _, cnt := range counts {
			if cnt > 0 {
				p := cnt / n
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	sq := 0.0
	for _, cnt := range counts {
		sq += cnt * cnt
	}
	return 1 - sq/(n*n)
}

func (c *classCriterion) nodeCost(idx []int) float64 {
	counts := make([]float64, c.nClasses)
	for _, i := range idx {
		counts[c.y[i]]++
	}
	n := float64(len(idx))
	return n * c.impurity(counts, n)
}

func (c *classCriterion) splitCosts(sorted []int, costs []float64) {
	n := len(sorted)
	left := make([]float64, c.nClasses)
	right := make([]float64, c.nClasses)
	for _, i := range sorted {
		right[c.y[i]]++
	}
	for p := 1; p < n; p++ {
		cls := c.y[sorted[p-1]]
		left[cls]++
		right[cls]--
		nl, nr := float64(p), float64(n-p)
		costs[p] = nl*c.impurity(left, nl) + nr*c.impurity(right, nr)
	}
}

func (c *classCriterion) leafValue(idx []int) []float64 {
	probs := make([]float64, c.nClasses)
	for _, i := range idx {
		probs[c.y[i]]++
	}
	for k := range probs {
		probs[k] /= float64(len(idx))
	}
	return probs
}
