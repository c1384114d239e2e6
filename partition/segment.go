package partition

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PartitionNumericFeatureAroundSegment returns ordered boundaries for a grid
// around segment: the segment edges plus up to two boundaries below it (the
// median of the values below and the global minimum) and up to two above it
// (the median of the values above and the global maximum). Infinite edges are
// replaced by the global minimum or maximum. NaN values are ignored.
//
// At least two boundaries are returned. ok is false when there are fewer than
// three, which is too coarse for a grid.
func PartitionNumericFeatureAroundSegment(values []float64, segment Range) ([]float64, bool) {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return []float64{segment.Lower, segment.Upper}, false
	}
	sort.Float64s(sorted)
	gmin, gmax := sorted[0], sorted[len(sorted)-1]

	// the segment excludes its own finite lower edge
	lo, hi := segment.Lower, segment.Upper
	lowerExcluded := true
	if math.IsInf(lo, -1) || lo < gmin {
		lo = gmin
		lowerExcluded = false
	}
	if math.IsInf(hi, 1) || hi > gmax {
		hi = gmax
	}
	if hi < lo {
		hi = lo
	}

	var below, above []float64
	for _, v := range sorted {
		switch {
		case v < lo || (lowerExcluded && v == lo):
			below = append(below, v)
		case v > hi:
			above = append(above, v)
		}
	}

	var out []float64
	if len(below) > 0 && gmin < lo {
		out = append(out, gmin)
		if m := stat.Quantile(0.5, stat.Empirical, below, nil); m > gmin && m < lo {
			out = append(out, m)
		}
	}
	out = append(out, lo, hi)
	if len(above) > 0 {
		if m := stat.Quantile(0.5, stat.Empirical, above, nil); m > hi && m < gmax {
			out = append(out, m)
		}
		out = append(out, gmax)
	}

	// lo == hi collapses to a single boundary only when extras surround it
	if lo == hi && len(out) > 2 {
		out = dedupe(out)
	}
	return out, len(out) >= 3
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
