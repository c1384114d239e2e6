package weaksegments

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/sciguard/preprocessing"
)

// FormatPartition renders the intervals between consecutive boundaries of vec.
// A categorical feature (one with a mapping) lists the categories whose
// encoding falls in each interval, one per line; a numeric feature yields
// "(a, b]" with the first interval closed: "[a, b]".
func FormatPartition(vec []float64, feature string, mappings map[string]preprocessing.CategoryMapping) []string {
	if len(vec) < 2 {
		return nil
	}
	if m, ok := mappings[feature]; ok {
		cats := PartitionCategories(vec, m)
		out := make([]string, len(cats))
		for i, c := range cats {
			out[i] = strings.Join(c, "\n")
		}
		return out
	}

	out := make([]string, len(vec)-1)
	for i := 0; i+1 < len(vec); i++ {
		out[i] = "(" + formatNumber(vec[i], 2) + ", " + formatNumber(vec[i+1], 2) + "]"
	}
	out[0] = "[" + out[0][1:]
	return out
}

// PartitionCategories returns, per interval of vec, the categories of m whose
// encoding lies in it. The first interval includes its lower edge.
func PartitionCategories(vec []float64, m preprocessing.CategoryMapping) [][]string {
	if len(vec) < 2 {
		return nil
	}
	out := make([][]string, len(vec)-1)
	for i := 0; i+1 < len(vec); i++ {
		out[i] = m.CategoriesBetween(vec[i], vec[i+1], i == 0)
	}
	return out
}

// formatNumber rounds x to precision decimals, drops trailing zeros and
// groups thousands. Values too small to survive the rounding use E notation.
func formatNumber(x float64, precision int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	case x == 0:
		return "0"
	}
	if math.Abs(x) < math.Pow(10, -float64(precision)) {
		return strconv.FormatFloat(x, 'E', precision, 64)
	}
	pow := math.Pow(10, float64(precision))
	rounded := math.Round(x*pow) / pow
	if rounded == math.Round(x) {
		return groupThousands(strconv.FormatFloat(math.Round(x), 'f', 0, 64))
	}
	return groupThousands(strconv.FormatFloat(rounded, 'f', -1, 64))
}

// formatPercent renders ratio as a percentage with at most two decimals.
func formatPercent(ratio float64) string {
	if math.IsNaN(ratio) {
		return "NaN"
	}
	sign := ""
	if ratio < 0 {
		sign, ratio = "-", -ratio
	}
	pct := ratio * 100
	switch {
	case ratio == math.Trunc(ratio):
		return sign + strconv.FormatFloat(pct, 'f', 0, 64) + "%"
	case pct < 0.01:
		return sign + strconv.FormatFloat(pct, 'E', 2, 64) + "%"
	}
	return sign + strconv.FormatFloat(math.Round(pct*100)/100, 'f', -1, 64) + "%"
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}
	var b strings.Builder
	head := len(intPart) % 3
	if head > 0 {
		b.WriteString(intPart[:head])
	}
	for i := head; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}
