package weaksegments

import (
	"fmt"

	"github.com/YuminosukeSato/sciguard/checks"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// DefaultMaxRatioChange is the default tolerated drop of the weakest segment
// relative to the average score.
const DefaultMaxRatioChange = 0.20

// AddConditionSegmentsRelativePerformanceGreaterThan warns when the weakest
// segment scores below (1 - maxRatioChange) times the average score.
func (c *Check) AddConditionSegmentsRelativePerformanceGreaterThan(maxRatioChange float64) *Check {
	name := fmt.Sprintf("The performance of weakest segment is greater than %s of average model performance.",
		formatPercent(1-maxRatioChange))
	c.conditions = append(c.conditions, checks.Condition[Value]{
		Name: name,
		Eval: func(v Value) (checks.ConditionCategory, string, error) {
			return segmentsRelativePerformance(v, maxRatioChange)
		},
	})
	return c
}

func segmentsRelativePerformance(v Value, maxRatioChange float64) (checks.ConditionCategory, string, error) {
	if len(v.Segments) == 0 {
		return "", "", errors.NewValueError("SegmentsRelativePerformance", "no segments")
	}
	weakest := v.Segments[0].Score
	msg := fmt.Sprintf("Found a segment with %s score of %s in comparison to an average score of %s in sampled data.",
		v.ScorerName, formatNumber(weakest, 3), formatNumber(v.AvgScore, 3))
	if weakest < (1-maxRatioChange)*v.AvgScore {
		return checks.CategoryWarn, msg, nil
	}
	return checks.CategoryPass, msg, nil
}
