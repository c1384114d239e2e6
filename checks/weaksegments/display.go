package weaksegments

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/sciguard/checks"
	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/partition"
	"github.com/YuminosukeSato/sciguard/preprocessing"
	"github.com/YuminosukeSato/sciguard/scoring"
)

// buildPanels lays out a score grid around each of the first nToShow segments
// whose features both split into at least two intervals. Rows follow
// Feature1, columns Feature2. A cell holds the rows whose values lie between
// its edges, both edges included.
func buildPanels(
	m scoring.Model,
	data *dataset.Dataset,
	segments []Segment,
	avgScore float64,
	scorer scoring.Scorer,
	nToShow int,
	mappings map[string]preprocessing.CategoryMapping,
) ([]checks.Panel, error) {
	var panels []checks.Panel
	for _, seg := range segments {
		if len(panels) >= nToShow {
			break
		}
		c1, _ := data.Column(seg.Feature1)
		c2, _ := data.Column(seg.Feature2)
		b1, ok1 := partition.PartitionNumericFeatureAroundSegment(c1.Numeric, seg.Feature1Range)
		b2, ok2 := partition.PartitionNumericFeatureAroundSegment(c2.Numeric, seg.Feature2Range)
		if !ok1 || !ok2 {
			continue
		}

		nRows, nCols := len(b1)-1, len(b2)-1
		scores := newGrid(nRows, nCols)
		fractions := newGrid(nRows, nCols)
		text := make([][]string, nRows)
		total := float64(data.NSamples())
		for i := 0; i < nRows; i++ {
			text[i] = make([]string, nCols)
			for j := 0; j < nCols; j++ {
				rows := cellRows(c1.Numeric, c2.Numeric, b1[i], b1[i+1], b2[j], b2[j+1])
				score := math.NaN()
				if len(rows) > 0 {
					var err error
					score, err = scorer.Score(m, data.Take(rows))
					if err != nil {
						return nil, err
					}
				}
				frac := float64(len(rows)) / total
				scores[i][j], fractions[i][j] = score, frac
				text[i][j] = cellText(score, len(rows), frac)
			}
		}

		key := seg.Feature1 + " vs " + seg.Feature2
		panels = append(panels, checks.Panel{
			Key:        key,
			Title:      fmt.Sprintf("%s score (percent of data) %s", scorer.Name(), key),
			XLabel:     seg.Feature2,
			YLabel:     seg.Feature1,
			ColorLabel: scorer.Name() + " score",
			XTicks:     FormatPartition(b2, seg.Feature2, mappings),
			YTicks:     FormatPartition(b1, seg.Feature1, mappings),
			Scores:     scores,
			Fractions:  fractions,
			Text:       text,
			Message:    fmt.Sprintf("Average %s score on data sampled is %s", scorer.Name(), formatNumber(avgScore, 2)),
		})
	}
	return panels, nil
}

func cellRows(v1, v2 []float64, lo1, hi1, lo2, hi2 float64) []int {
	var rows []int
	for r := range v1 {
		if v1[r] >= lo1 && v1[r] <= hi1 && v2[r] >= lo2 && v2[r] <= hi2 {
			rows = append(rows, r)
		}
	}
	return rows
}

func cellText(score float64, count int, frac float64) string {
	switch {
	case !math.IsNaN(score):
		return formatNumber(score, 2) + "\n(" + formatPercent(frac) + ")"
	case count == 0:
		return ""
	}
	return "NaN\n(" + formatPercent(frac) + ")"
}

func newGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}
