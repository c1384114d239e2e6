package weaksegments

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/sciguard/checks"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// heatmapColors is the number of palette steps between the lowest and the
// highest cell score.
const heatmapColors = 16

// panelGrid exposes a panel's score matrix as a plotter.GridXYZ.
// Column c is Feature2 interval c, row r is Feature1 interval r.
type panelGrid struct {
	p checks.Panel
}

func (g panelGrid) Dims() (c, r int)   { return len(g.p.XTicks), len(g.p.YTicks) }
func (g panelGrid) Z(c, r int) float64 { return g.p.Scores[r][c] }
func (g panelGrid) X(c int) float64    { return float64(c) }
func (g panelGrid) Y(r int) float64    { return float64(r) }

// RenderHeatmap draws a panel as a heatmap annotated with the cell texts.
func RenderHeatmap(p checks.Panel) (plt *plot.Plot, err error) {
	defer errors.Recover(&err, "RenderHeatmap")
	if len(p.YTicks) == 0 || len(p.XTicks) == 0 || len(p.Scores) != len(p.YTicks) {
		return nil, errors.NewValueError("RenderHeatmap", "panel grid does not match its ticks")
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range p.Scores {
		if len(row) != len(p.XTicks) {
			return nil, errors.NewValueError("RenderHeatmap", "panel grid does not match its ticks")
		}
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		return nil, errors.NewValueError("RenderHeatmap", "panel has no scored cell")
	}
	if lo == hi {
		hi = lo + 1
	}

	plt = plot.New()
	plt.Title.Text = p.Title
	plt.X.Label.Text = p.XLabel
	plt.Y.Label.Text = p.YLabel

	grid := panelGrid{p: p}
	hm := plotter.NewHeatMap(grid, palette.Heat(heatmapColors, 1))
	hm.Min, hm.Max = lo, hi
	hm.NaN = color.Transparent
	plt.Add(hm)

	var xys plotter.XYs
	var texts []string
	for r, row := range p.Text {
		for c, t := range row {
			if t == "" {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			texts = append(texts, t)
		}
	}
	if len(xys) > 0 {
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
		if err != nil {
			return nil, errors.Wrap(err, "heatmap labels")
		}
		plt.Add(labels)
	}

	plt.X.Tick.Marker = plot.ConstantTicks(ticks(p.XTicks))
	plt.Y.Tick.Marker = plot.ConstantTicks(ticks(p.YTicks))
	return plt, nil
}

func ticks(labels []string) []plot.Tick {
	out := make([]plot.Tick, len(labels))
	for i, l := range labels {
		out[i] = plot.Tick{Value: float64(i), Label: l}
	}
	return out
}

// SavePanels renders every panel to a PNG file in dir and returns the paths.
func SavePanels(panels []checks.Panel, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	paths := make([]string, 0, len(panels))
	for i, p := range panels {
		plt, err := RenderHeatmap(p)
		if err != nil {
			return paths, errors.Wrapf(err, "panel %q", p.Key)
		}
		path := filepath.Join(dir, fmt.Sprintf("%02d_%s.png", i+1, fileName(p.Key)))
		if err := plt.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
			return paths, errors.Wrapf(err, "saving %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func fileName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, key)
}
