package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// MostFrequentImputer はNaNを列の最頻値で埋める。
// 最頻値が複数ある場合は最小の値を使う。全て欠損の列は NaN のまま残る。
type MostFrequentImputer struct {
	// Statistics は各列の最頻値 (Fit 後)
	Statistics []float64

	state *model.StateManager
}

// NewMostFrequentImputer は新しいMostFrequentImputerを作成する
func NewMostFrequentImputer() *MostFrequentImputer {
	return &MostFrequentImputer{state: model.NewStateManager("MostFrequentImputer")}
}

// Fit は各列の最頻値を計算する
func (m *MostFrequentImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MostFrequentImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	m.Statistics = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m.Statistics[j] = Mode(col)
	}
	m.state.SetFitted(c, r)
	return nil
}

// Transform はNaNを最頻値で置き換えた新しい行列を返す
func (m *MostFrequentImputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.state.RequireFeatures("Transform", c); err != nil {
		return nil, err
	}

	out := mat.DenseCopyOf(X)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, m.Statistics[j])
			}
		}
	}
	return out, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (m *MostFrequentImputer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// Mode returns the most frequent non-NaN value, the smallest one on ties.
// NaN is returned when every value is NaN.
func Mode(values []float64) float64 {
	counts := make(map[float64]int)
	for _, v := range values {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	best, bestCount := math.NaN(), 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}
