package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// TargetEncoder はカテゴリをラベル平均で数値化するエンコーダー。
// カテゴリ平均と全体平均(prior)をサンプル数に応じて混ぜる:
//
//	w   = 1 / (1 + exp(-(n - MinSamplesLeaf) / Smoothing))
//	enc = w*mean_c + (1-w)*prior
//
// 1回しか出現しないカテゴリは prior になる。未知・欠損カテゴリは NaN。
type TargetEncoder struct {
	// Smoothing は混合の滑らかさ (0 より大きい)
	Smoothing float64
	// MinSamplesLeaf はカテゴリ平均と prior が半々になるサンプル数
	MinSamplesLeaf int

	state    *model.StateManager
	prior    float64
	encoding map[string]float64
}

// TargetEncoderOption configures a TargetEncoder.
type TargetEncoderOption func(*TargetEncoder)

// WithSmoothing sets the smoothing strength.
func WithSmoothing(s float64) TargetEncoderOption {
	return func(e *TargetEncoder) {
		e.Smoothing = s
	}
}

// WithMinSamplesLeaf sets the sample count at which category mean and prior weigh equally.
func WithMinSamplesLeaf(n int) TargetEncoderOption {
	return func(e *TargetEncoder) {
		e.MinSamplesLeaf = n
	}
}

// NewTargetEncoder は新しいTargetEncoderを作成する (デフォルト: Smoothing 1.0, MinSamplesLeaf 1)
func NewTargetEncoder(opts ...TargetEncoderOption) *TargetEncoder {
	e := &TargetEncoder{
		Smoothing:      1.0,
		MinSamplesLeaf: 1,
		state:          model.NewStateManager("TargetEncoder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit はカテゴリごとのエンコード値を計算する
//
// パラメータ:
//   - values: カテゴリ列 (欠損は "")
//   - y: ラベル (values と同じ長さ)
//
// 戻り値:
//   - error: 空データ、長さ不一致、不正なパラメータの場合
func (e *TargetEncoder) Fit(values []string, y []float64) error {
	const op = "TargetEncoder.Fit"
	if len(values) == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(values) != len(y) {
		return errors.NewDimensionError(op, len(values), len(y), 0)
	}
	if e.Smoothing <= 0 {
		return errors.NewValidationError("smoothing", "must be positive", e.Smoothing)
	}
	if err := errors.CheckNumericalStability(op, y, 0); err != nil {
		return err
	}

	e.prior = stat.Mean(y, nil)

	groups := make(map[string][]float64)
	for i, c := range values {
		if c == MissingCategory {
			continue
		}
		groups[c] = append(groups[c], y[i])
	}

	e.encoding = make(map[string]float64, len(groups))
	for c, ys := range groups {
		n := float64(len(ys))
		if len(ys) == 1 {
			e.encoding[c] = e.prior
			continue
		}
		w := 1 / (1 + math.Exp(-(n-float64(e.MinSamplesLeaf))/e.Smoothing))
		e.encoding[c] = w*stat.Mean(ys, nil) + (1-w)*e.prior
	}
	e.state.SetFitted(1, len(values))
	return nil
}

// Transform はカテゴリ列をエンコード値に変換する。未知・欠損は NaN。
func (e *TargetEncoder) Transform(values []string) ([]float64, error) {
	if err := e.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, c := range values {
		if v, ok := e.encoding[c]; ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (e *TargetEncoder) FitTransform(values []string, y []float64) ([]float64, error) {
	if err := e.Fit(values, y); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// Prior returns the global label mean seen during Fit.
func (e *TargetEncoder) Prior() float64 {
	return e.prior
}
