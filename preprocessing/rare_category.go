package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

const (
	// MissingCategory marks a missing categorical value.
	MissingCategory = ""
	// OtherCategory replaces rare categories.
	OtherCategory = "other"
	// DefaultRareThreshold is the default minimum relative frequency of a kept category.
	DefaultRareThreshold = 0.05
)

// RareCategoryBucketizer はまれなカテゴリを "other" にまとめる。
// 出現率が Threshold 未満のカテゴリが対象で、ちょうど Threshold のカテゴリは残る。
// 出現率の分母は欠損を含む全サンプル数。
type RareCategoryBucketizer struct {
	// Threshold は残すカテゴリの最小出現率
	Threshold float64

	state *model.StateManager
	kept  map[string]bool
	rare  []string
}

// NewRareCategoryBucketizer は新しいRareCategoryBucketizerを作成する
//
// パラメータ:
//   - threshold: 残すカテゴリの最小出現率 (0 以上 1 以下)
//
// 使用例:
//
//	b := preprocessing.NewRareCategoryBucketizer(0.05)
//	bucketed, err := b.FitTransform(colors)
func NewRareCategoryBucketizer(threshold float64) *RareCategoryBucketizer {
	return &RareCategoryBucketizer{
		Threshold: threshold,
		state:     model.NewStateManager("RareCategoryBucketizer"),
	}
}

// Fit はカテゴリごとの出現率を数え、残すカテゴリを決める
func (b *RareCategoryBucketizer) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewModelError("RareCategoryBucketizer.Fit", "empty data", errors.ErrEmptyData)
	}
	if b.Threshold < 0 || b.Threshold > 1 {
		return errors.NewValidationError("threshold", "must be in [0, 1]", b.Threshold)
	}

	counts := make(map[string]int)
	for _, v := range values {
		if v != MissingCategory {
			counts[v]++
		}
	}

	n := float64(len(values))
	b.kept = make(map[string]bool, len(counts))
	b.rare = b.rare[:0]
	for c, k := range counts {
		if float64(k)/n < b.Threshold {
			b.rare = append(b.rare, c)
		} else {
			b.kept[c] = true
		}
	}
	sort.Strings(b.rare)
	b.state.SetFitted(1, len(values))
	return nil
}

// Transform はまれなカテゴリと未知のカテゴリを OtherCategory に置き換える。
// 欠損値はそのまま残す。
func (b *RareCategoryBucketizer) Transform(values []string) ([]string, error) {
	if err := b.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		switch {
		case v == MissingCategory, b.kept[v]:
			out[i] = v
		default:
			out[i] = OtherCategory
		}
	}
	return out, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (b *RareCategoryBucketizer) FitTransform(values []string) ([]string, error) {
	if err := b.Fit(values); err != nil {
		return nil, err
	}
	return b.Transform(values)
}

// RareCategories returns the categories collapsed during Fit, sorted.
func (b *RareCategoryBucketizer) RareCategories() []string {
	return append([]string(nil), b.rare...)
}
