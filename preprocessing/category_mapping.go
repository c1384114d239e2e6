package preprocessing

import "math"

// CategoryEncoding は1カテゴリとそのエンコード値の組
type CategoryEncoding struct {
	Category string
	Encoding float64
}

// CategoryMapping はカテゴリ特徴量のエンコード対応表。
// 作成後は読み取り専用で、値として受け渡す。
type CategoryMapping struct {
	feature string
	entries []CategoryEncoding
	index   map[string]float64
}

// NewCategoryMapping はカテゴリ列とエンコード済み列から対応表を作成する。
// 重複は除かれ、順序は初出順。欠損("")とNaNのエンコードは含めない。
func NewCategoryMapping(feature string, categories []string, encoded []float64) CategoryMapping {
	m := CategoryMapping{
		feature: feature,
		index:   make(map[string]float64),
	}
	for i, c := range categories {
		if c == MissingCategory || i >= len(encoded) || math.IsNaN(encoded[i]) {
			continue
		}
		if _, ok := m.index[c]; ok {
			continue
		}
		m.index[c] = encoded[i]
		m.entries = append(m.entries, CategoryEncoding{Category: c, Encoding: encoded[i]})
	}
	return m
}

// Feature returns the name of the encoded feature.
func (m CategoryMapping) Feature() string {
	return m.feature
}

// Len returns the number of distinct categories.
func (m CategoryMapping) Len() int {
	return len(m.entries)
}

// Encode returns the encoding of category.
func (m CategoryMapping) Encode(category string) (float64, bool) {
	v, ok := m.index[category]
	return v, ok
}

// Decode returns the categories encoded exactly as enc, in first-seen order.
// Several categories may share an encoding.
func (m CategoryMapping) Decode(enc float64) []string {
	var out []string
	for _, e := range m.entries {
		if e.Encoding == enc {
			out = append(out, e.Category)
		}
	}
	return out
}

// Entries returns a copy of the mapping in first-seen order.
func (m CategoryMapping) Entries() []CategoryEncoding {
	return append([]CategoryEncoding(nil), m.entries...)
}

// CategoriesBetween returns the categories whose encoding lies in (lower, upper],
// or in [lower, upper] when closedLower is set.
func (m CategoryMapping) CategoriesBetween(lower, upper float64, closedLower bool) []string {
	out := []string{}
	for _, e := range m.entries {
		aboveLower := e.Encoding > lower || (closedLower && e.Encoding == lower)
		if aboveLower && e.Encoding <= upper {
			out = append(out, e.Category)
		}
	}
	return out
}
