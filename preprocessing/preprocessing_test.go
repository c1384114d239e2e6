package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

func repeat(counts map[string]int, order ...string) []string {
	var out []string
	for _, c := range order {
		for i := 0; i < counts[c]; i++ {
			out = append(out, c)
		}
	}
	return out
}

func TestRareCategoryBucketizer_ThresholdIsInclusive(t *testing.T) {
	values := repeat(map[string]int{"a": 80, "b": 15, "c": 5}, "a", "b", "c")
	b := NewRareCategoryBucketizer(DefaultRareThreshold)
	got, err := b.FitTransform(values)
	require.NoError(t, err)
	assert.Equal(t, values, got)
	assert.Empty(t, b.RareCategories())
}

func TestRareCategoryBucketizer_CollapsesRare(t *testing.T) {
	values := repeat(map[string]int{"a": 81, "b": 15, "c": 4}, "a", "b", "c")
	b := NewRareCategoryBucketizer(DefaultRareThreshold)
	got, err := b.FitTransform(values)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, v := range got {
		counts[v]++
	}
	assert.Equal(t, map[string]int{"a": 81, "b": 15, OtherCategory: 4}, counts)
	assert.Equal(t, []string{"c"}, b.RareCategories())
}

func TestRareCategoryBucketizer_MissingAndUnknown(t *testing.T) {
	values := repeat(map[string]int{"a": 10, "": 10}, "a", "")
	b := NewRareCategoryBucketizer(0.3)
	require.NoError(t, b.Fit(values))

	got, err := b.Transform([]string{"a", "", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", OtherCategory}, got)
}

func TestRareCategoryBucketizer_Errors(t *testing.T) {
	b := NewRareCategoryBucketizer(0.05)
	_, err := b.Transform([]string{"a"})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.Error(t, b.Fit(nil))
	assert.Error(t, NewRareCategoryBucketizer(1.5).Fit([]string{"a"}))
}

func TestTargetEncoder_Smoothing(t *testing.T) {
	values := []string{"a", "a", "b", "b", "b", "c", ""}
	y := []float64{4, 4, 0, 0, 0, 5, 1}
	prior := 14.0 / 7.0

	enc := NewTargetEncoder()
	got, err := enc.FitTransform(values, y)
	require.NoError(t, err)
	assert.InDelta(t, prior, enc.Prior(), 1e-12)

	weight := func(n float64) float64 { return 1 / (1 + math.Exp(-(n - 1))) }
	wantA := weight(2)*4 + (1-weight(2))*prior
	wantB := weight(3)*0 + (1-weight(3))*prior

	assert.InDelta(t, wantA, got[0], 1e-12)
	assert.InDelta(t, wantA, got[1], 1e-12)
	assert.InDelta(t, wantB, got[2], 1e-12)
	assert.InDelta(t, prior, got[5], 1e-12, "single occurrence falls back to prior")
	assert.True(t, math.IsNaN(got[6]), "missing encodes to NaN")

	unseen, err := enc.Transform([]string{"zzz"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(unseen[0]))
}

func TestTargetEncoder_Deterministic(t *testing.T) {
	values := []string{"x", "y", "x", "z", "y", "x"}
	y := []float64{1, 2, 3, 4, 5, 6}
	a, err := NewTargetEncoder(WithSmoothing(2), WithMinSamplesLeaf(3)).FitTransform(values, y)
	require.NoError(t, err)
	b, err := NewTargetEncoder(WithSmoothing(2), WithMinSamplesLeaf(3)).FitTransform(values, y)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTargetEncoder_Errors(t *testing.T) {
	enc := NewTargetEncoder()
	var dim *errors.DimensionError
	assert.True(t, errors.As(enc.Fit([]string{"a"}, []float64{1, 2}), &dim))
	assert.Error(t, NewTargetEncoder(WithSmoothing(0)).Fit([]string{"a"}, []float64{1}))
	assert.Error(t, enc.Fit([]string{"a"}, []float64{math.NaN()}))
}

func TestCategoryMapping_RoundTrip(t *testing.T) {
	values := []string{"red", "green", "red", "blue", "green", "red", "", "blue"}
	y := []float64{10, 1, 12, 5, 2, 11, 0, 6}

	encoded, err := NewTargetEncoder().FitTransform(values, y)
	require.NoError(t, err)
	m := NewCategoryMapping("color", values, encoded)

	assert.Equal(t, "color", m.Feature())
	require.Equal(t, 3, m.Len())
	entries := m.Entries()
	assert.Equal(t, "red", entries[0].Category)
	assert.Equal(t, "green", entries[1].Category)
	assert.Equal(t, "blue", entries[2].Category)

	for i, v := range values {
		if v == MissingCategory {
			continue
		}
		enc, ok := m.Encode(v)
		require.True(t, ok)
		assert.Equal(t, encoded[i], enc)
		assert.Equal(t, []string{v}, m.Decode(enc))
	}
	_, ok := m.Encode("purple")
	assert.False(t, ok)

	entries[0].Category = "mutated"
	assert.Equal(t, "red", m.Entries()[0].Category)
}

func TestCategoryMapping_CategoriesBetween(t *testing.T) {
	m := NewCategoryMapping("f", []string{"a", "b", "c"}, []float64{1, 2, 3})
	assert.Equal(t, []string{"a", "b"}, m.CategoriesBetween(1, 2, true))
	assert.Equal(t, []string{"b"}, m.CategoriesBetween(1, 2, false))
	assert.Equal(t, []string{}, m.CategoriesBetween(3, 4, false))
}

func TestMostFrequentImputer(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(5, 3, []float64{
		1, 7, nan,
		2, 7, nan,
		2, 3, nan,
		1, 3, nan,
		nan, nan, nan,
	})
	imp := NewMostFrequentImputer()
	out, err := imp.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 1.0, imp.Statistics[0], "ties resolve to the smallest value")
	assert.Equal(t, 3.0, imp.Statistics[1])
	assert.True(t, math.IsNaN(imp.Statistics[2]))
	assert.Equal(t, 1.0, out.At(4, 0))
	assert.Equal(t, 3.0, out.At(4, 1))
	assert.True(t, math.IsNaN(out.At(0, 2)))
	assert.True(t, math.IsNaN(X.At(4, 0)), "input is not modified")

	_, err = imp.Transform(mat.NewDense(1, 2, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}
