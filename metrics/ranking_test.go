package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

func TestNDCG(t *testing.T) {
	tests := []struct {
		name      string
		relevance []float64
		score     []float64
		k         int
		want      float64
	}{
		{"ideal order", []float64{3, 2, 0}, []float64{0.9, 0.5, 0.1}, -1, 1},
		{"swapped pair", []float64{0, 1}, []float64{0.9, 0.1}, -1, 1 / math.Log2(3)},
		{"cut at k", []float64{0, 1}, []float64{0.9, 0.1}, 1, 0},
		{"k beyond length", []float64{3, 2, 0}, []float64{0.9, 0.5, 0.1}, 10, 1},
		{"no relevant items", []float64{0, 0}, []float64{0.2, 0.1}, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NDCG(vec(tt.relevance...), vec(tt.score...), tt.k)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	_, err := NDCG(vec(1, 0), vec(0.1, 0.2), 0)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve), "k = 0")

	_, err = NDCG(vec(-1, 0), vec(0.1, 0.2), -1)
	var vv *errors.ValueError
	assert.True(t, errors.As(err, &vv), "negative relevance")
}

func TestAveragePrecision(t *testing.T) {
	got, err := AveragePrecision(vec(1, 0, 1), vec(0.9, 0.8, 0.7))
	require.NoError(t, err)
	assert.InDelta(t, (1+2.0/3)/2, got, 1e-12)

	got, err = AveragePrecision(vec(0, 0), vec(0.9, 0.8))
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = AveragePrecision(vec(0, 2), vec(0.9, 0.8))
	assert.Error(t, err)
}
