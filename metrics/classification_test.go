package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestAccuracyAndClassificationError(t *testing.T) {
	yTrue := vec(2, 5, 5, 9)
	yPred := vec(2, 5, 9, 2)

	acc, err := Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	ce, err := ClassificationError(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, 0.5, ce)

	_, err = ClassificationError(yTrue, vec(2, 5))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		score *mat.VecDense
		want  float64
	}{
		{"separated", vec(0, 0, 1, 1), vec(0.1, 0.2, 0.7, 0.9), 1},
		{"reversed", vec(0, 0, 1, 1), vec(0.9, 0.7, 0.2, 0.1), 0},
		{"one swapped pair", vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8), 0.75},
		{"ties count half", vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5), 0.5},
		{"single class", vec(1, 1, 1), vec(0.1, 0.5, 0.9), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.score)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	_, err := AUC(vec(0, 0.5, 1), vec(0.1, 0.5, 0.9))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestPerSampleLogLoss_Clipping(t *testing.T) {
	yTrue := vec(0, 2, 1, 0)
	proba := mat.NewDense(4, 3, []float64{
		0.5, 0.25, 0.25,
		0.1, 0.1, 0.8,
		0.0, 0.0, 1.0, // p_true = 0 is clipped to 1e-15
		1.2, 0.0, 0.0, // p_true > 1 is clipped to 1
	})

	got, err := PerSampleLogLoss(yTrue, proba)
	require.NoError(t, err)
	want := []float64{math.Log(2), -math.Log(0.8), -math.Log(1e-15), 0}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "row %d", i)
		assert.False(t, math.IsInf(got[i], 0))
	}

	avg, err := LogLoss(yTrue, proba)
	require.NoError(t, err)
	assert.InDelta(t, (want[0]+want[1]+want[2]+want[3])/4, avg, 1e-9)
}

func TestPerSampleLogLoss_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		proba mat.Matrix
	}{
		{"nil labels", nil, mat.NewDense(1, 2, []float64{0.5, 0.5})},
		{"nil proba", vec(0), nil},
		{"row mismatch", vec(0, 1), mat.NewDense(1, 2, []float64{0.5, 0.5})},
		{"class out of range", vec(3), mat.NewDense(1, 2, []float64{0.5, 0.5})},
		{"negative class", vec(-1), mat.NewDense(1, 2, []float64{0.5, 0.5})},
		{"fractional class", vec(0.5), mat.NewDense(1, 2, []float64{0.5, 0.5})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PerSampleLogLoss(tt.yTrue, tt.proba)
			assert.Error(t, err)
		})
	}
}
