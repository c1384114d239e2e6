package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
	"github.com/YuminosukeSato/sciguard/scoring"
)

const sample = `
dataset:
  path: data/houses.csv
  label: price
  categorical: [city]
  predictions: predicted_price
model:
  task: regression
search:
  n_top_features: 4
  ignore_columns: [id]
  scorer: neg_mean_absolute_error
  workers: 2
condition:
  enabled: true
  max_ratio_change: 0.3
output:
  dir: out
log_level: debug
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/houses.csv", cfg.Dataset.Path)
	assert.Equal(t, []string{"city"}, cfg.Dataset.Categorical)
	assert.Equal(t, 4, cfg.Search.NTopFeatures)
	assert.Equal(t, 2, cfg.Search.Workers)
	assert.Equal(t, 0.3, cfg.Condition.MaxRatioChange)
	assert.Equal(t, log.LevelDebug, cfg.Level())

	// untouched fields keep their defaults
	assert.Equal(t, 10_000, cfg.Search.NSamples)
	assert.Equal(t, 3, cfg.Search.CVFolds)
	assert.Equal(t, int64(42), cfg.Search.RandomState)

	task, ok := cfg.TaskType()
	assert.True(t, ok)
	assert.Equal(t, scoring.Regression, task)
	assert.NotEmpty(t, cfg.CheckOptions())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing path", "dataset: {label: y}"},
		{"missing label", "dataset: {path: a.csv}"},
		{"bad task", "dataset: {path: a.csv, label: y}\nmodel: {task: ranking}"},
		{"bad level", "dataset: {path: a.csv, label: y}\nlog_level: loud"},
		{"classification without probabilities", "dataset: {path: a.csv, label: y, predictions: p}\nmodel: {task: binary}"},
		{"classes not matching probabilities", "dataset: {path: a.csv, label: y, predictions: p, probabilities: [p0, p1], classes: [0, 1, 2]}\nmodel: {task: binary}"},
		{"bad ratio", "dataset: {path: a.csv, label: y}\ncondition: {max_ratio_change: 2}"},
		{"bad top features", "dataset: {path: a.csv, label: y}\nsearch: {n_top_features: 1}"},
		{"bad criterion", "dataset: {path: a.csv, label: y}\nsearch: {criteria: [gini]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestParse_Classes(t *testing.T) {
	cfg, err := Parse([]byte("dataset: {path: a.csv, label: y, predictions: p, probabilities: [p_no, p_yes], classes: [-1, 1]}\nmodel: {task: binary}"))
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 1}, cfg.Dataset.Classes)
}

func TestParse_RejectsUnknownScorerAndKeys(t *testing.T) {
	_, err := Parse([]byte("dataset: {path: a.csv, label: y}\nsearch: {scorer: f7}"))
	var ns *errors.NotSupportedError
	assert.True(t, errors.As(err, &ns))

	_, err = Parse([]byte("dataset: {path: a.csv, label: y, colour: red}"))
	assert.Error(t, err)
}

func TestDefault_InfersTask(t *testing.T) {
	cfg := Default()
	_, ok := cfg.TaskType()
	assert.False(t, ok)
	assert.True(t, cfg.Condition.Enabled)
	assert.Equal(t, log.LevelInfo, cfg.Level())
}
