// Package config loads the YAML description of a weak-segments run.
package config

import (
	"bytes"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/sciguard/checks/weaksegments"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
	"github.com/YuminosukeSato/sciguard/scoring"
)

// Config is one weak-segments run.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Model     ModelConfig     `yaml:"model"`
	Search    SearchConfig    `yaml:"search"`
	Condition ConditionConfig `yaml:"condition"`
	Output    OutputConfig    `yaml:"output"`
	LogLevel  string          `yaml:"log_level"`
}

// DatasetConfig locates the CSV file and its special columns.
type DatasetConfig struct {
	Path        string   `yaml:"path"`
	Label       string   `yaml:"label"`
	Index       string   `yaml:"index"`
	Categorical []string `yaml:"categorical"`
	// Predictions names a column of precomputed predictions. Without it a
	// decision tree is trained on the data.
	Predictions string `yaml:"predictions"`
	// Probabilities names the class probability columns of a classification
	// run with precomputed predictions, in class order.
	Probabilities []string `yaml:"probabilities"`
	// Classes gives the class of each probability column. Empty means the
	// sorted distinct labels.
	Classes []float64 `yaml:"classes"`
	// Loss names a column of per-sample loss used instead of the computed one.
	Loss string `yaml:"loss"`
}

// ModelConfig describes the task and the fallback model.
type ModelConfig struct {
	// Task is "regression", "binary" or "multiclass"; empty infers it from the model.
	Task     string `yaml:"task"`
	MaxDepth int    `yaml:"max_depth"`
}

// SearchConfig maps onto the weak-segments check options.
type SearchConfig struct {
	Columns                         []string `yaml:"columns"`
	IgnoreColumns                   []string `yaml:"ignore_columns"`
	NTopFeatures                    int      `yaml:"n_top_features"`
	SegmentMinimumSizeRatio         float64  `yaml:"segment_minimum_size_ratio"`
	NSamples                        int      `yaml:"n_samples"`
	CategoricalAggregationThreshold float64  `yaml:"categorical_aggregation_threshold"`
	NToShow                         int      `yaml:"n_to_show"`
	RandomState                     int64    `yaml:"random_state"`
	Workers                         int      `yaml:"workers"`
	Scorer                          string   `yaml:"scorer"`
	MaxDepth                        int      `yaml:"max_depth"`
	MinSamplesLeaf                  int      `yaml:"min_samples_leaf"`
	CVFolds                         int      `yaml:"cv_folds"`
	Criteria                        []string `yaml:"criteria"`
}

// ConditionConfig enables the relative performance condition.
type ConditionConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MaxRatioChange float64 `yaml:"max_ratio_change"`
}

// OutputConfig says where artifacts go. Empty disables them.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	p := weaksegments.DefaultSearchParams()
	return &Config{
		Model: ModelConfig{MaxDepth: 6},
		Search: SearchConfig{
			NTopFeatures:                    5,
			SegmentMinimumSizeRatio:         p.MinLeafFraction,
			NSamples:                        10_000,
			CategoricalAggregationThreshold: 0.05,
			NToShow:                         3,
			RandomState:                     42,
			Workers:                         1,
			MaxDepth:                        p.MaxDepth,
			MinSamplesLeaf:                  p.MinSamplesLeaf,
			CVFolds:                         p.CVFolds,
			Criteria:                        p.Criteria,
		},
		Condition: ConditionConfig{Enabled: true, MaxRatioChange: weaksegments.DefaultMaxRatioChange},
		LogLevel:  "info",
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that cannot be checked by the components themselves.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return errors.NewValidationError("dataset.path", "is required", c.Dataset.Path)
	}
	if c.Dataset.Label == "" {
		return errors.NewValidationError("dataset.label", "is required", c.Dataset.Label)
	}
	if c.Model.Task != "" {
		if _, err := scoring.ParseTaskType(c.Model.Task); err != nil {
			return err
		}
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return errors.NewValidationError("log_level", "must be debug, info, warn or error", c.LogLevel)
	}
	if task, ok := c.TaskType(); ok && task.IsClassification() &&
		c.Dataset.Predictions != "" && len(c.Dataset.Probabilities) == 0 {
		return errors.NewValidationError("dataset.probabilities", "required for classification with precomputed predictions", c.Dataset.Predictions)
	}
	if len(c.Dataset.Classes) > 0 && len(c.Dataset.Classes) != len(c.Dataset.Probabilities) {
		return errors.NewValidationError("dataset.classes", "must name one class per probability column", c.Dataset.Classes)
	}
	if c.Condition.MaxRatioChange < 0 || c.Condition.MaxRatioChange > 1 {
		return errors.NewValidationError("condition.max_ratio_change", "must be in [0, 1]", c.Condition.MaxRatioChange)
	}
	if c.Search.Scorer != "" && !slices.Contains(scoring.MetricNames(), c.Search.Scorer) {
		return errors.NewNotSupportedError("config", "unknown scorer "+c.Search.Scorer)
	}
	if c.Model.MaxDepth < 0 {
		return errors.NewValidationError("model.max_depth", "must not be negative", c.Model.MaxDepth)
	}
	_, err := weaksegments.New(c.CheckOptions()...)
	return err
}

// TaskType returns the configured task, and false when it should be inferred.
func (c *Config) TaskType() (scoring.TaskType, bool) {
	if c.Model.Task == "" {
		return scoring.Regression, false
	}
	t, err := scoring.ParseTaskType(c.Model.Task)
	return t, err == nil
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	l, _ := log.ParseLevel(c.LogLevel)
	return l
}

// CheckOptions converts the search section to check options.
func (c *Config) CheckOptions() []weaksegments.Option {
	s := c.Search
	opts := []weaksegments.Option{
		weaksegments.WithNTopFeatures(s.NTopFeatures),
		weaksegments.WithNSamples(s.NSamples),
		weaksegments.WithCategoricalAggregationThreshold(s.CategoricalAggregationThreshold),
		weaksegments.WithNToShow(s.NToShow),
		weaksegments.WithRandomState(s.RandomState),
		weaksegments.WithWorkers(s.Workers),
		weaksegments.WithSearchParams(weaksegments.SearchParams{
			MinLeafFraction: s.SegmentMinimumSizeRatio,
			MaxDepth:        s.MaxDepth,
			MinSamplesLeaf:  s.MinSamplesLeaf,
			CVFolds:         s.CVFolds,
			Criteria:        s.Criteria,
		}),
	}
	if len(s.Columns) > 0 {
		opts = append(opts, weaksegments.WithColumns(s.Columns...))
	}
	if len(s.IgnoreColumns) > 0 {
		opts = append(opts, weaksegments.WithIgnoreColumns(s.IgnoreColumns...))
	}
	if s.Scorer != "" {
		opts = append(opts, weaksegments.WithScorer(scoring.NamedMetric(s.Scorer)))
	}
	return opts
}
