package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/checks"
	"github.com/YuminosukeSato/sciguard/checks/weaksegments"
	"github.com/YuminosukeSato/sciguard/core/model"
	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/config"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
	"github.com/YuminosukeSato/sciguard/pkg/telemetry"
	"github.com/YuminosukeSato/sciguard/scoring"
	"github.com/YuminosukeSato/sciguard/sklearn/tree"
)

func runWeakSegments(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		if _, ok := log.ParseLevel(logLevel); !ok {
			return errors.NewValidationError("log-level", "must be debug, info, warn or error", logLevel)
		}
		cfg.LogLevel = logLevel
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if logJSON {
		log.SetupLogger(os.Stderr, cfg.Level())
	} else {
		log.SetOutput(os.Stderr, cfg.Level(), isatty.IsTerminal(os.Stderr.Fd()))
	}

	return runWithConfig(cmd.Context(), cfg, !noDisplay, cmd.OutOrStdout())
}

// runWithConfig runs the check described by cfg and writes the report to out.
// Panels are saved and metrics written when the output section asks for them.
func runWithConfig(ctx context.Context, cfg *config.Config, display bool, out io.Writer) error {
	logger := log.GetLoggerWithName("sciguard")
	reg := prometheus.NewRegistry()

	data, m, loss, err := loadInputs(cfg)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded",
		log.PathKey, cfg.Dataset.Path,
		log.SamplesKey, data.NSamples(),
		log.FeaturesKey, len(data.Features()),
	)

	ctxOpts := []checks.ContextOption{checks.WithDisplay(display)}
	if imp := completeImportance(m, data.Features()); imp != nil {
		ctxOpts = append(ctxOpts, checks.WithFeatureImportance(imp))
	}
	if task, ok := cfg.TaskType(); ok {
		ctxOpts = append(ctxOpts, checks.WithTaskType(task))
	}
	cc, err := checks.NewContext(data, m, ctxOpts...)
	if err != nil {
		return err
	}

	opts := append(cfg.CheckOptions(), weaksegments.WithTelemetry(telemetry.NewWithRegistry(reg)))
	if loss != nil {
		opts = append(opts, weaksegments.WithLossPerSample(loss))
	}
	if sm, ok := m.(*checks.StaticModel); ok && len(sm.Classes()) > 0 {
		opts = append(opts, weaksegments.WithClassesIndexOrder(sm.Classes()))
	}
	check, err := weaksegments.New(opts...)
	if err != nil {
		return err
	}
	if cfg.Condition.Enabled {
		check.AddConditionSegmentsRelativePerformanceGreaterThan(cfg.Condition.MaxRatioChange)
	}

	result, runErr := check.Run(ctx, cc)
	if err := writeMetrics(cfg.Output.MetricsFile, reg); err != nil {
		logger.Warn("writing metrics failed", err)
	}
	if runErr != nil {
		return runErr
	}

	var saved []string
	if cfg.Output.Dir != "" && display {
		if saved, err = weaksegments.SavePanels(result.Panels(), cfg.Output.Dir); err != nil {
			return err
		}
	}
	return printReport(out, result, saved)
}

// completeImportance gives the features a trained model never saw zero
// importance, so they are still ranked.
func completeImportance(m scoring.Model, features []string) map[string]float64 {
	p, ok := m.(interface{ FeatureImportances() map[string]float64 })
	if !ok {
		return nil
	}
	imp := p.FeatureImportances()
	if imp == nil {
		return nil
	}
	for _, f := range features {
		if _, ok := imp[f]; !ok {
			imp[f] = 0
		}
	}
	return imp
}

func writeMetrics(path string, reg *prometheus.Registry) error {
	if path == "" {
		return nil
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, reg), "writing metrics to %s", path)
}

// loadInputs reads the dataset and returns it without the side columns,
// together with the model to check and the per-sample loss, if any.
// Probability columns map to dataset.classes, or to the sorted labels.
func loadInputs(cfg *config.Config) (*dataset.Dataset, scoring.Model, map[string]float64, error) {
	dc := cfg.Dataset
	raw, err := dataset.ReadCSVFile(dc.Path, dataset.CSVOptions{
		LabelColumn:        dc.Label,
		IndexColumn:        dc.Index,
		CategoricalColumns: dc.Categorical,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var side []string
	if dc.Predictions != "" {
		side = append(side, dc.Predictions)
	}
	side = append(side, dc.Probabilities...)
	if dc.Loss != "" {
		side = append(side, dc.Loss)
	}
	data, err := raw.Select(nil, side, true)
	if err != nil {
		return nil, nil, nil, err
	}

	var loss map[string]float64
	if dc.Loss != "" {
		values, err := numericColumn(raw, dc.Loss)
		if err != nil {
			return nil, nil, nil, err
		}
		loss = make(map[string]float64, len(values))
		for i, id := range raw.Index() {
			loss[id] = values[i]
		}
	}

	if dc.Predictions == "" {
		task, _ := cfg.TaskType()
		m, err := trainModel(data, task, cfg.Model.MaxDepth, cfg.Search.RandomState)
		if err != nil {
			return nil, nil, nil, err
		}
		return data, m, loss, nil
	}

	pred, err := numericColumn(raw, dc.Predictions)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(dc.Probabilities) == 0 {
		m, err := checks.NewStaticModel(data, mat.NewVecDense(len(pred), pred), nil, nil, false)
		return data, m, loss, err
	}
	classes := dc.Classes
	if len(classes) == 0 {
		classes = scoring.SortedClasses(data.Label())
	}
	if len(classes) != len(dc.Probabilities) {
		return nil, nil, nil, errors.NewValidationError("dataset.classes", "must name one class per probability column", classes)
	}
	proba := mat.NewDense(len(pred), len(dc.Probabilities), nil)
	for j, name := range dc.Probabilities {
		values, err := numericColumn(raw, name)
		if err != nil {
			return nil, nil, nil, err
		}
		proba.SetCol(j, values)
	}
	m, err := checks.NewStaticModel(data, mat.NewVecDense(len(pred), pred), proba, classes, false)
	return data, m, loss, err
}

func numericColumn(d *dataset.Dataset, name string) ([]float64, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, errors.NewValidationError("dataset", "unknown column", name)
	}
	if c.Kind != dataset.Numeric {
		return nil, errors.NewValidationError("dataset", "column must be numeric", name)
	}
	return c.Numeric, nil
}

// trainModel fits a decision tree on the numeric features. Rows with a missing
// feature or label are left out of training.
func trainModel(data *dataset.Dataset, task scoring.TaskType, maxDepth int, seed int64) (scoring.Model, error) {
	var features []string
	for _, name := range data.Features() {
		if !data.IsCategorical(name) {
			features = append(features, name)
		}
	}
	if len(features) == 0 {
		return nil, errors.NewNotSupportedError("sciguard", "training a model requires at least one numeric feature")
	}
	X, err := data.FeatureMatrix(features)
	if err != nil {
		return nil, err
	}

	label := data.Label()
	var rows []int
	for i := range label {
		if finiteRow(X.RawRowView(i)) && !math.IsNaN(label[i]) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, errors.NewModelError("trainModel", "no complete rows", errors.ErrEmptyData)
	}
	Xt := mat.NewDense(len(rows), len(features), nil)
	yt := mat.NewDense(len(rows), 1, nil)
	for k, i := range rows {
		Xt.SetRow(k, X.RawRowView(i))
		yt.Set(k, 0, label[i])
	}

	opts := []tree.Option{tree.WithMaxDepth(maxDepth), tree.WithRandomState(seed)}
	var est model.Estimator
	if task.IsClassification() {
		est = tree.NewDecisionTreeClassifier(opts...)
	} else {
		est = tree.NewDecisionTreeRegressor(opts...)
	}
	if err := est.Fit(Xt, yt); err != nil {
		return nil, errors.Wrap(err, "training decision tree")
	}
	log.GetLoggerWithName("sciguard").Info("decision tree trained",
		log.ModelNameKey, fmt.Sprintf("%T", est),
		log.SamplesKey, len(rows),
		log.FeaturesKey, len(features),
	)
	return checks.NewEstimatorModel(est, features), nil
}

func finiteRow(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
