// Package sciguard finds the regions of a tabular dataset where a model
// performs worst.
//
// The weak segments check fits small decision trees on the per-sample loss of
// a model over every pair of its most important features, scores each leaf
// with the model's metric and reports the weakest leaf per pair as a segment.
//
// # Quick Start
//
//	data, _ := dataset.ReadCSVFile("houses.csv", dataset.CSVOptions{LabelColumn: "price"})
//
//	cc, err := checks.NewContext(data, checks.NewEstimatorModel(reg, []string{"rooms", "age"}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	check, _ := weaksegments.New(weaksegments.WithNTopFeatures(5))
//	check.AddConditionSegmentsRelativePerformanceGreaterThan(0.2)
//
//	result, err := check.Run(ctx, cc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range result.Value.Segments {
//	    fmt.Println(s.Feature1, s.Feature1Range, s.Feature2, s.Feature2Range, s.Score)
//	}
//
// Models that are not Go estimators are checked through their stored
// predictions with checks.NewStaticModel.
//
// # Packages
//
//   - dataset: tabular data with numeric and categorical columns, CSV reader
//   - scoring: metrics, scorers and per-sample loss
//   - partition: tree leaves as feature filters, segment boundaries
//   - preprocessing: rare category bucketing, target encoding, imputation
//   - checks: check context, static models, results and conditions
//   - checks/weaksegments: the weak segments performance check and its heatmaps
//   - sklearn/tree, sklearn/model_selection: CART trees and grid search
//   - metrics: regression, classification and ranking metrics
//   - pkg/config, pkg/log, pkg/errors, pkg/telemetry: run config, logging, errors, metrics
//
// The sciguard command runs the check from a YAML config:
//
//	sciguard weak-segments --config run.yaml
package sciguard
