package weaksegments

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/dataset"
	"github.com/YuminosukeSato/sciguard/pkg/errors"
	"github.com/YuminosukeSato/sciguard/pkg/log"
	"github.com/YuminosukeSato/sciguard/preprocessing"
)

// encodeFeatures turns every categorical feature numeric and fills the gaps.
// Rare categories are merged into "other", the result is target encoded on the
// label, and finally every feature's missing values take the column mode. The
// returned mappings record, per categorical feature, the encoding of each
// category before imputation.
func encodeFeatures(data *dataset.Dataset, threshold float64, logger log.Logger) (*dataset.Dataset, map[string]preprocessing.CategoryMapping, error) {
	mappings := make(map[string]preprocessing.CategoryMapping)
	label := data.Label()

	var encodedCols []dataset.Column
	for _, name := range data.CatFeatures() {
		col, _ := data.Column(name)

		bucketizer := preprocessing.NewRareCategoryBucketizer(threshold)
		aggregated, err := bucketizer.FitTransform(col.Categorical)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bucketing %q", name)
		}
		if rare := bucketizer.RareCategories(); len(rare) > 0 && logger.Enabled(context.Background(), log.LevelDebug) {
			logger.Debug("rare categories merged",
				log.OperationKey, log.OperationEncode,
				log.Feature1Key, name,
				log.RareCategoriesKey, rare,
			)
		}

		values, err := preprocessing.NewTargetEncoder().FitTransform(aggregated, label)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "target encoding %q", name)
		}
		mappings[name] = preprocessing.NewCategoryMapping(name, aggregated, values)
		encodedCols = append(encodedCols, dataset.NewNumericColumn(name, values))
	}

	encoded, err := data.WithColumns(encodedCols...)
	if err != nil {
		return nil, nil, err
	}
	X, err := encoded.FeatureMatrix(nil)
	if err != nil {
		return nil, nil, err
	}
	filled, err := preprocessing.NewMostFrequentImputer().FitTransform(X)
	if err != nil {
		return nil, nil, errors.Wrap(err, "imputing features")
	}

	features := encoded.Features()
	imputed := make([]dataset.Column, len(features))
	for j, name := range features {
		imputed[j] = dataset.NewNumericColumn(name, mat.Col(nil, j, filled))
	}
	out, err := encoded.WithColumns(imputed...)
	if err != nil {
		return nil, nil, err
	}
	return out, mappings, nil
}
