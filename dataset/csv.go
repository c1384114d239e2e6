package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// CSVOptions describes how to read a CSV file into a Dataset.
type CSVOptions struct {
	// LabelColumn is the label header. Empty for unlabeled data.
	LabelColumn string
	// IndexColumn holds the sample ids. Row numbers are used when empty.
	IndexColumn string
	// CategoricalColumns are always read as categorical. Other columns are
	// categorical only when some value does not parse as a number.
	CategoricalColumns []string
	// DropColumns are skipped entirely.
	DropColumns []string
}

// missingValues are the cell values read as missing.
var missingValues = map[string]bool{"": true, "?": true, "NA": true, "NaN": true, "nan": true, "null": true}

// ReadCSV parses a CSV stream with a header row.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV header")
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV body")
	}

	forceCat := toSet(opts.CategoricalColumns)
	drop := toSet(opts.DropColumns)
	labelPos, indexPos := -1, -1
	for j, h := range header {
		switch {
		case opts.LabelColumn != "" && h == opts.LabelColumn:
			labelPos = j
		case opts.IndexColumn != "" && h == opts.IndexColumn:
			indexPos = j
		}
	}
	if opts.LabelColumn != "" && labelPos < 0 {
		return nil, errors.NewValidationError("label_column", "not found in CSV header", opts.LabelColumn)
	}
	if opts.IndexColumn != "" && indexPos < 0 {
		return nil, errors.NewValidationError("index_column", "not found in CSV header", opts.IndexColumn)
	}

	cell := func(row []string, j int) string {
		return strings.TrimSpace(row[j])
	}

	var index []string
	if indexPos >= 0 {
		index = make([]string, len(records))
		for i, row := range records {
			index[i] = cell(row, indexPos)
		}
	}

	var label []float64
	if labelPos >= 0 {
		label = make([]float64, len(records))
		for i, row := range records {
			v, ok, err := parseNumber(cell(row, labelPos))
			if err != nil {
				return nil, errors.Wrapf(err, "parsing label on line %d", i+2)
			}
			if !ok {
				v = math.NaN()
			}
			label[i] = v
		}
	}

	var columns []Column
	for j, name := range header {
		if j == labelPos || j == indexPos || drop[name] {
			continue
		}
		raw := make([]string, len(records))
		for i, row := range records {
			raw[i] = cell(row, j)
		}
		columns = append(columns, buildColumn(name, raw, forceCat[name]))
	}

	return New(index, columns, opts.LabelColumn, label)
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset %s", path)
	}
	defer f.Close()

	d, err := ReadCSV(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing CSV file %s", path)
	}
	return d, nil
}

func buildColumn(name string, raw []string, categorical bool) Column {
	if !categorical {
		values := make([]float64, len(raw))
		for i, s := range raw {
			v, ok, err := parseNumber(s)
			if err != nil {
				categorical = true
				break
			}
			if !ok {
				v = math.NaN()
			}
			values[i] = v
		}
		if !categorical {
			return NewNumericColumn(name, values)
		}
	}

	values := make([]string, len(raw))
	for i, s := range raw {
		if !missingValues[s] {
			values[i] = s
		}
	}
	return NewCategoricalColumn(name, values)
}

// parseNumber returns ok=false for a missing value.
func parseNumber(s string) (float64, bool, error) {
	if missingValues[s] {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
