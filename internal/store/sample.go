package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/chartquery/chartquery/internal/errors"
	"github.com/chartquery/chartquery/internal/types"
)

const (
	minSampleLimit       = 1
	maxSampleLimit       = 100
	maxDistinctValues    = 5
	maxCategoricalSample = 5
)

// SampleData fetches up to limit rows plus distinct-value sets for up to five
// categorical columns. The row limit is clamped to [1,100] before it is
// embedded in the LIMIT clause; MySQL does not accept a bound parameter
// there. Per-column distinct failures are tolerated: the column records an
// empty set and sampling continues.
func (s *Store) SampleData(
	ctx context.Context,
	table string,
	cols []types.ColumnDescriptor,
	limit int,
) (types.SampleDataset, error) {
	dataset := types.SampleDataset{
		DistinctValues: make(map[string][]string),
	}

	quotedTable, err := quoteIdentifier(table)
	if err != nil {
		return dataset, err
	}

	limit = ClampSampleLimit(limit)

	records, err := s.Execute(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quotedTable, limit))
	if err != nil {
		return dataset, errors.Wrap(err, errors.ErrTypeDatabase, "failed to fetch sample rows")
	}

	dataset.SampleRecords = records
	dataset.TotalSampleCount = len(records)

	for _, col := range categoricalColumns(cols) {
		dataset.CategoricalColumns = append(dataset.CategoricalColumns, col)

		values, err := s.distinctValues(ctx, quotedTable, col)
		if err != nil {
			s.logger.WithField("column", col).
				Warnf("distinct value fetch failed, recording empty set: %v", err)

			dataset.DistinctValues[col] = []string{}

			continue
		}

		dataset.DistinctValues[col] = values
	}

	return dataset, nil
}

// ClampSampleLimit bounds a requested sample size to the safe range.
func ClampSampleLimit(limit int) int {
	if limit < minSampleLimit {
		return minSampleLimit
	}

	if limit > maxSampleLimit {
		return maxSampleLimit
	}

	return limit
}

// categoricalColumns picks up to five text-and-groupable columns, skipping
// identifier-like names that would produce useless distinct sets.
func categoricalColumns(cols []types.ColumnDescriptor) []string {
	var names []string

	for _, col := range cols {
		if !col.IsText || !col.CanBeGrouped {
			continue
		}

		if isIdentifierLike(col.Name) {
			continue
		}

		names = append(names, col.Name)

		if len(names) >= maxCategoricalSample {
			break
		}
	}

	return names
}

func isIdentifierLike(name string) bool {
	n := strings.ToLower(name)

	return n == "id" || strings.HasSuffix(n, "_id") || strings.Contains(n, "uuid")
}

func (s *Store) distinctValues(ctx context.Context, quotedTable, column string) ([]string, error) {
	quotedCol, err := quoteIdentifier(column)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		quotedCol, quotedTable, quotedCol, maxDistinctValues,
	)

	rows, err := s.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(rows))

	for _, row := range rows {
		for _, v := range row {
			values = append(values, fmt.Sprintf("%v", v))
		}
	}

	return values, nil
}
