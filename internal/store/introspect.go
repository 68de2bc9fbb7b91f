package store

import (
	"context"
	"strings"

	"github.com/chartquery/chartquery/internal/errors"
	"github.com/chartquery/chartquery/internal/types"
)

// Fixed SQL type-name sets used to classify a column's nature from its
// declared type.
var (
	numericTypes = map[string]bool{
		"int": true, "tinyint": true, "smallint": true, "mediumint": true,
		"bigint": true, "decimal": true, "numeric": true, "float": true,
		"double": true, "real": true, "bit": true,
	}

	dateTypes = map[string]bool{
		"date": true, "datetime": true, "timestamp": true, "time": true, "year": true,
	}

	textTypes = map[string]bool{
		"char": true, "varchar": true, "text": true, "tinytext": true,
		"mediumtext": true, "longtext": true, "enum": true, "set": true, "json": true,
	}
)

// ListTables enumerates base tables in the current database. Errors propagate
// so the table selector can fall back to its default descriptor.
func (s *Store) ListTables(ctx context.Context) ([]types.TableDescriptor, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
        SELECT table_name, table_comment
        FROM information_schema.tables
        WHERE table_type = 'BASE TABLE'
          AND table_schema = DATABASE()
        ORDER BY table_name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer rows.Close()

	var tables []types.TableDescriptor

	for rows.Next() {
		var t types.TableDescriptor
		if err := rows.Scan(&t.Name, &t.Comment); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan table row")
		}

		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "table iteration failed")
	}

	return tables, nil
}

// DescribeColumns queries column metadata for a table and derives the
// capability flags and suggested chart types. On store failure it returns a
// small generic descriptor set so the rest of the pipeline can still run
// against some shape.
func (s *Store) DescribeColumns(ctx context.Context, table string) []types.ColumnDescriptor {
	cols, err := s.describeColumns(ctx, table)
	if err != nil {
		s.logger.WithField("table", table).
			Warnf("column introspection failed, using generic fallback: %v", err)

		return FallbackColumns()
	}

	return cols
}

func (s *Store) describeColumns(ctx context.Context, table string) ([]types.ColumnDescriptor, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
        SELECT column_name, data_type, column_comment, is_nullable = 'YES'
        FROM information_schema.columns
        WHERE table_schema = DATABASE() AND table_name = ?
        ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query column metadata")
	}
	defer rows.Close()

	var cols []types.ColumnDescriptor

	for rows.Next() {
		var (
			name, sqlType, comment string
			nullable               bool
		)

		if err := rows.Scan(&name, &sqlType, &comment, &nullable); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan column row")
		}

		cols = append(cols, BuildDescriptor(name, sqlType, comment, nullable))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "column iteration failed")
	}

	if len(cols) == 0 {
		return nil, errors.Newf(errors.ErrTypeDatabase, "table %s has no columns", table)
	}

	return cols, nil
}

// BuildDescriptor derives the full column descriptor from raw metadata. The
// derivation is deterministic: identical inputs always yield identical flags
// and chart suggestions.
func BuildDescriptor(name, sqlType, comment string, nullable bool) types.ColumnDescriptor {
	baseType := strings.ToLower(sqlType)

	// Strip any length suffix like varchar(255)
	if idx := strings.IndexByte(baseType, '('); idx > 0 {
		baseType = baseType[:idx]
	}

	col := types.ColumnDescriptor{
		Name:      name,
		SQLType:   sqlType,
		Comment:   comment,
		Nullable:  nullable,
		IsNumeric: numericTypes[baseType],
		IsDate:    dateTypes[baseType],
		IsText:    textTypes[baseType],
	}

	nameLower := strings.ToLower(name)

	col.CanBeGrouped = col.IsText || col.IsDate ||
		strings.Contains(nameLower, "code") || strings.Contains(nameLower, "category")
	col.CanBeAggregated = col.IsNumeric
	col.SuitableForFilter = col.IsText || col.IsDate
	col.SuggestedChartTypes = suggestChartTypes(col, nameLower)

	return col
}

// suggestChartTypes maps a column's nature to the chart types it most
// plausibly supports.
func suggestChartTypes(col types.ColumnDescriptor, nameLower string) []types.ChartType {
	switch {
	case col.IsDate || strings.Contains(nameLower, "year"):
		return []types.ChartType{types.ChartLine, types.ChartArea}
	case strings.Contains(nameLower, "country") || strings.Contains(nameLower, "category") ||
		strings.Contains(nameLower, "type") || strings.Contains(nameLower, "code"):
		return []types.ChartType{types.ChartBar, types.ChartColumn, types.ChartPie, types.ChartDonut}
	case col.IsNumeric:
		return []types.ChartType{types.ChartHistogram, types.ChartScatter}
	case col.IsText && commentSuggestsEnum(col.Comment):
		return []types.ChartType{types.ChartPie, types.ChartDonut, types.ChartBar}
	default:
		return []types.ChartType{types.ChartBar, types.ChartColumn}
	}
}

func commentSuggestsEnum(comment string) bool {
	c := strings.ToLower(comment)

	return strings.Contains(c, "enum") || strings.Contains(c, "choice") || strings.Contains(c, "type")
}

// FallbackColumns returns the generic descriptor set substituted when
// introspection fails. It is deliberately not dataset-specific.
func FallbackColumns() []types.ColumnDescriptor {
	return []types.ColumnDescriptor{
		BuildDescriptor("category", "varchar", "", true),
		BuildDescriptor("value", "int", "", true),
		BuildDescriptor("recorded_at", "date", "", true),
	}
}
