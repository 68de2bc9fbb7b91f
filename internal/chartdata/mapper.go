// Package chartdata turns raw SQL result rows into the label/value pairs
// chart frontends consume.
package chartdata

import (
	"fmt"
	"strconv"

	"github.com/chartquery/chartquery/internal/types"
)

// Point is one chart datum.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// MapRows converts result rows to points using the analysis axes. When an
// axis name is absent from the rows it falls back to positional guessing:
// the first string-like column becomes the label, the first numeric column
// the value. Rows that yield no numeric value are skipped.
func MapRows(rows []map[string]any, analysis types.ColumnAnalysis) []Point {
	if len(rows) == 0 {
		return nil
	}

	labelKey, valueKey := resolveAxes(rows[0], analysis)

	points := make([]Point, 0, len(rows))

	for _, row := range rows {
		value, ok := toFloat(row[valueKey])
		if !ok {
			continue
		}

		points = append(points, Point{
			Label: toLabel(row[labelKey]),
			Value: value,
		})
	}

	return points
}

// resolveAxes maps the analysis axes onto actual result columns. SQL aliases
// like "count" frequently differ from the analysis's y_axis, so missing keys
// are re-resolved from the row itself.
func resolveAxes(row map[string]any, analysis types.ColumnAnalysis) (labelKey, valueKey string) {
	labelKey = analysis.XAxis
	valueKey = analysis.YAxis

	_, labelOK := row[labelKey]
	_, valueOK := row[valueKey]

	if labelOK && valueOK && labelKey != valueKey {
		return labelKey, valueKey
	}

	var textCols, numericCols []string

	for key, val := range row {
		if _, ok := toFloat(val); ok {
			numericCols = append(numericCols, key)
		} else {
			textCols = append(textCols, key)
		}
	}

	if !valueOK || labelKey == valueKey {
		if len(numericCols) > 0 {
			valueKey = pickStable(numericCols)
		}
	}

	if !labelOK || labelKey == valueKey {
		if len(textCols) > 0 {
			labelKey = pickStable(textCols)
		} else {
			for _, col := range numericCols {
				if col != valueKey {
					labelKey = col
					break
				}
			}
		}
	}

	return labelKey, valueKey
}

// pickStable returns the lexicographically smallest name so repeated calls
// over map-ordered keys stay deterministic.
func pickStable(cols []string) string {
	best := cols[0]

	for _, col := range cols[1:] {
		if col < best {
			best = col
		}
	}

	return best
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toLabel(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
