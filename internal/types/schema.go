package types

// TableDescriptor identifies a candidate table in the store.
type TableDescriptor struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// ColumnDescriptor is the derived metadata for one table column. It is built
// once per table per request from store metadata and never mutated afterwards.
type ColumnDescriptor struct {
	Name                string      `json:"name"`
	SQLType             string      `json:"sql_type"`
	Comment             string      `json:"comment"`
	Nullable            bool        `json:"nullable"`
	IsNumeric           bool        `json:"is_numeric"`
	IsDate              bool        `json:"is_date"`
	IsText              bool        `json:"is_text"`
	CanBeGrouped        bool        `json:"can_be_grouped"`
	CanBeAggregated     bool        `json:"can_be_aggregated"`
	SuitableForFilter   bool        `json:"suitable_for_filter"`
	SuggestedChartTypes []ChartType `json:"suggested_chart_types"`
}

// SampleDataset carries a small slice of real table content used as LLM
// context. It is never returned to the caller verbatim.
type SampleDataset struct {
	SampleRecords      []map[string]any    `json:"sample_records"`
	DistinctValues     map[string][]string `json:"distinct_values"`
	CategoricalColumns []string            `json:"categorical_columns"`
	TotalSampleCount   int                 `json:"total_sample_count"`
}

// GroupableColumns returns the names of columns usable as GROUP BY targets,
// in descriptor order.
func GroupableColumns(cols []ColumnDescriptor) []string {
	var names []string

	for _, c := range cols {
		if c.CanBeGrouped {
			names = append(names, c.Name)
		}
	}

	return names
}

// HasColumn reports whether name appears in cols.
func HasColumn(cols []ColumnDescriptor, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}

	return false
}
