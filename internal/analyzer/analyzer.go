package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/types"
)

const maxFastPathColumns = 2

// Analyzer produces the single ColumnAnalysis that decides chart shape for a
// request, via either the keyword fast path or the LLM slow path.
type Analyzer struct {
	llmService llm.Service
	logger     *logging.Logger
}

// NewAnalyzer creates a new chart-type/column analyzer.
func NewAnalyzer(llmService llm.Service, logger *logging.Logger) *Analyzer {
	return &Analyzer{llmService: llmService, logger: logger}
}

// Analyze decides required columns, chart type, axes, and aggregation for the
// query. The fast path never calls the LLM; the slow path falls back to a
// deterministic default analysis when the LLM response is unusable.
func (a *Analyzer) Analyze(
	ctx context.Context,
	query string,
	cols []types.ColumnDescriptor,
) types.ColumnAnalysis {
	if chartType, ok := DetectChartKeyword(query); ok {
		a.logger.WithField("chart_type", chartType).Debug("chart type detected via keyword fast path")

		return a.fastPathAnalysis(chartType, cols)
	}

	analysis, err := a.slowPathAnalysis(ctx, query, cols)
	if err != nil {
		a.logger.Warnf("LLM column analysis failed, using default analysis: %v", err)

		return DefaultAnalysis(cols)
	}

	return analysis
}

// fastPathAnalysis synthesizes a ColumnAnalysis directly from the detected
// chart type and the groupable columns, with count aggregation.
func (a *Analyzer) fastPathAnalysis(
	chartType types.ChartType,
	cols []types.ColumnDescriptor,
) types.ColumnAnalysis {
	groupable := types.GroupableColumns(cols)
	if len(groupable) > maxFastPathColumns {
		groupable = groupable[:maxFastPathColumns]
	}

	if len(groupable) == 0 {
		groupable = []string{"category"}
	}

	return types.ColumnAnalysis{
		RequiredColumns: groupable,
		ChartType:       chartType,
		Analysis:        "chart type detected from an explicit keyword in the question",
		ChartReasoning:  fmt.Sprintf("question names a %s chart", chartType),
		DataAggregation: types.AggCount,
		XAxis:           groupable[0],
		YAxis:           "count",
	}
}

// slowPathAnalysis asks the LLM to choose columns, chart type, axes, and
// aggregation.
func (a *Analyzer) slowPathAnalysis(
	ctx context.Context,
	query string,
	cols []types.ColumnDescriptor,
) (types.ColumnAnalysis, error) {
	prompt := buildAnalysisPrompt(query, cols)

	response, err := a.llmService.Complete(ctx, prompt)
	if err != nil {
		return types.ColumnAnalysis{}, err
	}

	var analysis types.ColumnAnalysis
	if err := llm.DecodeFirstJSON(response, &analysis); err != nil {
		return types.ColumnAnalysis{}, err
	}

	return sanitizeAnalysis(analysis, cols), nil
}

// sanitizeAnalysis validates the parse-boundary fields: unknown chart types
// become bar, and required columns not present in the live schema are
// dropped before they can reach SQL synthesis.
func sanitizeAnalysis(analysis types.ColumnAnalysis, cols []types.ColumnDescriptor) types.ColumnAnalysis {
	if !analysis.ChartType.IsValid() {
		analysis.ChartType = types.ChartBar
	}

	var known []string

	for _, name := range analysis.RequiredColumns {
		if types.HasColumn(cols, name) {
			known = append(known, name)
		}
	}

	if len(known) == 0 {
		known = types.GroupableColumns(cols)
		if len(known) > maxFastPathColumns {
			known = known[:maxFastPathColumns]
		}
	}

	analysis.RequiredColumns = known

	if analysis.DataAggregation == "" {
		analysis.DataAggregation = types.AggCount
	}

	if analysis.XAxis == "" && len(known) > 0 {
		analysis.XAxis = known[0]
	}

	if analysis.YAxis == "" {
		analysis.YAxis = "count"
	}

	return analysis
}

// DefaultAnalysis is the deterministic fallback used when the LLM response
// cannot be parsed: the first two groupable columns (or a fixed generic
// pair) with a bar chart and count aggregation.
func DefaultAnalysis(cols []types.ColumnDescriptor) types.ColumnAnalysis {
	required := types.GroupableColumns(cols)
	if len(required) > maxFastPathColumns {
		required = required[:maxFastPathColumns]
	}

	if len(required) == 0 {
		required = []string{"category", "value"}
	}

	return types.ColumnAnalysis{
		RequiredColumns: required,
		ChartType:       types.ChartBar,
		Analysis:        "default analysis substituted after an unusable LLM response",
		DataAggregation: types.AggCount,
		XAxis:           required[0],
		YAxis:           "count",
	}
}

// buildAnalysisPrompt enumerates every column with its capabilities and
// suggested chart types, plus summaries of the time and category columns.
func buildAnalysisPrompt(query string, cols []types.ColumnDescriptor) string {
	var sb strings.Builder

	sb.WriteString("You are a data visualization expert. ")
	sb.WriteString("Choose the columns and chart type that best answer the user's question.\n\n")
	sb.WriteString("Available columns:\n")

	for _, col := range cols {
		sb.WriteString(fmt.Sprintf("- %s (%s)", col.Name, col.SQLType))

		var caps []string

		if col.CanBeGrouped {
			caps = append(caps, "groupable")
		}

		if col.CanBeAggregated {
			caps = append(caps, "aggregatable")
		}

		if col.SuitableForFilter {
			caps = append(caps, "filterable")
		}

		if len(caps) > 0 {
			sb.WriteString(" [" + strings.Join(caps, ", ") + "]")
		}

		if len(col.SuggestedChartTypes) > 0 {
			sb.WriteString(" suggested charts: ")

			for i, ct := range col.SuggestedChartTypes {
				if i > 0 {
					sb.WriteString(", ")
				}

				sb.WriteString(string(ct))
			}
		}

		if col.Comment != "" {
			sb.WriteString(" - " + col.Comment)
		}

		sb.WriteString("\n")
	}

	var timeCols, categoryCols []string

	for _, col := range cols {
		if col.IsDate || strings.Contains(strings.ToLower(col.Name), "year") {
			timeCols = append(timeCols, col.Name)
		} else if col.CanBeGrouped {
			categoryCols = append(categoryCols, col.Name)
		}
	}

	sb.WriteString(fmt.Sprintf("\nTime columns: %s\n", strings.Join(timeCols, ", ")))
	sb.WriteString(fmt.Sprintf("Category columns: %s\n", strings.Join(categoryCols, ", ")))

	sb.WriteString("\nRespond with fields: required_columns (array), chart_type ")
	sb.WriteString("(bar|column|line|pie|donut|area|scatter|histogram), alternative_charts (array), ")
	sb.WriteString("analysis, chart_reasoning, data_aggregation (count|sum|average|min|max), ")
	sb.WriteString("x_axis, y_axis, suggested_filters (array), column_reasoning.\n")
	sb.WriteString(llm.JSONInstruction)
	sb.WriteString("\n\nUser question: ")
	sb.WriteString(query)

	return sb.String()
}
