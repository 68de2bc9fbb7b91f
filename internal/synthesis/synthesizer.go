// Package synthesis turns a ColumnAnalysis plus schema and sample context
// into an executable SQL statement via the LLM, with a deterministic
// group-by-count floor when the LLM is unusable.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/types"
)

const (
	maxPromptSampleRows = 3
	fallbackRowLimit    = 15
)

// Request carries everything one synthesis attempt needs. Feedback is nil on
// the first attempt and carries the verifier's output on retries.
type Request struct {
	Query    string
	Table    string
	Analysis types.ColumnAnalysis
	Columns  []types.ColumnDescriptor
	Sample   types.SampleDataset
	Feedback *Feedback
}

// Feedback is the verifier context appended to a retry attempt's prompt.
type Feedback struct {
	IssuesFound []string
	Suggestions []string
	ImprovedSQL string
}

// Synthesizer generates SQL through the LLM.
type Synthesizer struct {
	llmService llm.Service
	logger     *logging.Logger
}

// NewSynthesizer creates a new SQL synthesizer.
func NewSynthesizer(llmService llm.Service, logger *logging.Logger) *Synthesizer {
	return &Synthesizer{llmService: llmService, logger: logger}
}

// Synthesize produces one SQL attempt. On any failure (network or parse) it
// returns the deterministic fallback query, which is always valid standalone
// SQL: the system's guaranteed floor.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) types.SQLSynthesisResult {
	prompt := buildSynthesisPrompt(req)

	response, err := s.llmService.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warnf("SQL synthesis LLM call failed, using fallback query: %v", err)

		return FallbackResult(req)
	}

	var result types.SQLSynthesisResult
	if err := llm.DecodeFirstJSON(response, &result); err != nil {
		s.logger.Warnf("SQL synthesis response unparsable, using fallback query: %v", err)

		return FallbackResult(req)
	}

	if strings.TrimSpace(result.SQLQuery) == "" {
		return FallbackResult(req)
	}

	return result
}

// FallbackResult builds the templated group-by-count query used when the LLM
// response is unusable.
func FallbackResult(req Request) types.SQLSynthesisResult {
	column := fallbackColumn(req)

	return types.SQLSynthesisResult{
		SQLQuery: fmt.Sprintf(
			"SELECT `%s`, COUNT(*) AS count FROM `%s` GROUP BY `%s` ORDER BY count DESC LIMIT %d",
			column, req.Table, column, fallbackRowLimit,
		),
		Explanation: fmt.Sprintf("Counts rows grouped by %s.", column),
		ColumnsUsed: []string{column},
	}
}

// fallbackColumn picks the grouping column for the fallback query: the first
// required column present in the schema, then the first groupable column,
// then the first column at all.
func fallbackColumn(req Request) string {
	for _, name := range req.Analysis.RequiredColumns {
		if types.HasColumn(req.Columns, name) {
			return name
		}
	}

	if groupable := types.GroupableColumns(req.Columns); len(groupable) > 0 {
		return groupable[0]
	}

	if len(req.Columns) > 0 {
		return req.Columns[0].Name
	}

	return "category"
}

// queryShapeTemplate describes the SQL shape expected for a chart type.
func queryShapeTemplate(chartType types.ChartType) string {
	switch chartType {
	case types.ChartLine, types.ChartArea:
		return "SELECT <time-column>, COUNT(*)/<aggregate> FROM <table> GROUP BY <time-column> ORDER BY <time-column> ASC"
	case types.ChartScatter:
		return "SELECT <numeric-column-1>, <numeric-column-2> FROM <table> WHERE both are not null"
	case types.ChartHistogram:
		return "SELECT <numeric-column>, COUNT(*) FROM <table> GROUP BY <numeric-column> ORDER BY <numeric-column> ASC"
	default:
		// bar, column, pie, donut: categorical distribution
		return "SELECT <category-column>, COUNT(*)/<aggregate> AS value FROM <table> GROUP BY <category-column> ORDER BY value DESC"
	}
}

// buildSynthesisPrompt embeds the query-shape template, column capabilities,
// literal sample rows, and per-column distinct values. The model is told to
// build WHERE clauses from the real values it sees, not invented ones.
func buildSynthesisPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("You are a MySQL expert. Write one SELECT statement answering the question below.\n\n")
	sb.WriteString(fmt.Sprintf("Table: %s\n", req.Table))
	sb.WriteString(fmt.Sprintf("Chart type: %s\n", req.Analysis.ChartType))
	sb.WriteString(fmt.Sprintf("Required columns: %s\n", strings.Join(req.Analysis.RequiredColumns, ", ")))
	sb.WriteString(fmt.Sprintf("Aggregation: %s\n", req.Analysis.DataAggregation))
	sb.WriteString(fmt.Sprintf("Expected query shape: %s\n\n", queryShapeTemplate(req.Analysis.ChartType)))

	sb.WriteString("Columns:\n")

	for _, col := range req.Columns {
		sb.WriteString(fmt.Sprintf("- %s (%s)", col.Name, col.SQLType))

		if col.CanBeGrouped {
			sb.WriteString(" groupable")
		}

		if col.CanBeAggregated {
			sb.WriteString(" aggregatable")
		}

		if col.Comment != "" {
			sb.WriteString(" - " + col.Comment)
		}

		sb.WriteString("\n")
	}

	if len(req.Sample.SampleRecords) > 0 {
		sb.WriteString("\nSample rows:\n")

		rows := req.Sample.SampleRecords
		if len(rows) > maxPromptSampleRows {
			rows = rows[:maxPromptSampleRows]
		}

		for _, row := range rows {
			data, _ := json.Marshal(row)
			sb.Write(data)
			sb.WriteString("\n")
		}
	}

	if len(req.Sample.DistinctValues) > 0 {
		sb.WriteString("\nObserved distinct values:\n")

		for _, col := range req.Sample.CategoricalColumns {
			values := req.Sample.DistinctValues[col]
			if len(values) == 0 {
				continue
			}

			sb.WriteString(fmt.Sprintf("- %s: %s\n", col, strings.Join(values, ", ")))
		}

		sb.WriteString("\nBuild WHERE clauses from these real values. If the question mentions ")
		sb.WriteString("Thailand and the distinct values contain 'Thailand', filter with ")
		sb.WriteString("country = 'Thailand', not an invented spelling.\n")
	}

	if req.Feedback != nil {
		sb.WriteString("\nA previous attempt was rejected.\n")

		if len(req.Feedback.IssuesFound) > 0 {
			sb.WriteString("Issues: " + strings.Join(req.Feedback.IssuesFound, "; ") + "\n")
		}

		if len(req.Feedback.Suggestions) > 0 {
			sb.WriteString("Suggestions: " + strings.Join(req.Feedback.Suggestions, "; ") + "\n")
		}

		if req.Feedback.ImprovedSQL != "" {
			sb.WriteString("A reviewer proposed this SQL, use it as a starting point: " +
				req.Feedback.ImprovedSQL + "\n")
		}
	}

	sb.WriteString("\nRespond with fields: sql_query, explanation, query_reasoning, ")
	sb.WriteString("columns_used (array), filters_applied (array), chart_suitability, ")
	sb.WriteString("sample_data_insights.\n")
	sb.WriteString(llm.JSONInstruction)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(req.Query)

	return sb.String()
}
