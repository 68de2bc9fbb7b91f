// Package verify asks the LLM to judge whether executed query results
// actually answer the user's question, producing the accept/retry signal
// for the pipeline.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/types"
)

const defaultPreviewRows = 10

// Structural fallback confidences when the LLM cannot be consulted.
const (
	fallbackConfidenceWithRows = 70
	fallbackConfidenceNoRows   = 30
)

// Request carries everything one verification needs: the question, the SQL
// that ran, its results, and the analysis the SQL was synthesized from.
type Request struct {
	Query    string
	SQLQuery string
	Rows     []map[string]any
	Analysis types.ColumnAnalysis
	Columns  []types.ColumnDescriptor
}

// Verifier scores query results against the original question.
type Verifier struct {
	llmService  llm.Service
	previewRows int
	logger      *logging.Logger
}

// NewVerifier creates a result verifier. previewRows bounds how many result
// rows reach the judgement prompt; values below one fall back to the default.
func NewVerifier(llmService llm.Service, previewRows int, logger *logging.Logger) *Verifier {
	if previewRows < 1 {
		previewRows = defaultPreviewRows
	}

	return &Verifier{llmService: llmService, previewRows: previewRows, logger: logger}
}

// Verify returns the LLM's judgement of the results, or a structural
// fallback judgement when the LLM call or parse fails. Confidence is always
// clamped to [0,100].
func (v *Verifier) Verify(ctx context.Context, req Request) types.VerificationResult {
	prompt := v.buildVerifyPrompt(req)

	response, err := v.llmService.Complete(ctx, prompt)
	if err != nil {
		v.logger.Warnf("verification LLM call failed, using structural check: %v", err)

		return StructuralVerification(req.Rows)
	}

	var result types.VerificationResult
	if err := llm.DecodeFirstJSON(response, &result); err != nil {
		v.logger.Warnf("verification response unparsable, using structural check: %v", err)

		return StructuralVerification(req.Rows)
	}

	result.ConfidenceScore = clampConfidence(result.ConfidenceScore)

	return result
}

// StructuralVerification is the LLM-free judgement: non-empty results pass
// with moderate confidence, empty results fail and request a retry.
func StructuralVerification(rows []map[string]any) types.VerificationResult {
	if len(rows) > 0 {
		return types.VerificationResult{
			IsValid:         true,
			ConfidenceScore: fallbackConfidenceWithRows,
			Reasoning:       "structural check: query returned data",
			DataQuality:     "unverified",
		}
	}

	return types.VerificationResult{
		IsValid:         false,
		ConfidenceScore: fallbackConfidenceNoRows,
		IssuesFound:     []string{"query returned no rows"},
		ShouldRetry:     true,
		Reasoning:       "structural check: empty result set",
		DataQuality:     "empty",
	}
}

func clampConfidence(score int) int {
	if score < 0 {
		return 0
	}

	if score > 100 {
		return 100
	}

	return score
}

// buildVerifyPrompt shows the model the analysis the SQL was generated from,
// the available schema, and a bounded preview of the results plus a count of
// rows held back, so large result sets never blow up the prompt.
func (v *Verifier) buildVerifyPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("You are reviewing whether SQL query results answer a user's question.\n\n")
	sb.WriteString("Question: " + req.Query + "\n")
	sb.WriteString("SQL: " + req.SQLQuery + "\n")

	if req.Analysis.ChartType != "" {
		sb.WriteString(fmt.Sprintf("Intended chart: %s (x: %s, y: %s, aggregation: %s)\n",
			req.Analysis.ChartType, req.Analysis.XAxis, req.Analysis.YAxis,
			req.Analysis.DataAggregation))
	}

	if len(req.Analysis.RequiredColumns) > 0 {
		sb.WriteString("Columns the analysis required: " +
			strings.Join(req.Analysis.RequiredColumns, ", ") + "\n")
	}

	if len(req.Columns) > 0 {
		sb.WriteString("Available columns:\n")

		for _, col := range req.Columns {
			sb.WriteString(fmt.Sprintf("- %s (%s)", col.Name, col.SQLType))

			if col.Comment != "" {
				sb.WriteString(" - " + col.Comment)
			}

			sb.WriteString("\n")
		}
	}

	preview := req.Rows
	if len(preview) > v.previewRows {
		preview = preview[:v.previewRows]
	}

	sb.WriteString(fmt.Sprintf("\nResults (%d rows total):\n", len(req.Rows)))

	for _, row := range preview {
		data, _ := json.Marshal(row)
		sb.Write(data)
		sb.WriteString("\n")
	}

	if remaining := len(req.Rows) - len(preview); remaining > 0 {
		sb.WriteString(fmt.Sprintf("... and %d more rows\n", remaining))
	}

	sb.WriteString("\nJudge whether these results answer the question and suit the intended ")
	sb.WriteString("chart. If the SQL is wrong, propose a corrected statement in improved_sql. ")
	sb.WriteString("Set should_retry to false when another attempt cannot do better.\n")
	sb.WriteString("Respond with fields: is_valid (boolean), confidence_score (0-100), ")
	sb.WriteString("issues_found (array), suggestions (array), should_retry (boolean), ")
	sb.WriteString("improved_sql, reasoning, data_quality.\n")
	sb.WriteString(llm.JSONInstruction)

	return sb.String()
}
