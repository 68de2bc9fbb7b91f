package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/types"
)

// Refiner asks the LLM to turn the user's question into a clearer, more
// specific one. The stage is optional: its entire failure policy is to return
// the original prompt unchanged, never an error.
type Refiner struct {
	llmService llm.Service
	logger     *logging.Logger
}

// NewRefiner creates a new prompt refiner.
func NewRefiner(llmService llm.Service, logger *logging.Logger) *Refiner {
	return &Refiner{llmService: llmService, logger: logger}
}

// Refine returns a clarified version of the query with a suggested chart
// type, or the original query with WasImproved=false on any failure.
func (r *Refiner) Refine(
	ctx context.Context,
	query string,
	cols []types.ColumnDescriptor,
	tables []types.TableDescriptor,
	selectedTable string,
) types.RefinementResult {
	passthrough := types.RefinementResult{
		ImprovedPrompt: query,
		WasImproved:    false,
	}

	prompt := buildRefinementPrompt(query, cols, tables, selectedTable)

	response, err := r.llmService.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warnf("prompt refinement failed, passing original query through: %v", err)

		return passthrough
	}

	var result types.RefinementResult
	if err := llm.DecodeFirstJSON(response, &result); err != nil {
		r.logger.Warnf("prompt refinement response unparsable, passing original query through: %v", err)

		return passthrough
	}

	if strings.TrimSpace(result.ImprovedPrompt) == "" {
		return passthrough
	}

	result.WasImproved = true

	return result
}

func buildRefinementPrompt(
	query string,
	cols []types.ColumnDescriptor,
	tables []types.TableDescriptor,
	selectedTable string,
) string {
	var sb strings.Builder

	sb.WriteString("You are a data analyst. Rewrite the user's question so it is specific and ")
	sb.WriteString("answerable from the schema below, preserving the user's intent and language.\n\n")
	sb.WriteString(fmt.Sprintf("Selected table: %s\n", selectedTable))

	if len(tables) > 0 {
		sb.WriteString("All tables: ")

		for i, t := range tables {
			if i > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(t.Name)
		}

		sb.WriteString("\n")
	}

	sb.WriteString("Columns:\n")

	for _, col := range cols {
		sb.WriteString(fmt.Sprintf("- %s (%s)", col.Name, col.SQLType))

		if col.Comment != "" {
			sb.WriteString(" - " + col.Comment)
		}

		sb.WriteString("\n")
	}

	sb.WriteString("\nRespond with fields: improved_prompt, improvements_made (array), ")
	sb.WriteString("suggested_chart_type, key_insights (array), data_focus, ")
	sb.WriteString("filter_suggestions (array), reasoning.\n")
	sb.WriteString(llm.JSONInstruction)
	sb.WriteString("\n\nOriginal question: ")
	sb.WriteString(query)

	return sb.String()
}
