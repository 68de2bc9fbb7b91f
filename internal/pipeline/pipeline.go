package pipeline

import (
	"context"

	"github.com/chartquery/chartquery/internal/analyzer"
	"github.com/chartquery/chartquery/internal/chartdata"
	"github.com/chartquery/chartquery/internal/config"
	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/synthesis"
	"github.com/chartquery/chartquery/internal/types"
	"github.com/chartquery/chartquery/internal/verify"
)

// dataStore is the storage surface the pipeline needs. *store.Store
// satisfies it; tests use an in-memory fake.
type dataStore interface {
	ListTables(ctx context.Context) ([]types.TableDescriptor, error)
	DescribeColumns(ctx context.Context, table string) []types.ColumnDescriptor
	SampleData(ctx context.Context, table string, cols []types.ColumnDescriptor, limit int) (types.SampleDataset, error)
	Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// Result is the pipeline's final answer. Chart is always populated: when
// every attempt fails it holds mock data so the caller still renders
// something.
type Result struct {
	Chart        chartdata.Payload        `json:"chart"`
	Table        string                   `json:"table"`
	Prompt       string                   `json:"prompt"`
	Analysis     types.ColumnAnalysis     `json:"analysis"`
	Verification types.VerificationResult `json:"verification"`
	Attempts     int                      `json:"attempts"`
	Error        string                   `json:"error,omitempty"`
}

// Pipeline wires all stages together for one deployment.
type Pipeline struct {
	store       dataStore
	selector    *analyzer.TableSelector
	refiner     *analyzer.Refiner
	analyzer    *analyzer.Analyzer
	synthesizer *synthesis.Synthesizer
	verifier    *verify.Verifier
	cfg         config.PipelineConfig
	logger      *logging.Logger
}

// New builds a pipeline from its stage dependencies.
func New(store dataStore, llmService llm.Service, cfg config.PipelineConfig, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		selector:    analyzer.NewTableSelector(cfg.DefaultTable, logger),
		refiner:     analyzer.NewRefiner(llmService, logger),
		analyzer:    analyzer.NewAnalyzer(llmService, logger),
		synthesizer: synthesis.NewSynthesizer(llmService, logger),
		verifier:    verify.NewVerifier(llmService, cfg.PreviewRows, logger),
		cfg:         cfg,
		logger:      logger,
	}
}

// Run processes one question end to end, streaming progress to sink. It does
// not return an error: terminal failures degrade to a mock chart payload and
// are reported inside the result and as an error event.
func (p *Pipeline) Run(ctx context.Context, query string, sink Sink) Result {
	if sink == nil {
		sink = NullSink{}
	}

	log := p.logger.WithField("query", query)

	sink.Send(ctx, Event{Type: EventStatus, Stage: StageTableSelection,
		Message: "selecting table", Progress: 5})

	tables, err := p.store.ListTables(ctx)
	if err != nil {
		log.WithError(err).Warn("table listing failed, using default table")
		tables = nil
	}

	table := p.selector.Select(query, tables)
	log = log.WithField("table", table.Name)

	sink.Send(ctx, Event{Type: EventStatus, Stage: StageSchema,
		Message: "inspecting schema of " + table.Name, Progress: 15})

	columns := p.store.DescribeColumns(ctx, table.Name)

	prompt := query

	if p.cfg.EnableRefinement {
		sink.Send(ctx, Event{Type: EventStatus, Stage: StageRefinement,
			Message: "refining question", Progress: 25})

		refinement := p.refiner.Refine(ctx, query, columns, tables, table.Name)
		prompt = refinement.ImprovedPrompt

		if refinement.WasImproved {
			log.WithField("prompt", prompt).Debug("prompt refined")
		}
	}

	sink.Send(ctx, Event{Type: EventStatus, Stage: StageAnalysis,
		Message: "choosing chart type and columns", Progress: 35})

	analysis := p.analyzer.Analyze(ctx, prompt, columns)

	sink.Send(ctx, Event{Type: EventStatus, Stage: StageSampling,
		Message: "sampling table data", Progress: 45})

	sample, err := p.store.SampleData(ctx, table.Name, columns, p.cfg.SampleLimit)
	if err != nil {
		log.WithError(err).Warn("sampling failed, synthesizing without sample context")
		sample = types.SampleDataset{}
	}

	controller := NewController(p.synthesizer, p.store, p.verifier,
		p.cfg.MaxRetries, p.cfg.ConfidenceThreshold, p.logger)

	outcome := controller.Run(ctx, synthesis.Request{
		Query:    prompt,
		Table:    table.Name,
		Analysis: analysis,
		Columns:  columns,
		Sample:   sample,
	}, sink)

	sink.Send(ctx, Event{Type: EventStatus, Stage: StageFormatting,
		Message: "formatting chart data", Progress: 95})

	result := Result{
		Table:        table.Name,
		Prompt:       prompt,
		Analysis:     analysis,
		Verification: outcome.Verification,
		Attempts:     outcome.Attempt,
	}

	if !outcome.Success {
		log.WithField("error", outcome.Error).Error("all query attempts failed, returning mock chart")

		result.Error = outcome.Error
		result.Chart = chartdata.MockPayload(analysis.ChartType)

		sink.Send(ctx, Event{Type: EventError, Stage: StageFormatting,
			Message: outcome.Error, Progress: 95})
		sink.Send(ctx, Event{Type: EventResult, Progress: 100, Payload: result})
		sink.Send(ctx, Event{Type: EventDone, Progress: 100})

		return result
	}

	points := chartdata.MapRows(outcome.QueryResults, analysis)
	result.Chart = chartdata.Format(analysis.ChartType, analysis, outcome.SQLData.SQLQuery, points)

	log.WithFields(map[string]any{
		"attempts":   outcome.Attempt,
		"points":     len(points),
		"chart_type": analysis.ChartType,
	}).Info("pipeline completed")

	sink.Send(ctx, Event{Type: EventResult, Progress: 100, Payload: result})
	sink.Send(ctx, Event{Type: EventDone, Progress: 100})

	return result
}

// Schema returns the table list with column details for each table, used by
// the schema endpoint.
func (p *Pipeline) Schema(ctx context.Context) ([]TableSchema, error) {
	tables, err := p.store.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make([]TableSchema, 0, len(tables))

	for _, table := range tables {
		schemas = append(schemas, TableSchema{
			Table:   table,
			Columns: p.store.DescribeColumns(ctx, table.Name),
		})
	}

	return schemas, nil
}

// TableSchema pairs a table with its introspected columns.
type TableSchema struct {
	Table   types.TableDescriptor    `json:"table"`
	Columns []types.ColumnDescriptor `json:"columns"`
}
