package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartquery/chartquery/internal/config"
	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/store"
	"github.com/chartquery/chartquery/internal/types"
)

// scriptedLLM returns canned responses in call order.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)

	if len(s.responses) == 0 {
		return "", errors.New("no scripted response left")
	}

	response := s.responses[0]
	s.responses = s.responses[1:]

	return response, nil
}

func (s *scriptedLLM) Configure(llm.Config) error { return nil }

// fakeStore is an in-memory medal table.
type fakeStore struct {
	executeErr error
	queries    []string
}

func (f *fakeStore) ListTables(context.Context) ([]types.TableDescriptor, error) {
	return []types.TableDescriptor{
		{Name: "olympic_medalists", Comment: "medal results by games"},
		{Name: "sales_orders"},
	}, nil
}

func (f *fakeStore) DescribeColumns(_ context.Context, _ string) []types.ColumnDescriptor {
	return []types.ColumnDescriptor{
		store.BuildDescriptor("country", "varchar(100)", "", false),
		store.BuildDescriptor("medal", "varchar(20)", "enum: gold, silver, bronze", false),
	}
}

func (f *fakeStore) SampleData(context.Context, string, []types.ColumnDescriptor, int) (types.SampleDataset, error) {
	return types.SampleDataset{
		SampleRecords: []map[string]any{
			{"country": "Thailand", "medal": "gold"},
		},
		DistinctValues: map[string][]string{
			"country": {"Thailand", "Japan"},
			"medal":   {"gold", "silver", "bronze"},
		},
		CategoricalColumns: []string{"country", "medal"},
	}, nil
}

func (f *fakeStore) Execute(_ context.Context, query string, _ ...any) ([]map[string]any, error) {
	f.queries = append(f.queries, query)

	if f.executeErr != nil {
		return nil, f.executeErr
	}

	return []map[string]any{
		{"country": "Thailand", "count": "9"},
	}, nil
}

func pipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxRetries:          2,
		ConfidenceThreshold: 70,
		SampleLimit:         10,
		PreviewRows:         10,
		DefaultTable:        "olympic_medalists",
		EnableRefinement:    true,
	}
}

// collectingSink records every event for assertions.
type collectingSink struct {
	events []Event
}

func (c *collectingSink) Send(_ context.Context, event Event) {
	c.events = append(c.events, event)
}

func (c *collectingSink) stages() []string {
	var stages []string
	for _, e := range c.events {
		if e.Type == EventStatus {
			stages = append(stages, e.Stage)
		}
	}

	return stages
}

func TestPipeline_ThaiGoldMedalQuery(t *testing.T) {
	// Call order: refine, analyze (no chart keyword in the query, so the
	// slow path runs), synthesize, verify
	llmService := &scriptedLLM{responses: []string{
		`{"improved_prompt":"Count gold medals won by Thailand","was_improved":true}`,
		`{"required_columns":["country","medal"],"chart_type":"bar",
		"data_aggregation":"count","x_axis":"country","y_axis":"count"}`,
		`{"sql_query":"SELECT country, COUNT(*) AS count FROM olympic_medalists WHERE medal = 'gold' AND country = 'Thailand' GROUP BY country"}`,
		`{"is_valid":true,"confidence_score":90,"data_quality":"good"}`,
	}}

	fs := &fakeStore{}
	sink := &collectingSink{}

	p := New(fs, llmService, pipelineConfig(), testLogger())
	result := p.Run(context.Background(), "แสดงจำนวนเหรียญทองของประเทศไทย", sink)

	assert.Equal(t, "olympic_medalists", result.Table)
	assert.Equal(t, "Count gold medals won by Thailand", result.Prompt)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.Error)
	assert.False(t, result.Chart.IsMock)

	require.Len(t, result.Chart.Data, 1)
	assert.Equal(t, "Thailand", result.Chart.Data[0].Label)
	assert.Equal(t, 9.0, result.Chart.Data[0].Value)

	// The executed SQL filters on real distinct values
	require.Len(t, fs.queries, 1)
	assert.Contains(t, fs.queries[0], "medal = 'gold'")

	// Progress events walk the stages in order and finish with done
	stages := sink.stages()
	assert.Equal(t, StageTableSelection, stages[0])
	assert.Contains(t, stages, StageRefinement)
	assert.Contains(t, stages, StageVerification)
	assert.Equal(t, EventDone, sink.events[len(sink.events)-1].Type)
}

func TestPipeline_FastPathSkipsAnalysisLLMCall(t *testing.T) {
	// "pie chart" resolves the chart type by keyword; only refine,
	// synthesize, and verify hit the LLM
	llmService := &scriptedLLM{responses: []string{
		`{"improved_prompt":"Medal share by country as a pie chart","was_improved":true}`,
		`{"sql_query":"SELECT country, COUNT(*) AS count FROM olympic_medalists GROUP BY country"}`,
		`{"is_valid":true,"confidence_score":85}`,
	}}

	p := New(&fakeStore{}, llmService, pipelineConfig(), testLogger())
	result := p.Run(context.Background(), "pie chart of medals by country", nil)

	assert.Equal(t, types.ChartPie, result.Chart.ChartType)
	assert.Empty(t, llmService.responses)
}

func TestPipeline_TerminalFailureReturnsMockChart(t *testing.T) {
	llmService := &scriptedLLM{responses: []string{
		`{"improved_prompt":"Medals by country","was_improved":true}`,
		`{"required_columns":["country"],"chart_type":"bar","data_aggregation":"count",
		"x_axis":"country","y_axis":"count"}`,
		`{"sql_query":"SELECT country FROM olympic_medalists"}`,
		`{"sql_query":"SELECT country FROM olympic_medalists"}`,
		`{"sql_query":"SELECT country FROM olympic_medalists"}`,
	}}

	fs := &fakeStore{executeErr: errors.New("connection reset")}
	sink := &collectingSink{}

	p := New(fs, llmService, pipelineConfig(), testLogger())
	result := p.Run(context.Background(), "medals by country", sink)

	// maxRetries=2 means exactly three execution attempts
	assert.Len(t, fs.queries, 3)
	assert.Contains(t, result.Error, "connection reset")

	// The caller still gets a renderable chart
	assert.True(t, result.Chart.IsMock)
	assert.NotEmpty(t, result.Chart.Data)

	var sawError bool
	for _, e := range sink.events {
		if e.Type == EventError {
			sawError = true
		}
	}

	assert.True(t, sawError)
	assert.Equal(t, EventDone, sink.events[len(sink.events)-1].Type)
}

func TestPipeline_RefinementDisabled(t *testing.T) {
	llmService := &scriptedLLM{responses: []string{
		`{"required_columns":["country"],"chart_type":"bar","data_aggregation":"count",
		"x_axis":"country","y_axis":"count"}`,
		`{"sql_query":"SELECT country, COUNT(*) AS count FROM olympic_medalists GROUP BY country"}`,
		`{"is_valid":true,"confidence_score":80}`,
	}}

	cfg := pipelineConfig()
	cfg.EnableRefinement = false

	p := New(&fakeStore{}, llmService, cfg, testLogger())
	result := p.Run(context.Background(), "medals by country", nil)

	assert.Equal(t, "medals by country", result.Prompt)
	assert.Empty(t, llmService.responses)
}

func TestPipeline_Schema(t *testing.T) {
	p := New(&fakeStore{}, &scriptedLLM{}, pipelineConfig(), testLogger())

	schemas, err := p.Schema(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "olympic_medalists", schemas[0].Table.Name)
	assert.Len(t, schemas[0].Columns, 2)
}
