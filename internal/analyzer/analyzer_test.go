package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chartquery/chartquery/internal/store"
	"github.com/chartquery/chartquery/internal/types"
)

func medalColumns() []types.ColumnDescriptor {
	return []types.ColumnDescriptor{
		store.BuildDescriptor("country", "varchar(100)", "", false),
		store.BuildDescriptor("medal", "varchar(20)", "enum: gold, silver, bronze", false),
		store.BuildDescriptor("total", "int", "", false),
	}
}

func TestDetectChartKeyword(t *testing.T) {
	tests := []struct {
		query    string
		expected types.ChartType
		ok       bool
	}{
		{query: "show me a pie chart of medals", expected: types.ChartPie, ok: true},
		{query: "แสดงสัดส่วนเหรียญรางวัล", expected: types.ChartPie, ok: true},
		{query: "medal trend over time", expected: types.ChartLine, ok: true},
		{query: "กราฟแท่งของประเทศ", expected: types.ChartBar, ok: true},
		{query: "histogram of totals", expected: types.ChartHistogram, ok: true},
		{query: "scatter of age vs medals", expected: types.ChartScatter, ok: true},
		{query: "donut of medal share", expected: types.ChartDonut, ok: true},
		{query: "how many gold medals does Thailand have", ok: false},
		{query: "แสดงจำนวนเหรียญทองของประเทศไทย", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			chartType, ok := DetectChartKeyword(tt.query)
			assert.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.Equal(t, tt.expected, chartType)
			}
		})
	}
}

func TestAnalyzer_FastPathSkipsLLM(t *testing.T) {
	mockLLM := &MockLLMService{}
	a := NewAnalyzer(mockLLM, testLogger())

	analysis := a.Analyze(context.Background(), "pie chart of medals by country", medalColumns())

	assert.Equal(t, types.ChartPie, analysis.ChartType)
	assert.Equal(t, types.AggCount, analysis.DataAggregation)
	assert.Equal(t, "count", analysis.YAxis)
	assert.LessOrEqual(t, len(analysis.RequiredColumns), 2)
	assert.Subset(t, []string{"country", "medal"}, analysis.RequiredColumns)

	// The fast path must not invoke the LLM at all
	mockLLM.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnalyzer_FastPathThai(t *testing.T) {
	mockLLM := &MockLLMService{}
	a := NewAnalyzer(mockLLM, testLogger())

	analysis := a.Analyze(context.Background(), "ขอดูสัดส่วนเหรียญของแต่ละประเทศ", medalColumns())

	assert.Equal(t, types.ChartPie, analysis.ChartType)
	mockLLM.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnalyzer_SlowPathParsesLLMResponse(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		`Here is my analysis: {"required_columns":["country","total"],"chart_type":"column",
		"data_aggregation":"sum","x_axis":"country","y_axis":"total",
		"analysis":"compare totals per country"}`, nil)

	a := NewAnalyzer(mockLLM, testLogger())
	analysis := a.Analyze(context.Background(), "which country won the most", medalColumns())

	assert.Equal(t, types.ChartColumn, analysis.ChartType)
	assert.Equal(t, []string{"country", "total"}, analysis.RequiredColumns)
	assert.Equal(t, types.AggSum, analysis.DataAggregation)
	mockLLM.AssertExpectations(t)
}

func TestAnalyzer_SlowPathDropsUnknownColumns(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		`{"required_columns":["country","population"],"chart_type":"bar"}`, nil)

	a := NewAnalyzer(mockLLM, testLogger())
	analysis := a.Analyze(context.Background(), "medals by country and population", medalColumns())

	// "population" is not in the schema and must not reach SQL synthesis
	assert.Equal(t, []string{"country"}, analysis.RequiredColumns)
}

func TestAnalyzer_SlowPathInvalidChartType(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		`{"required_columns":["country"],"chart_type":"treemap"}`, nil)

	a := NewAnalyzer(mockLLM, testLogger())
	analysis := a.Analyze(context.Background(), "medals by country", medalColumns())

	assert.Equal(t, types.ChartBar, analysis.ChartType)
}

func TestAnalyzer_SlowPathFallbackOnLLMError(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	a := NewAnalyzer(mockLLM, testLogger())
	analysis := a.Analyze(context.Background(), "medals by country", medalColumns())

	assert.Equal(t, types.ChartBar, analysis.ChartType)
	assert.Equal(t, []string{"country", "medal"}, analysis.RequiredColumns)
	assert.Equal(t, types.AggCount, analysis.DataAggregation)
}

func TestAnalyzer_SlowPathFallbackOnUnparsableResponse(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return("I am not sure how to help.", nil)

	a := NewAnalyzer(mockLLM, testLogger())
	analysis := a.Analyze(context.Background(), "medals by country", medalColumns())

	assert.Equal(t, types.ChartBar, analysis.ChartType)
	assert.NotEmpty(t, analysis.RequiredColumns)
}

func TestDefaultAnalysis_NoGroupableColumns(t *testing.T) {
	cols := []types.ColumnDescriptor{
		store.BuildDescriptor("total", "int", "", false),
	}

	analysis := DefaultAnalysis(cols)

	require.Equal(t, []string{"category", "value"}, analysis.RequiredColumns)
	assert.Equal(t, types.ChartBar, analysis.ChartType)
}
