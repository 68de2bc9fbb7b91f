package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chartquery/chartquery/internal/config"
	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/store"
	"github.com/chartquery/chartquery/internal/types"
)

type MockLLMService struct {
	mock.Mock
}

func (m *MockLLMService) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMService) Configure(cfg llm.Config) error {
	args := m.Called(cfg)
	return args.Error(0)
}

func testLogger() *logging.Logger {
	logger, _ := logging.NewLogger(config.LoggingConfig{
		Level:  "error",
		Format: "text",
		Output: "stderr",
	})

	return logger
}

func goldRequest() Request {
	return Request{
		Query:    "gold medals by country",
		SQLQuery: "SELECT country, COUNT(*) FROM olympic_medalists GROUP BY country",
		Rows: []map[string]any{
			{"country": "Thailand", "count": "9"},
			{"country": "Japan", "count": "27"},
		},
		Analysis: types.ColumnAnalysis{
			RequiredColumns: []string{"country", "medal"},
			ChartType:       types.ChartBar,
			DataAggregation: types.AggCount,
			XAxis:           "country",
			YAxis:           "count",
		},
		Columns: []types.ColumnDescriptor{
			store.BuildDescriptor("country", "varchar(100)", "", false),
			store.BuildDescriptor("medal", "varchar(20)", "enum: gold, silver, bronze", false),
		},
	}
}

func TestVerify_ParsesLLMJudgement(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		`{"is_valid":true,"confidence_score":92,"reasoning":"counts match the question",
		"data_quality":"good"}`, nil)

	v := NewVerifier(mockLLM, 10, testLogger())
	result := v.Verify(context.Background(), goldRequest())

	assert.True(t, result.IsValid)
	assert.Equal(t, 92, result.ConfidenceScore)
	mockLLM.AssertExpectations(t)
}

func TestVerify_RejectionCarriesImprovedSQL(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		`{"is_valid":false,"confidence_score":40,"should_retry":true,
		"issues_found":["missing gold filter"],
		"improved_sql":"SELECT country, COUNT(*) FROM olympic_medalists WHERE medal = 'gold' GROUP BY country"}`, nil)

	v := NewVerifier(mockLLM, 10, testLogger())
	result := v.Verify(context.Background(), goldRequest())

	assert.False(t, result.IsValid)
	assert.True(t, result.ShouldRetry)
	assert.Contains(t, result.ImprovedSQL, "medal = 'gold'")
}

func TestVerify_ClampsConfidence(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		`{"is_valid":true,"confidence_score":250}`, nil)

	v := NewVerifier(mockLLM, 10, testLogger())
	result := v.Verify(context.Background(), goldRequest())

	assert.Equal(t, 100, result.ConfidenceScore)
}

func TestVerify_StructuralFallbackOnLLMError(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	v := NewVerifier(mockLLM, 10, testLogger())

	withRows := v.Verify(context.Background(), goldRequest())
	assert.True(t, withRows.IsValid)
	assert.Equal(t, fallbackConfidenceWithRows, withRows.ConfidenceScore)

	empty := goldRequest()
	empty.Rows = nil

	emptyResult := v.Verify(context.Background(), empty)
	assert.False(t, emptyResult.IsValid)
	assert.True(t, emptyResult.ShouldRetry)
	assert.Equal(t, fallbackConfidenceNoRows, emptyResult.ConfidenceScore)
}

func TestVerify_StructuralFallbackOnUnparsableResponse(t *testing.T) {
	mockLLM := &MockLLMService{}
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return("looks fine to me", nil)

	v := NewVerifier(mockLLM, 10, testLogger())
	result := v.Verify(context.Background(), goldRequest())

	assert.True(t, result.IsValid)
	assert.Equal(t, "unverified", result.DataQuality)
}

func TestVerify_PromptCarriesAnalysisAndSchema(t *testing.T) {
	mockLLM := &MockLLMService{}

	var captured string

	mockLLM.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return(`{"is_valid":true,"confidence_score":80}`, nil)

	v := NewVerifier(mockLLM, 10, testLogger())
	v.Verify(context.Background(), goldRequest())

	assert.Contains(t, captured, "Intended chart: bar")
	assert.Contains(t, captured, "country, medal")
	assert.Contains(t, captured, "enum: gold, silver, bronze")
}

func TestVerify_PromptBoundsPreview(t *testing.T) {
	mockLLM := &MockLLMService{}

	var captured string

	mockLLM.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return(`{"is_valid":true,"confidence_score":80}`, nil)

	req := goldRequest()
	req.Rows = make([]map[string]any, 25)

	for i := range req.Rows {
		req.Rows[i] = map[string]any{"country": "Thailand"}
	}

	// The bound comes from configuration, not a constant
	v := NewVerifier(mockLLM, 5, testLogger())
	v.Verify(context.Background(), req)

	assert.Contains(t, captured, "25 rows total")
	assert.Contains(t, captured, "and 20 more rows")
}

func TestNewVerifier_DefaultsPreviewRows(t *testing.T) {
	v := NewVerifier(&MockLLMService{}, 0, testLogger())
	assert.Equal(t, defaultPreviewRows, v.previewRows)
}
