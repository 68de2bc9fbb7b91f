package types

// ColumnAnalysis is the single decision point for chart shape in a request.
// It is produced exactly once, by either the keyword fast path or the LLM
// slow path.
type ColumnAnalysis struct {
	RequiredColumns   []string    `json:"required_columns"`
	ChartType         ChartType   `json:"chart_type"`
	AlternativeCharts []ChartType `json:"alternative_charts"`
	Analysis          string      `json:"analysis"`
	ChartReasoning    string      `json:"chart_reasoning"`
	DataAggregation   Aggregation `json:"data_aggregation"`
	XAxis             string      `json:"x_axis"`
	YAxis             string      `json:"y_axis"`
	SuggestedFilters  []string    `json:"suggested_filters"`
	ColumnReasoning   string      `json:"column_reasoning"`
}

// SQLSynthesisResult is one synthesis attempt. Later attempts in the same
// retry loop supersede earlier ones.
type SQLSynthesisResult struct {
	SQLQuery           string   `json:"sql_query"`
	Explanation        string   `json:"explanation"`
	QueryReasoning     string   `json:"query_reasoning"`
	ColumnsUsed        []string `json:"columns_used"`
	FiltersApplied     []string `json:"filters_applied"`
	ChartSuitability   string   `json:"chart_suitability"`
	SampleDataInsights string   `json:"sample_data_insights"`
}

// VerificationResult is the LLM's (or the structural fallback's) judgment of
// one executed attempt.
type VerificationResult struct {
	IsValid         bool     `json:"is_valid"`
	ConfidenceScore int      `json:"confidence_score"`
	IssuesFound     []string `json:"issues_found"`
	Suggestions     []string `json:"suggestions"`
	ShouldRetry     bool     `json:"should_retry"`
	ImprovedSQL     string   `json:"improved_sql"`
	Reasoning       string   `json:"reasoning"`
	DataQuality     string   `json:"data_quality"`
}

// RefinementResult is the prompt refiner's output. WasImproved is false when
// the refiner degraded to passing the original question through.
type RefinementResult struct {
	ImprovedPrompt     string   `json:"improved_prompt"`
	ImprovementsMade   []string `json:"improvements_made"`
	SuggestedChartType string   `json:"suggested_chart_type"`
	KeyInsights        []string `json:"key_insights"`
	DataFocus          string   `json:"data_focus"`
	FilterSuggestions  []string `json:"filter_suggestions"`
	Reasoning          string   `json:"reasoning"`
	WasImproved        bool     `json:"was_improved"`
}

// RetryOutcome is the terminal artifact of the retry controller. It is owned
// exclusively by the request that produced it.
type RetryOutcome struct {
	Success      bool               `json:"success"`
	QueryResults []map[string]any   `json:"query_results"`
	SQLData      SQLSynthesisResult `json:"sql_data"`
	Verification VerificationResult `json:"verification"`
	Attempt      int                `json:"attempt"`
	MaxRetries   int                `json:"max_retries"`
	Error        string             `json:"error,omitempty"`
}
