package chartdata

import "github.com/chartquery/chartquery/internal/types"

// Payload is the chart-ready response body.
type Payload struct {
	ChartType types.ChartType `json:"chart_type"`
	Title     string          `json:"title"`
	XLabel    string          `json:"x_label"`
	YLabel    string          `json:"y_label"`
	Data      []Point         `json:"data"`
	SQLQuery  string          `json:"sql_query,omitempty"`
	IsMock    bool            `json:"is_mock,omitempty"`
}

// Format assembles the final payload from mapped points.
func Format(chartType types.ChartType, analysis types.ColumnAnalysis, sqlQuery string, points []Point) Payload {
	if !chartType.IsValid() {
		chartType = types.ChartBar
	}

	return Payload{
		ChartType: chartType,
		Title:     analysis.Analysis,
		XLabel:    analysis.XAxis,
		YLabel:    analysis.YAxis,
		Data:      points,
		SQLQuery:  sqlQuery,
	}
}

// MockPayload is the terminal-failure response. The request never fails
// outright: when every attempt is exhausted the caller still receives a
// well-formed chart, marked as mock data.
func MockPayload(chartType types.ChartType) Payload {
	if !chartType.IsValid() {
		chartType = types.ChartBar
	}

	return Payload{
		ChartType: chartType,
		Title:     "Sample data",
		XLabel:    "category",
		YLabel:    "value",
		IsMock:    true,
		Data: []Point{
			{Label: "A", Value: 30},
			{Label: "B", Value: 25},
			{Label: "C", Value: 20},
			{Label: "D", Value: 15},
			{Label: "E", Value: 10},
		},
	}
}
