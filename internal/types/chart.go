package types

// ChartType identifies the visualization shape a query result is rendered as.
// It determines both the SQL template used during synthesis and the final
// payload formatting.
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartColumn    ChartType = "column"
	ChartLine      ChartType = "line"
	ChartPie       ChartType = "pie"
	ChartDonut     ChartType = "donut"
	ChartArea      ChartType = "area"
	ChartScatter   ChartType = "scatter"
	ChartHistogram ChartType = "histogram"
)

// AllChartTypes lists every supported chart type in declaration order.
var AllChartTypes = []ChartType{
	ChartBar, ChartColumn, ChartLine, ChartPie,
	ChartDonut, ChartArea, ChartScatter, ChartHistogram,
}

// IsValid reports whether ct is one of the supported chart types.
func (ct ChartType) IsValid() bool {
	for _, t := range AllChartTypes {
		if ct == t {
			return true
		}
	}

	return false
}

// Aggregation identifies how rows are reduced for charting.
type Aggregation string

const (
	AggCount   Aggregation = "count"
	AggSum     Aggregation = "sum"
	AggAverage Aggregation = "average"
	AggMin     Aggregation = "min"
	AggMax     Aggregation = "max"
	AggNone    Aggregation = "none"
)
