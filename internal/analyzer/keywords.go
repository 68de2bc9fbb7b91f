package analyzer

import (
	"strings"

	"github.com/chartquery/chartquery/internal/types"
)

// chartKeywords maps each chart type to its trigger phrases (English and
// Thai). Declaration order is the tie-break: the first type with any
// substring match wins, not the best match. Generic single-word triggers sit
// at the bottom so specific phrases are checked first.
var chartKeywords = []struct {
	Type    types.ChartType
	Phrases []string
}{
	{types.ChartPie, []string{"pie chart", "pie", "สัดส่วน", "พาย", "แผนภูมิวงกลม", "วงกลม"}},
	{types.ChartDonut, []string{"donut", "doughnut", "โดนัท"}},
	{types.ChartScatter, []string{"scatter", "correlation", "การกระจาย", "ความสัมพันธ์"}},
	{types.ChartHistogram, []string{"histogram", "distribution", "ฮิสโตแกรม", "การแจกแจง"}},
	{types.ChartArea, []string{"area chart", "stacked area", "กราฟพื้นที่"}},
	{types.ChartLine, []string{"line chart", "over time", "trend", "กราฟเส้น", "แนวโน้ม", "เส้น"}},
	{types.ChartColumn, []string{"column chart", "แท่งแนวตั้ง", "คอลัมน์"}},
	{types.ChartBar, []string{"bar chart", "bar graph", "กราฟแท่ง", "แท่ง", "bar"}},
}

// DetectChartKeyword scans the query for an explicit chart-type phrase. When
// a type is detected the analyzer skips the LLM entirely (the fast path).
func DetectChartKeyword(query string) (types.ChartType, bool) {
	queryLower := strings.ToLower(query)

	for _, entry := range chartKeywords {
		for _, phrase := range entry.Phrases {
			if strings.Contains(queryLower, phrase) {
				return entry.Type, true
			}
		}
	}

	return "", false
}
