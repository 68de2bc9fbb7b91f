package analyzer

import (
	"strings"

	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/types"
)

// Scoring weights for table selection.
const (
	keywordMatchScore  = 10
	exactNameScore     = 50
	nameFragmentScore  = 20
	minFragmentLength  = 3
)

// keywordCategories maps a domain category to the trigger keywords (English
// and Thai) that suggest it. A keyword scores a table when the keyword
// appears in the query and the table's name or comment contains either the
// category or the keyword itself.
var keywordCategories = map[string][]string{
	"medal":   {"medal", "gold", "silver", "bronze", "เหรียญ", "ทอง", "เงิน", "ทองแดง"},
	"olympic": {"olympic", "olympics", "games", "โอลิมปิก"},
	"sales":   {"sale", "sales", "sell", "order", "revenue", "product", "ขาย", "ยอดขาย", "สินค้า"},
	"country": {"country", "nation", "ประเทศ"},
	"athlete": {"athlete", "sport", "player", "นักกีฬา", "กีฬา"},
	"event":   {"event", "competition", "รายการ", "การแข่งขัน"},
}

// TableSelector scores candidate tables against the user query. Selection is
// pure scoring over a snapshot of the table list.
type TableSelector struct {
	defaultTable string
	logger       *logging.Logger
}

// NewTableSelector creates a selector that degrades to defaultTable when no
// candidates are available.
func NewTableSelector(defaultTable string, logger *logging.Logger) *TableSelector {
	return &TableSelector{defaultTable: defaultTable, logger: logger}
}

// Select picks the highest-scoring table for the query. Ties break by list
// order (first wins). An empty candidate list yields the default descriptor;
// callers that cannot reach the store pass an empty list to get the same
// degrade-to-known-good behavior.
func (ts *TableSelector) Select(query string, tables []types.TableDescriptor) types.TableDescriptor {
	if len(tables) == 0 {
		ts.logger.Warnf("no candidate tables, using default table %q", ts.defaultTable)

		return types.TableDescriptor{Name: ts.defaultTable}
	}

	best := tables[0]
	bestScore := ScoreTable(query, tables[0])

	for _, table := range tables[1:] {
		if score := ScoreTable(query, table); score > bestScore {
			best = table
			bestScore = score
		}
	}

	ts.logger.WithFields(map[string]interface{}{
		"table": best.Name,
		"score": bestScore,
	}).Debug("table selected")

	return best
}

// ScoreTable computes the relevance score of one table for the query.
func ScoreTable(query string, table types.TableDescriptor) int {
	queryLower := strings.ToLower(query)
	tableText := strings.ToLower(table.Name + " " + table.Comment)

	score := 0

	for category, keywords := range keywordCategories {
		for _, keyword := range keywords {
			if !strings.Contains(queryLower, keyword) {
				continue
			}

			if strings.Contains(tableText, category) || strings.Contains(tableText, keyword) {
				score += keywordMatchScore
			}
		}
	}

	nameLower := strings.ToLower(table.Name)
	if strings.Contains(queryLower, nameLower) {
		score += exactNameScore
	}

	for _, fragment := range strings.Split(nameLower, "_") {
		if len(fragment) >= minFragmentLength && strings.Contains(queryLower, fragment) {
			score += nameFragmentScore
			break
		}
	}

	return score
}
