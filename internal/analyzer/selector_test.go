package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chartquery/chartquery/internal/types"
)

func TestTableSelector_ThaiSalesQuery(t *testing.T) {
	tables := []types.TableDescriptor{
		{Name: "olympic_medalists"},
		{Name: "sales_orders"},
	}

	olympicScore := ScoreTable("ขายสินค้าปีนี้", tables[0])
	salesScore := ScoreTable("ขายสินค้าปีนี้", tables[1])

	// "ขาย" belongs to the sales category, which the sales_orders name contains
	assert.GreaterOrEqual(t, salesScore, olympicScore)
	assert.Positive(t, salesScore)

	selector := NewTableSelector("olympic_medalists", testLogger())
	selected := selector.Select("ขายสินค้าปีนี้", tables)
	assert.Equal(t, "sales_orders", selected.Name)
}

func TestTableSelector_ExactTableName(t *testing.T) {
	table := types.TableDescriptor{Name: "olympic_medalists"}

	withName := ScoreTable("show me olympic_medalists by country", table)
	withoutName := ScoreTable("show me something by country", table)

	assert.GreaterOrEqual(t, withName-withoutName, exactNameScore)
}

func TestTableSelector_NameFragment(t *testing.T) {
	table := types.TableDescriptor{Name: "olympic_medalists"}

	// "olympic" is an underscore-delimited fragment of the table name
	score := ScoreTable("which olympic games had the most athletes", table)
	assert.GreaterOrEqual(t, score, nameFragmentScore)
}

func TestTableSelector_MedalKeywords(t *testing.T) {
	olympic := types.TableDescriptor{Name: "olympic_medalists", Comment: "medal results"}
	sales := types.TableDescriptor{Name: "sales_orders"}

	query := "แสดงจำนวนเหรียญทองของประเทศไทย"

	assert.Greater(t, ScoreTable(query, olympic), ScoreTable(query, sales))
}

func TestTableSelector_EmptyList(t *testing.T) {
	selector := NewTableSelector("olympic_medalists", testLogger())

	selected := selector.Select("anything at all", nil)
	assert.Equal(t, "olympic_medalists", selected.Name)
}

func TestTableSelector_TieBreaksByListOrder(t *testing.T) {
	tables := []types.TableDescriptor{
		{Name: "alpha"},
		{Name: "beta"},
	}

	selector := NewTableSelector("default", testLogger())

	// Neither table matches anything in the query; both score zero
	selected := selector.Select("completely unrelated question", tables)
	assert.Equal(t, "alpha", selected.Name)
}
