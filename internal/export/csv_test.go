package export

import (
	"strings"
	"testing"
	"time"

	"budget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportTestData() *core.BudgetData {
	d := core.NewBudgetData()
	d.Categories = []core.Category{
		{ID: "cat-1", Name: "Groceries"},
	}
	d.MonthlyData["2024-03"] = core.MonthData{Transactions: []core.Transaction{
		{
			ID:         "txn-1",
			Name:       "Weekly shop",
			Amount:     core.Money{Cents: 4550},
			CategoryID: "cat-1",
			Type:       core.Expense,
			Date:       time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "txn-2",
			Name:        "Rent",
			Amount:      core.Money{Cents: 80000},
			CategoryID:  "gone",
			Type:        core.Expense,
			Date:        time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
			IsRecurring: true,
		},
	}}
	d.MonthlyData["2024-07"] = core.MonthData{Transactions: []core.Transaction{
		{
			ID:     "txn-3",
			Name:   "Salary",
			Amount: core.Money{Cents: 300000},
			Type:   core.Income,
			Date:   time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		},
	}}
	return d
}

func TestMonthCSV(t *testing.T) {
	out, err := MonthCSV(exportTestData(), "2024-03")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, `"Date","Name","Category","Type","Amount","Recurring"`, lines[0])
	assert.Equal(t, `"3/5/2024","Weekly shop","Groceries","expense","45.50","false"`, lines[1])
	// Dangling category id falls back to Uncategorized.
	assert.Equal(t, `"3/1/2024","Rent","Uncategorized","expense","800.00","true"`, lines[2])
}

func TestMonthCSVInvalidKey(t *testing.T) {
	_, err := MonthCSV(exportTestData(), "march-2024")
	assert.Error(t, err)
}

func TestMonthCSVEmptyMonth(t *testing.T) {
	out, err := MonthCSV(exportTestData(), "2024-12")
	require.NoError(t, err)
	assert.Equal(t, `"Date","Name","Category","Type","Amount","Recurring"`+"\n", out)
}

func TestYearlyCSV(t *testing.T) {
	out, err := YearlyCSV(exportTestData(), 2024)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, `"Date","Name","Category","Type","Amount","Recurring","Month"`, lines[0])
	// Sorted by transaction date across buckets.
	assert.Contains(t, lines[1], `"3/1/2024"`)
	assert.Contains(t, lines[2], `"3/5/2024"`)
	assert.Contains(t, lines[3], `"7/1/2024"`)
	assert.Contains(t, lines[1], `"March 2024"`)
	assert.Contains(t, lines[3], `"July 2024"`)
}

func TestYearlyCSVOtherYear(t *testing.T) {
	out, err := YearlyCSV(exportTestData(), 2023)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 1)
}

func TestCSVQuoting(t *testing.T) {
	d := core.NewBudgetData()
	d.MonthlyData["2024-01"] = core.MonthData{Transactions: []core.Transaction{
		{
			ID:     "txn-1",
			Name:   `Dinner "out", with friends`,
			Amount: core.Money{Cents: 1000},
			Type:   core.Expense,
			Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}}

	out, err := MonthCSV(d, "2024-01")
	require.NoError(t, err)
	assert.Contains(t, out, `"Dinner ""out"", with friends"`)
}
