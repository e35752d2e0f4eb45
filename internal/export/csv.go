package export

import (
	"fmt"
	"sort"
	"strings"

	"budget/internal/core"
)

// CSV export matches the original download format: every field is quoted,
// dates are en-US short form, amounts carry two decimals.

var monthHeader = []string{"Date", "Name", "Category", "Type", "Amount", "Recurring"}

// MonthCSV renders one month's transactions.
func MonthCSV(d *core.BudgetData, monthKey string) (string, error) {
	if _, _, err := core.ParseMonthKey(monthKey); err != nil {
		return "", err
	}

	var b strings.Builder
	writeRow(&b, monthHeader)

	for _, t := range d.MonthlyData[monthKey].Transactions {
		writeRow(&b, transactionRow(d, t))
	}

	return b.String(), nil
}

// YearlyCSV renders every transaction of the given year, sorted by date,
// with a trailing Month column naming the bucket.
func YearlyCSV(d *core.BudgetData, year int) (string, error) {
	type dated struct {
		t        core.Transaction
		monthKey string
	}

	var all []dated
	for key, month := range d.MonthlyData {
		y, _, err := core.ParseMonthKey(key)
		if err != nil || y != year {
			continue
		}
		for _, t := range month.Transactions {
			all = append(all, dated{t: t, monthKey: key})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].t.Date.Before(all[j].t.Date)
	})

	var b strings.Builder
	writeRow(&b, append(append([]string{}, monthHeader...), "Month"))

	for _, entry := range all {
		row := append(transactionRow(d, entry.t), core.MonthDisplay(entry.monthKey))
		writeRow(&b, row)
	}

	return b.String(), nil
}

func transactionRow(d *core.BudgetData, t core.Transaction) []string {
	return []string{
		t.Date.Format("1/2/2006"),
		t.Name,
		d.CategoryName(t.CategoryID),
		string(t.Type),
		t.Amount.Decimal(),
		fmt.Sprintf("%t", t.IsRecurring),
	}
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
