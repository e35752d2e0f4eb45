package core

import (
	"testing"
	"time"
)

func testData() *BudgetData {
	d := NewBudgetData()
	d.InitialBalance = Money{Cents: 100_000}
	d.Categories = []Category{
		{ID: "c1", Name: "Groceries", MonthlyBudget: Money{Cents: 200_000}},
	}
	d.SavingsPots = []SavingsPot{
		{ID: "p1", Name: "Vacation", TargetAmount: Money{Cents: 100_000}, CurrentAmount: Money{Cents: 40_000}},
	}
	d.MonthlyData["2024-03"] = MonthData{Transactions: []Transaction{
		{ID: "t1", Name: "Salary", Amount: Money{Cents: 200_000}, Type: Income, CategoryID: "c1"},
		{ID: "t2", Name: "Food", Amount: Money{Cents: 250_000}, Type: Expense, CategoryID: "c1"},
	}}
	d.MonthlyData["2024-02"] = MonthData{Transactions: []Transaction{
		{ID: "t3", Name: "Food", Amount: Money{Cents: 100_000}, Type: Expense, CategoryID: "c1"},
	}}
	return d
}

func TestComputeBalances(t *testing.T) {
	b := ComputeBalances(testData())

	if b.TotalIncome.Cents != 200_000 {
		t.Fatalf("income = %d", b.TotalIncome.Cents)
	}
	if b.TotalExpenses.Cents != 350_000 {
		t.Fatalf("expenses = %d", b.TotalExpenses.Cents)
	}
	// netWorth = initial + income - expenses, independent of partitioning
	if b.NetWorth.Cents != 100_000+200_000-350_000 {
		t.Fatalf("net worth = %d", b.NetWorth.Cents)
	}
	if b.TotalInPots.Cents != 40_000 {
		t.Fatalf("in pots = %d", b.TotalInPots.Cents)
	}
	if b.SpendableBalance.Cents != b.NetWorth.Cents-40_000 {
		t.Fatalf("spendable = %d", b.SpendableBalance.Cents)
	}
}

func TestMonthlySavingsAndRate(t *testing.T) {
	d := testData()

	savings := MonthlySavings(d, "2024-03")
	if savings.Cents != -50_000 {
		t.Fatalf("savings = %d, want -50000", savings.Cents)
	}
	// income 2000, expenses 2500 -> rate -25%
	rate := SavingsRate(MonthIncome(d, "2024-03"), savings)
	if rate != -25 {
		t.Fatalf("rate = %v, want -25", rate)
	}
	if SavingsRate(Money{}, Money{Cents: -100}) != 0 {
		t.Fatalf("rate with no income must be 0")
	}
}

func TestBudgetUtilization(t *testing.T) {
	if got := BudgetUtilization(Money{Cents: 250_000}, Money{Cents: 200_000}); got != 125 {
		t.Fatalf("utilization = %v, want 125", got)
	}
	if got := BudgetUtilization(Money{Cents: 100}, Money{}); got != 0 {
		t.Fatalf("utilization with zero budget = %v, want 0", got)
	}
}

func TestTimeProgress(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	// Viewed month is the current month: real day of month counts.
	got := TimeProgress("2024-03", now)
	want := float64(15) / 31 * 100
	if got != want {
		t.Fatalf("current month progress = %v, want %v", got, want)
	}

	// Any other month counts as fully elapsed.
	if got := TimeProgress("2024-01", now); got != 100 {
		t.Fatalf("closed month progress = %v, want 100", got)
	}
	if got := TimeProgress("2024-06", now); got != 100 {
		t.Fatalf("future month progress = %v, want 100", got)
	}
}

func TestHealthScore(t *testing.T) {
	cases := []struct {
		name        string
		spendable   Money
		rate        float64
		pace        float64
		utilization float64
		want        int
	}{
		{"all healthy", Money{Cents: 100}, 20, 0, 50, 100},
		{"negative spendable", Money{Cents: -1}, 20, 0, 50, 70},
		{"low savings rate", Money{Cents: 100}, 5, 0, 50, 80},
		{"fast pace", Money{Cents: 100}, 20, 25, 50, 75},
		{"over budget", Money{Cents: 100}, 20, 0, 110, 75},
		{"deductions stack to floor", Money{Cents: -1}, 0, 30, 120, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HealthScore(tc.spendable, tc.rate, tc.pace, tc.utilization)
			if got != tc.want {
				t.Fatalf("score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestExpenseTrend(t *testing.T) {
	if got := ExpenseTrend(Money{Cents: 150_000}, Money{Cents: 100_000}); got != 50 {
		t.Fatalf("trend = %v, want 50", got)
	}
	if got := ExpenseTrend(Money{Cents: 150_000}, Money{}); got != 0 {
		t.Fatalf("trend with empty previous month = %v, want 0", got)
	}
}

func TestComputeMonthStats(t *testing.T) {
	d := testData()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	stats := ComputeMonthStats(d, "2024-03", now)
	if stats.Income.Cents != 200_000 || stats.Expenses.Cents != 250_000 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.SavingsRate != -25 {
		t.Fatalf("savings rate = %v", stats.SavingsRate)
	}
	if stats.BudgetUtilization != 125 {
		t.Fatalf("utilization = %v", stats.BudgetUtilization)
	}
	if stats.TimeProgress != 100 {
		t.Fatalf("time progress = %v", stats.TimeProgress)
	}
	// trend vs 2024-02: (2500-1000)/1000 = 150%
	if stats.ExpenseTrend != 150 {
		t.Fatalf("trend = %v", stats.ExpenseTrend)
	}
	// -30 spendable, -20 rate, -25 utilization, -25 pace (125-100 = 25)
	if stats.HealthScore != 0 {
		t.Fatalf("health = %d", stats.HealthScore)
	}
}

func TestComputeCeiling(t *testing.T) {
	d := testData()
	d.SalaryHistory = []SalaryEntry{
		{ID: "s1", Amount: Money{Cents: 120_000}, StartDate: NewDate(2024, 1, 1)},
	}
	d.Categories = []Category{
		{ID: "c1", MonthlyBudget: Money{Cents: 100_000}},
		{ID: "c2", MonthlyBudget: Money{Cents: 50_000}, IsArchived: true},
	}

	ov := ComputeCeiling(d, "2024-03")
	if ov.Salary.Cents != 120_000 || ov.TotalAllocated.Cents != 100_000 {
		t.Fatalf("unexpected overview: %+v", ov)
	}
	if ov.Leftover.Cents != 20_000 || ov.OverBudgeted {
		t.Fatalf("unexpected leftover: %+v", ov)
	}
}

func TestCategoryNameFallback(t *testing.T) {
	d := testData()
	if got := d.CategoryName("c1"); got != "Groceries" {
		t.Fatalf("got %q", got)
	}
	if got := d.CategoryName("gone"); got != "Uncategorized" {
		t.Fatalf("got %q", got)
	}
}

func TestUncategorizedCount(t *testing.T) {
	d := testData()
	d.MonthlyData["2024-04"] = MonthData{Transactions: []Transaction{
		{ID: "u1", Name: "Cash", Amount: Money{Cents: 1_000}, Type: Expense},
		{ID: "u2", Name: "Food", Amount: Money{Cents: 2_000}, Type: Expense, CategoryID: "c1"},
		{ID: "u3", Name: "Import", Amount: Money{Cents: 3_000}, Type: Expense, CategoryID: "gone"},
	}}

	// Only the dangling reference counts; no category at all is fine.
	if got := UncategorizedCount(d, "2024-04"); got != 1 {
		t.Fatalf("uncategorized = %d, want 1", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := testData()
	c := d.Clone()
	c.MonthlyData["2024-03"].Transactions[0].Name = "changed"
	c.Categories[0].Name = "changed"

	if d.MonthlyData["2024-03"].Transactions[0].Name == "changed" {
		t.Fatalf("clone shares transaction backing array")
	}
	if d.Categories[0].Name == "changed" {
		t.Fatalf("clone shares category backing array")
	}
}
