package core

import "time"

// Aggregation engine. Every figure here is a pure function of the full
// BudgetData value, recomputed on each query; there is no incremental or
// cached aggregation anywhere. Per-month transaction counts are small
// enough that full recomputation stays cheap.

// Balances bundles the all-time figures derived from the complete
// transaction history, independent of month partitioning and of the
// per-month start-balance snapshots.
type Balances struct {
	TotalIncome      Money `json:"totalIncome"`
	TotalExpenses    Money `json:"totalExpenses"`
	TotalInPots      Money `json:"totalInPots"`
	NetWorth         Money `json:"netWorth"`
	SpendableBalance Money `json:"spendableBalance"`
}

// ComputeBalances walks every month bucket: net worth is the initial balance
// plus all income minus all expenses; the spendable balance additionally
// subtracts money locked in savings pots.
func ComputeBalances(d *BudgetData) Balances {
	var income, expenses Money
	for _, month := range d.MonthlyData {
		for _, t := range month.Transactions {
			switch t.Type {
			case Income:
				income = income.Add(t.Amount)
			case Expense:
				expenses = expenses.Add(t.Amount)
			}
		}
	}

	var inPots Money
	for _, pot := range d.SavingsPots {
		inPots = inPots.Add(pot.CurrentAmount)
	}

	netWorth := d.InitialBalance.Add(income).Sub(expenses)
	return Balances{
		TotalIncome:      income,
		TotalExpenses:    expenses,
		TotalInPots:      inPots,
		NetWorth:         netWorth,
		SpendableBalance: netWorth.Sub(inPots),
	}
}

// MonthIncome sums income transactions in one month bucket.
func MonthIncome(d *BudgetData, monthKey string) Money {
	return monthTotal(d, monthKey, Income)
}

// MonthExpenses sums expense transactions in one month bucket.
func MonthExpenses(d *BudgetData, monthKey string) Money {
	return monthTotal(d, monthKey, Expense)
}

func monthTotal(d *BudgetData, monthKey string, typ TransactionType) Money {
	var total Money
	for _, t := range d.MonthlyData[monthKey].Transactions {
		if t.Type == typ {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// MonthlySavings is income minus expenses for one month. Negative when the
// month ran a deficit.
func MonthlySavings(d *BudgetData, monthKey string) Money {
	return MonthIncome(d, monthKey).Sub(MonthExpenses(d, monthKey))
}

// SavingsRate is monthly savings as a percentage of monthly income, 0 when
// the month had no income.
func SavingsRate(income, savings Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	return savings.Euros() / income.Euros() * 100
}

// BudgetUtilization is monthly expenses as a percentage of the total
// monthly budget, 0 when no budget is allocated.
func BudgetUtilization(expenses, totalBudget Money) float64 {
	if totalBudget.Cents <= 0 {
		return 0
	}
	return expenses.Euros() / totalBudget.Euros() * 100
}

// TimeProgress is the elapsed share of the viewed month in percent. Only the
// calendar-current month uses the real day of month; any other month counts
// as fully elapsed.
func TimeProgress(monthKey string, now time.Time) float64 {
	days, err := DaysInMonth(monthKey)
	if err != nil || days == 0 {
		return 100
	}
	day := days
	if monthKey == MonthKeyOf(now) {
		day = now.Day()
	}
	return float64(day) / float64(days) * 100
}

// HealthScore starts at 100 and applies independent, additive deductions:
// 30 for a negative spendable balance, 20 for a savings rate under 10%,
// 25 for a spending pace more than 20 points ahead of time progress, and
// 25 for budget utilization past 100%. Floor is 0.
func HealthScore(spendable Money, savingsRate, spendingPace, utilization float64) int {
	score := 100
	if spendable.IsNegative() {
		score -= 30
	}
	if savingsRate < 10 {
		score -= 20
	}
	if spendingPace > 20 {
		score -= 25
	}
	if utilization > 100 {
		score -= 25
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ExpenseTrend is the percent change of expenses versus the previous month,
// 0 when the previous month had no expenses.
func ExpenseTrend(current, previous Money) float64 {
	if previous.Cents <= 0 {
		return 0
	}
	return (current.Euros() - previous.Euros()) / previous.Euros() * 100
}

// UncategorizedCount reports transactions in a month whose category id no
// longer resolves (the category list never shrinks short of import, so this
// is mostly a post-import signal). An empty CategoryID means the transaction
// was entered without a category and is not counted as dangling.
func UncategorizedCount(d *BudgetData, monthKey string) int {
	known := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		known[c.ID] = struct{}{}
	}
	count := 0
	for _, t := range d.MonthlyData[monthKey].Transactions {
		if t.CategoryID == "" {
			continue
		}
		if _, ok := known[t.CategoryID]; !ok {
			count++
		}
	}
	return count
}

// MonthStats bundles everything the dashboard shows for one month.
type MonthStats struct {
	MonthKey          string  `json:"monthKey"`
	Income            Money   `json:"income"`
	Expenses          Money   `json:"expenses"`
	Savings           Money   `json:"savings"`
	SavingsRate       float64 `json:"savingsRate"`
	TotalBudget       Money   `json:"totalBudget"`
	BudgetUtilization float64 `json:"budgetUtilization"`
	TimeProgress      float64 `json:"timeProgress"`
	SpendingPace      float64 `json:"spendingPace"`
	HealthScore       int     `json:"healthScore"`
	ExpenseTrend      float64 `json:"expenseTrend"`
	Uncategorized     int     `json:"uncategorized"`
}

// ComputeMonthStats derives the full per-month dashboard figures.
func ComputeMonthStats(d *BudgetData, monthKey string, now time.Time) MonthStats {
	income := MonthIncome(d, monthKey)
	expenses := MonthExpenses(d, monthKey)
	savings := income.Sub(expenses)
	totalBudget := TotalAllocated(d.Categories)

	utilization := BudgetUtilization(expenses, totalBudget)
	progress := TimeProgress(monthKey, now)
	pace := utilization - progress
	rate := SavingsRate(income, savings)

	var prevExpenses Money
	if prevKey, err := PrevMonthKey(monthKey); err == nil {
		prevExpenses = MonthExpenses(d, prevKey)
	}

	spendable := ComputeBalances(d).SpendableBalance

	return MonthStats{
		MonthKey:          monthKey,
		Income:            income,
		Expenses:          expenses,
		Savings:           savings,
		SavingsRate:       rate,
		TotalBudget:       totalBudget,
		BudgetUtilization: utilization,
		TimeProgress:      progress,
		SpendingPace:      pace,
		HealthScore:       HealthScore(spendable, rate, pace, utilization),
		ExpenseTrend:      ExpenseTrend(expenses, prevExpenses),
		Uncategorized:     UncategorizedCount(d, monthKey),
	}
}

// CeilingOverview bundles the salary-ceiling queries for one month.
type CeilingOverview struct {
	MonthKey       string `json:"monthKey"`
	Salary         Money  `json:"salary"`
	TotalAllocated Money  `json:"totalAllocated"`
	Leftover       Money  `json:"leftover"`
	OverBudgeted   bool   `json:"overBudgeted"`
}

// ComputeCeiling resolves the active salary and the allocation state for it.
func ComputeCeiling(d *BudgetData, monthKey string) CeilingOverview {
	salary := ActiveSalary(d.SalaryHistory, monthKey)
	leftover := LeftoverBudget(salary, d.Categories)
	return CeilingOverview{
		MonthKey:       monthKey,
		Salary:         salary,
		TotalAllocated: TotalAllocated(d.Categories),
		Leftover:       leftover,
		OverBudgeted:   leftover.IsNegative(),
	}
}
