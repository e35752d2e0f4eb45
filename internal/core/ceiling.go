package core

// Budget ceiling queries. The active salary acts as a ceiling on the sum of
// category budgets; allocating past it is allowed but flagged. All three
// queries ignore archived categories and recompute on every call.

// TotalAllocated sums the monthly budgets of all non-archived categories.
func TotalAllocated(categories []Category) Money {
	var total Money
	for _, c := range categories {
		if c.IsArchived {
			continue
		}
		total = total.Add(c.MonthlyBudget)
	}
	return total
}

// LeftoverBudget is the salary minus the total allocated budget. It may be
// negative; callers display the absolute value with an "over by" label.
func LeftoverBudget(salary Money, categories []Category) Money {
	return salary.Sub(TotalAllocated(categories))
}

// IsOverBudgeted reports whether allocations exceed the salary ceiling.
func IsOverBudgeted(salary Money, categories []Category) bool {
	return LeftoverBudget(salary, categories).IsNegative()
}
