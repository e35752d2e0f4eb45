package core

import "sort"

// ActiveSalary resolves the salary in force for a month: the entry with the
// latest StartDate on or before the month's first day. When every entry
// starts after the target month, the oldest entry's amount applies
// retroactively. An empty history resolves to zero.
//
// Entries sharing a StartDate keep insertion order (stable sort); the entry
// added first wins.
func ActiveSalary(history []SalaryEntry, monthKey string) Money {
	if len(history) == 0 {
		return Money{}
	}

	target, err := FirstDayOf(monthKey)
	if err != nil {
		return Money{}
	}

	sorted := append([]SalaryEntry(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.After(sorted[j].StartDate.Time)
	})

	for _, entry := range sorted {
		if !entry.StartDate.After(target) {
			return entry.Amount
		}
	}

	// All entries start after the target month: apply the earliest known
	// salary retroactively rather than reporting an unknown ceiling.
	return sorted[len(sorted)-1].Amount
}
