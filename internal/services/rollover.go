package services

import (
	"context"
	"log/slog"

	"budget/internal/core"
)

// Navigation directions for NavigateMonth.
const (
	DirectionPrev = "prev"
	DirectionNext = "next"
)

// NavigateMonth resolves the month adjacent to the given one and returns
// its key. When the target bucket already exists this is a pure read.
// Otherwise the bucket is materialized exactly once: recurring
// transactions of the source month are cloned with fresh ids and
// timestamps, and the start balance carries the source month's leftover
// when moving forward.
func (s *BudgetService) NavigateMonth(ctx context.Context, fromKey, direction string) (string, error) {
	if _, _, err := core.ParseMonthKey(fromKey); err != nil {
		return "", err
	}

	var targetKey string
	var err error
	switch direction {
	case DirectionPrev:
		targetKey, err = core.PrevMonthKey(fromKey)
	case DirectionNext:
		targetKey, err = core.NextMonthKey(fromKey)
	default:
		return "", core.ErrInvalidMonthKey
	}
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.MonthlyData[targetKey]; ok {
		return targetKey, nil
	}

	next := s.data.Clone()
	source := next.MonthlyData[fromKey]

	startBalance := source.MonthStartBalance
	if direction == DirectionNext {
		leftover := core.MonthIncome(next, fromKey).Sub(core.MonthExpenses(next, fromKey))
		startBalance = startBalance.Add(leftover)
	}

	bucket := core.MonthData{
		Transactions:      s.cloneRecurring(source.Transactions),
		MonthStartBalance: startBalance,
	}
	next.MonthlyData[targetKey] = bucket

	slog.InfoContext(ctx, "Materialized month bucket",
		"from", fromKey,
		"to", targetKey,
		"recurring", len(bucket.Transactions),
		"start_balance_cents", startBalance.Cents)

	s.commit(ctx, next, "navigate_month")
	return targetKey, nil
}

// cloneRecurring copies the recurring transactions with new identities.
// The recurring flag survives so they keep propagating month to month.
func (s *BudgetService) cloneRecurring(transactions []core.Transaction) []core.Transaction {
	var cloned []core.Transaction
	for _, t := range transactions {
		if !t.IsRecurring {
			continue
		}
		clone := t
		clone.ID = newID("txn")
		clone.Date = s.now()
		cloned = append(cloned, clone)
	}
	return cloned
}
