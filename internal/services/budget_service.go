package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/storage"
)

// BudgetService holds the authoritative budget state and orchestrates
// mutations across SQLite and AMQP. Every mutation works on a deep copy
// and swaps it in, then persists the whole state; a failed save or
// publish is logged and the in-memory state stays authoritative.
type BudgetService struct {
	mu         sync.Mutex
	data       *core.BudgetData
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewBudgetService(ctx context.Context, repo *storage.SQLiteRepository, amqpClient *amqp.Client) (*BudgetService, error) {
	data, err := repo.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budget state: %w", err)
	}

	return &BudgetService{
		data:       data,
		storage:    repo,
		amqpClient: amqpClient,
		now:        time.Now,
	}, nil
}

// Snapshot returns a deep copy of the current state for read paths.
func (s *BudgetService) Snapshot() *core.BudgetData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// TransactionInput carries the user-entered fields of a new transaction.
type TransactionInput struct {
	Name        string
	Amount      core.Money
	CategoryID  string
	Type        core.TransactionType
	IsRecurring bool
}

// AddTransaction appends a transaction to the given month bucket.
func (s *BudgetService) AddTransaction(ctx context.Context, monthKey string, in TransactionInput) (core.Transaction, error) {
	if _, _, err := core.ParseMonthKey(monthKey); err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		ID:          newID("txn"),
		Name:        strings.TrimSpace(in.Name),
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		Type:        in.Type,
		Date:        s.now(),
		IsRecurring: in.IsRecurring,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	month := next.MonthlyData[monthKey]
	month.Transactions = append(month.Transactions, t)
	next.MonthlyData[monthKey] = month

	s.commit(ctx, next, "add_transaction")
	return t, nil
}

// DeleteTransaction removes a transaction from its month bucket.
func (s *BudgetService) DeleteTransaction(ctx context.Context, monthKey, id string) error {
	if _, _, err := core.ParseMonthKey(monthKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	month, ok := next.MonthlyData[monthKey]
	if !ok {
		return core.ErrNotFound
	}

	idx := -1
	for i, t := range month.Transactions {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.ErrNotFound
	}

	month.Transactions = append(month.Transactions[:idx], month.Transactions[idx+1:]...)
	next.MonthlyData[monthKey] = month

	s.commit(ctx, next, "delete_transaction")
	return nil
}

// AddCategory creates a budget category.
func (s *BudgetService) AddCategory(ctx context.Context, name string, monthlyBudget core.Money, color string) (core.Category, error) {
	c := core.Category{
		ID:            newID("cat"),
		Name:          strings.TrimSpace(name),
		MonthlyBudget: monthlyBudget,
		Color:         color,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	next.Categories = append(next.Categories, c)

	s.commit(ctx, next, "add_category")
	return c, nil
}

// UpdateCategory edits a category's name, budget, and color in place.
func (s *BudgetService) UpdateCategory(ctx context.Context, id, name string, monthlyBudget core.Money, color string) (core.Category, error) {
	updated := core.Category{
		ID:            id,
		Name:          strings.TrimSpace(name),
		MonthlyBudget: monthlyBudget,
		Color:         color,
	}
	if err := updated.Validate(); err != nil {
		return core.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := -1
	for i, c := range next.Categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Category{}, core.ErrNotFound
	}

	updated.IsArchived = next.Categories[idx].IsArchived
	next.Categories[idx] = updated

	s.commit(ctx, next, "update_category")
	return updated, nil
}

// ArchiveCategory soft-deletes a category. The category and its id stay
// in the state so historical transactions keep resolving.
func (s *BudgetService) ArchiveCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := -1
	for i, c := range next.Categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.ErrNotFound
	}

	next.Categories[idx].IsArchived = true

	s.commit(ctx, next, "archive_category")
	return nil
}

// AddSalaryEntry appends a salary step. Currency defaults to EUR.
func (s *BudgetService) AddSalaryEntry(ctx context.Context, amount core.Money, startDate core.Date) (core.SalaryEntry, error) {
	e := core.SalaryEntry{
		ID:        newID("sal"),
		Amount:    amount,
		StartDate: startDate,
		Currency:  "EUR",
	}
	if err := e.Validate(); err != nil {
		return core.SalaryEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	next.SalaryHistory = append(next.SalaryHistory, e)

	s.commit(ctx, next, "add_salary_entry")
	return e, nil
}

// UpdateSalaryEntry edits a salary step's amount and start date.
func (s *BudgetService) UpdateSalaryEntry(ctx context.Context, id string, amount core.Money, startDate core.Date) (core.SalaryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := -1
	for i, e := range next.SalaryHistory {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.SalaryEntry{}, core.ErrNotFound
	}

	updated := next.SalaryHistory[idx]
	updated.Amount = amount
	updated.StartDate = startDate
	if err := updated.Validate(); err != nil {
		return core.SalaryEntry{}, err
	}
	next.SalaryHistory[idx] = updated

	s.commit(ctx, next, "update_salary_entry")
	return updated, nil
}

// DeleteSalaryEntry removes a salary step. The last remaining entry can
// never be deleted, so salary lookups always have something to resolve.
func (s *BudgetService) DeleteSalaryEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := -1
	for i, e := range next.SalaryHistory {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.ErrNotFound
	}
	if len(next.SalaryHistory) == 1 {
		return core.ErrLastSalaryEntry
	}

	next.SalaryHistory = append(next.SalaryHistory[:idx], next.SalaryHistory[idx+1:]...)

	s.commit(ctx, next, "delete_salary_entry")
	return nil
}

// AddPot creates a savings pot starting at zero.
func (s *BudgetService) AddPot(ctx context.Context, name string, target core.Money, color string) (core.SavingsPot, error) {
	p := core.SavingsPot{
		ID:           newID("pot"),
		Name:         strings.TrimSpace(name),
		TargetAmount: target,
		Color:        color,
		CreatedDate:  s.now(),
	}
	if err := p.Validate(); err != nil {
		return core.SavingsPot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	next.SavingsPots = append(next.SavingsPots, p)

	s.commit(ctx, next, "add_pot")
	return p, nil
}

// UpdatePot edits a pot's name, target, and color. Lowering the target
// below the current amount clamps the current amount down to it.
func (s *BudgetService) UpdatePot(ctx context.Context, id, name string, target core.Money, color string) (core.SavingsPot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := potIndex(next.SavingsPots, id)
	if idx < 0 {
		return core.SavingsPot{}, core.ErrNotFound
	}

	updated := next.SavingsPots[idx]
	updated.Name = strings.TrimSpace(name)
	updated.TargetAmount = target
	updated.Color = color
	if err := updated.Validate(); err != nil {
		return core.SavingsPot{}, err
	}
	if updated.CurrentAmount.Cents > updated.TargetAmount.Cents {
		updated.CurrentAmount = updated.TargetAmount
	}
	next.SavingsPots[idx] = updated

	s.commit(ctx, next, "update_pot")
	return updated, nil
}

// DeletePot removes a pot. Its balance returns to the spendable pool.
func (s *BudgetService) DeletePot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := potIndex(next.SavingsPots, id)
	if idx < 0 {
		return core.ErrNotFound
	}

	next.SavingsPots = append(next.SavingsPots[:idx], next.SavingsPots[idx+1:]...)

	s.commit(ctx, next, "delete_pot")
	return nil
}

// FundPot moves money from the spendable balance into a pot. The
// contribution is clamped so the pot never exceeds its target.
func (s *BudgetService) FundPot(ctx context.Context, id string, amount core.Money) (core.SavingsPot, error) {
	if amount.Cents <= 0 {
		return core.SavingsPot{}, core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := potIndex(next.SavingsPots, id)
	if idx < 0 {
		return core.SavingsPot{}, core.ErrNotFound
	}

	spendable := core.ComputeBalances(next).SpendableBalance
	if amount.Cents > spendable.Cents {
		return core.SavingsPot{}, core.ErrInsufficientFunds
	}

	pot := next.SavingsPots[idx]
	pot.CurrentAmount = pot.CurrentAmount.Add(amount)
	if pot.CurrentAmount.Cents > pot.TargetAmount.Cents {
		pot.CurrentAmount = pot.TargetAmount
	}
	next.SavingsPots[idx] = pot

	s.commit(ctx, next, "fund_pot")
	return pot, nil
}

// WithdrawPot moves money from a pot back to the spendable balance.
func (s *BudgetService) WithdrawPot(ctx context.Context, id string, amount core.Money) (core.SavingsPot, error) {
	if amount.Cents <= 0 {
		return core.SavingsPot{}, core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	idx := potIndex(next.SavingsPots, id)
	if idx < 0 {
		return core.SavingsPot{}, core.ErrNotFound
	}

	pot := next.SavingsPots[idx]
	if amount.Cents > pot.CurrentAmount.Cents {
		return core.SavingsPot{}, core.ErrInsufficientPotBalance
	}

	pot.CurrentAmount = pot.CurrentAmount.Sub(amount)
	if pot.CurrentAmount.IsNegative() {
		pot.CurrentAmount = core.Money{}
	}
	next.SavingsPots[idx] = pot

	s.commit(ctx, next, "withdraw_pot")
	return pot, nil
}

// SetInitialBalance replaces the starting balance.
func (s *BudgetService) SetInitialBalance(ctx context.Context, amount core.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	next.InitialBalance = amount

	s.commit(ctx, next, "set_initial_balance")
}

// SetSavingsGoal replaces the yearly savings goal.
func (s *BudgetService) SetSavingsGoal(ctx context.Context, amount core.Money) error {
	if amount.Cents <= 0 {
		return core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	next.SavingsGoal = amount

	s.commit(ctx, next, "set_savings_goal")
	return nil
}

// ImportBackup replaces the whole state with a parsed backup document.
func (s *BudgetService) ImportBackup(ctx context.Context, raw []byte) error {
	parsed, err := export.ParseBackup(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commit(ctx, parsed, "import_backup")
	return nil
}

// ClearAll resets the state to defaults.
func (s *BudgetService) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commit(ctx, core.NewBudgetData(), "clear_all")
}

// Backups lists the rotated pre-save snapshots, most recent first.
func (s *BudgetService) Backups(ctx context.Context) ([]storage.Backup, error) {
	return s.storage.Backups(ctx)
}

// RestoreBackup replaces the state with the backup saved at the given
// time.
func (s *BudgetService) RestoreBackup(ctx context.Context, savedAt time.Time) error {
	backups, err := s.storage.Backups(ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	var match *storage.Backup
	for i := range backups {
		if backups[i].SavedAt.Equal(savedAt) {
			match = &backups[i]
			break
		}
	}
	if match == nil || match.Data == nil {
		return core.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := match.Data.Clone()
	restored.Normalize()

	s.commit(ctx, restored, "restore_backup")
	return nil
}

// LastSaveTime reports when the state was last persisted.
func (s *BudgetService) LastSaveTime(ctx context.Context) (time.Time, bool, error) {
	return s.storage.LastSaveTime(ctx)
}

// commit swaps in the new state, persists it, and publishes the
// state-saved event. Callers must hold s.mu.
func (s *BudgetService) commit(ctx context.Context, next *core.BudgetData, operation string) {
	s.data = next

	if err := s.storage.SaveState(ctx, next); err != nil {
		slog.ErrorContext(ctx, "Failed to persist budget state",
			"operation", operation, "error", err)
		return
	}

	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishStateSaved(ctx, operation); err != nil {
		slog.ErrorContext(ctx, "Failed to publish state saved message",
			"operation", operation, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *BudgetService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %v", errs)
	}

	return nil
}

func potIndex(pots []core.SavingsPot, id string) int {
	for i, p := range pots {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// newID returns a prefixed random identifier, e.g. "txn-9f2c4a1b0d3e5f67".
func newID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return prefix + "-" + hex.EncodeToString([]byte(time.Now().Format("150405.000000")))
	}
	return prefix + "-" + hex.EncodeToString(b)
}
