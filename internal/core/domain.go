package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultSavingsGoal is applied when no goal has been configured or imported.
var DefaultSavingsGoal = Money{Cents: 500_000}

type (
	TransactionType string

	// Date carries a calendar date serialized as "2006-01-02".
	Date struct {
		time.Time
	}

	// Transaction is a single income or expense entry. It is immutable once
	// created; the only supported change is deletion from its month bucket.
	Transaction struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Amount      Money           `json:"amount"`
		CategoryID  string          `json:"categoryId"`
		Type        TransactionType `json:"type"`
		Date        time.Time       `json:"date"`
		IsRecurring bool            `json:"isRecurring"`
	}

	// Category holds a monthly budget ceiling slice. Categories are archived,
	// never removed, so historical transactions keep a resolvable reference.
	Category struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		MonthlyBudget Money  `json:"monthlyBudget"`
		Color         string `json:"color"`
		IsArchived    bool   `json:"isArchived"`
	}

	// SalaryEntry is one step in the salary history. The entry with the
	// latest StartDate on or before a month's first day is active for it.
	SalaryEntry struct {
		ID        string `json:"id"`
		Amount    Money  `json:"amount"`
		StartDate Date   `json:"startDate"`
		Currency  string `json:"currency"`
	}

	// SavingsPot is a named savings goal. CurrentAmount always stays within
	// [0, TargetAmount]; funding and withdrawal clamp instead of failing.
	SavingsPot struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		Color         string    `json:"color"`
		CreatedDate   time.Time `json:"createdDate"`
	}

	// MonthData is one month bucket. MonthStartBalance is snapshotted once
	// when the bucket is materialized and never recomputed afterward; it is
	// informational for the rollover view and not an input to net worth.
	MonthData struct {
		Transactions      []Transaction `json:"transactions"`
		MonthStartBalance Money         `json:"monthStartBalance"`
	}

	// BudgetData is the aggregate root. It is persisted wholesale on every
	// mutation; all derived figures are pure functions of this value.
	BudgetData struct {
		MonthlyData    map[string]MonthData `json:"monthlyData"`
		Categories     []Category           `json:"categories"`
		SalaryHistory  []SalaryEntry        `json:"salaryHistory"`
		SavingsPots    []SavingsPot         `json:"savingsPots"`
		InitialBalance Money                `json:"initialBalance"`
		SavingsGoal    Money                `json:"savingsGoal"`
	}
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyName              = errors.New("empty name")
	ErrInvalidMonthKey        = errors.New("invalid month key")
	ErrInvalidType            = errors.New("invalid transaction type")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientFunds      = errors.New("insufficient spendable balance")
	ErrInsufficientPotBalance = errors.New("insufficient pot balance")
	ErrLastSalaryEntry        = errors.New("cannot delete the last salary entry")
	ErrInvalidBackup          = errors.New("invalid backup file format")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	// Tolerate full timestamps written by older exports.
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return errors.New("invalid date: " + s)
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.MonthlyBudget.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e SalaryEntry) Validate() error {
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if e.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	return nil
}

func (p SavingsPot) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.TargetAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Complete reports whether the pot reached its target.
func (p SavingsPot) Complete() bool {
	return p.CurrentAmount.Cents >= p.TargetAmount.Cents
}

// NewBudgetData returns an empty aggregate with default goal and balance.
func NewBudgetData() *BudgetData {
	return &BudgetData{
		MonthlyData:   make(map[string]MonthData),
		Categories:    []Category{},
		SalaryHistory: []SalaryEntry{},
		SavingsPots:   []SavingsPot{},
		SavingsGoal:   DefaultSavingsGoal,
	}
}

// Normalize coerces nil collections to empty ones so loaded or imported
// documents are safe to use without nil checks.
func (d *BudgetData) Normalize() {
	if d.MonthlyData == nil {
		d.MonthlyData = make(map[string]MonthData)
	}
	if d.Categories == nil {
		d.Categories = []Category{}
	}
	if d.SalaryHistory == nil {
		d.SalaryHistory = []SalaryEntry{}
	}
	if d.SavingsPots == nil {
		d.SavingsPots = []SavingsPot{}
	}
	if d.SavingsGoal.Cents == 0 {
		d.SavingsGoal = DefaultSavingsGoal
	}
}

// Clone returns a deep copy. Mutations operate on a clone and swap it in,
// so readers never observe a partially applied change.
func (d *BudgetData) Clone() *BudgetData {
	c := &BudgetData{
		MonthlyData:    make(map[string]MonthData, len(d.MonthlyData)),
		Categories:     append([]Category(nil), d.Categories...),
		SalaryHistory:  append([]SalaryEntry(nil), d.SalaryHistory...),
		SavingsPots:    append([]SavingsPot(nil), d.SavingsPots...),
		InitialBalance: d.InitialBalance,
		SavingsGoal:    d.SavingsGoal,
	}
	for key, month := range d.MonthlyData {
		c.MonthlyData[key] = MonthData{
			Transactions:      append([]Transaction(nil), month.Transactions...),
			MonthStartBalance: month.MonthStartBalance,
		}
	}
	c.Normalize()
	return c
}

// CategoryName resolves a category id, falling back to "Uncategorized" for
// dangling references.
func (d *BudgetData) CategoryName(id string) string {
	for _, c := range d.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return "Uncategorized"
}
