package export

import (
	"encoding/json"
	"fmt"

	"budget/internal/core"
)

// backupDocument is the interchange shape shared by export and import.
type backupDocument struct {
	MonthlyData    map[string]core.MonthData `json:"monthlyData"`
	Categories     []core.Category           `json:"categories"`
	SalaryHistory  []core.SalaryEntry        `json:"salaryHistory,omitempty"`
	SavingsGoal    *core.Money               `json:"savingsGoal,omitempty"`
	InitialBalance *core.Money               `json:"initialBalance,omitempty"`
	SavingsPots    []core.SavingsPot         `json:"savingsPots,omitempty"`
}

// JSONBackup renders the full state as a pretty-printed backup document.
func JSONBackup(d *core.BudgetData) ([]byte, error) {
	doc := backupDocument{
		MonthlyData:    d.MonthlyData,
		Categories:     d.Categories,
		SalaryHistory:  d.SalaryHistory,
		SavingsGoal:    &d.SavingsGoal,
		InitialBalance: &d.InitialBalance,
		SavingsPots:    d.SavingsPots,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	return out, nil
}

// ParseBackup validates and decodes a backup document. Validation is
// shallow: monthlyData and categories must be present; everything else
// falls back to defaults.
func ParseBackup(raw []byte) (*core.BudgetData, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, core.ErrInvalidBackup
	}
	if _, ok := keys["monthlyData"]; !ok {
		return nil, core.ErrInvalidBackup
	}
	if _, ok := keys["categories"]; !ok {
		return nil, core.ErrInvalidBackup
	}

	var doc backupDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, core.ErrInvalidBackup
	}

	d := &core.BudgetData{
		MonthlyData:   doc.MonthlyData,
		Categories:    doc.Categories,
		SalaryHistory: doc.SalaryHistory,
		SavingsPots:   doc.SavingsPots,
	}
	if doc.SavingsGoal != nil {
		d.SavingsGoal = *doc.SavingsGoal
	}
	if doc.InitialBalance != nil {
		d.InitialBalance = *doc.InitialBalance
	}

	d.Normalize()
	return d, nil
}
