package http

import (
	"net/http"
	"strconv"
	"time"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/services"
)

// dashboardResponse bundles every derived figure for one month.
type dashboardResponse struct {
	Month        string               `json:"month"`
	MonthDisplay string               `json:"monthDisplay"`
	Stats        core.MonthStats      `json:"stats"`
	Balances     core.Balances        `json:"balances"`
	Ceiling      core.CeilingOverview `json:"ceiling"`
	Transactions []core.Transaction   `json:"transactions"`
	Categories   []core.Category      `json:"categories"`
	SavingsPots  []core.SavingsPot    `json:"savingsPots"`
	SavingsGoal  core.Money           `json:"savingsGoal"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	monthKey := r.PathValue("month")
	if _, _, err := core.ParseMonthKey(monthKey); err != nil {
		writeDomainError(w, err)
		return
	}

	d := s.budget.Snapshot()
	transactions := d.MonthlyData[monthKey].Transactions
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Month:        monthKey,
		MonthDisplay: core.MonthDisplay(monthKey),
		Stats:        core.ComputeMonthStats(d, monthKey, time.Now()),
		Balances:     core.ComputeBalances(d),
		Ceiling:      core.ComputeCeiling(d, monthKey),
		Transactions: transactions,
		Categories:   d.Categories,
		SavingsPots:  d.SavingsPots,
		SavingsGoal:  d.SavingsGoal,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budget.Snapshot())
}

type transactionRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	CategoryID  string `json:"categoryId"`
	Type        string `json:"type"`
	IsRecurring bool   `json:"isRecurring"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	txn, err := s.budget.AddTransaction(r.Context(), r.PathValue("month"), services.TransactionInput{
		Name:        req.Name,
		Amount:      amount,
		CategoryID:  req.CategoryID,
		Type:        core.TransactionType(req.Type),
		IsRecurring: req.IsRecurring,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := s.budget.DeleteTransaction(r.Context(), r.PathValue("month"), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type navigateRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleNavigateMonth(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targetKey, err := s.budget.NavigateMonth(r.Context(), r.PathValue("month"), req.Direction)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"month":        targetKey,
		"monthDisplay": core.MonthDisplay(targetKey),
	})
}

type categoryRequest struct {
	Name          string `json:"name"`
	MonthlyBudget string `json:"monthlyBudget"`
	Color         string `json:"color"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budget.Snapshot().Categories)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := parseAmount(req.MonthlyBudget)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	cat, err := s.budget.AddCategory(r.Context(), req.Name, budget, req.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := parseAmount(req.MonthlyBudget)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	cat, err := s.budget.UpdateCategory(r.Context(), r.PathValue("id"), req.Name, budget, req.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleArchiveCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.ArchiveCategory(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type salaryRequest struct {
	Amount    string    `json:"amount"`
	StartDate core.Date `json:"startDate"`
}

func (s *Server) handleListSalary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budget.Snapshot().SalaryHistory)
}

func (s *Server) handleAddSalaryEntry(w http.ResponseWriter, r *http.Request) {
	var req salaryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	entry, err := s.budget.AddSalaryEntry(r.Context(), amount, req.StartDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateSalaryEntry(w http.ResponseWriter, r *http.Request) {
	var req salaryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	entry, err := s.budget.UpdateSalaryEntry(r.Context(), r.PathValue("id"), amount, req.StartDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteSalaryEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteSalaryEntry(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type potRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"targetAmount"`
	Color        string `json:"color"`
}

type potAmountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleListPots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budget.Snapshot().SavingsPots)
}

func (s *Server) handleAddPot(w http.ResponseWriter, r *http.Request) {
	var req potRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	pot, err := s.budget.AddPot(r.Context(), req.Name, target, req.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pot)
}

func (s *Server) handleUpdatePot(w http.ResponseWriter, r *http.Request) {
	var req potRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	pot, err := s.budget.UpdatePot(r.Context(), r.PathValue("id"), req.Name, target, req.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pot)
}

func (s *Server) handleDeletePot(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeletePot(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFundPot(w http.ResponseWriter, r *http.Request) {
	var req potAmountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	pot, err := s.budget.FundPot(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pot)
}

func (s *Server) handleWithdrawPot(w http.ResponseWriter, r *http.Request) {
	var req potAmountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, core.ErrInvalidAmount)
		return
	}

	pot, err := s.budget.WithdrawPot(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pot)
}

type settingRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleSetInitialBalance(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.budget.SetInitialBalance(r.Context(), req.Amount)
	writeJSON(w, http.StatusOK, map[string]core.Money{"initialBalance": req.Amount})
}

func (s *Server) handleSetSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.budget.SetSavingsGoal(r.Context(), req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Money{"savingsGoal": req.Amount})
}

type backupSummary struct {
	SavedAt time.Time `json:"savedAt"`
	Months  int       `json:"months"`
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.budget.Backups(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list backups", "error", err)
		writeJSON(w, http.StatusOK, []backupSummary{})
		return
	}

	summaries := make([]backupSummary, 0, len(backups))
	for _, b := range backups {
		months := 0
		if b.Data != nil {
			months = len(b.Data.MonthlyData)
		}
		summaries = append(summaries, backupSummary{SavedAt: b.SavedAt, Months: months})
	}
	writeJSON(w, http.StatusOK, summaries)
}

type restoreRequest struct {
	SavedAt time.Time `json:"savedAt"`
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.budget.RestoreBackup(r.Context(), req.SavedAt); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	out, err := export.JSONBackup(s.budget.Snapshot())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to render JSON backup", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="budget-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	d := s.budget.Snapshot()

	var out, filename string
	var err error
	switch {
	case r.URL.Query().Get("month") != "":
		monthKey := r.URL.Query().Get("month")
		out, err = export.MonthCSV(d, monthKey)
		filename = "budget-" + monthKey + ".csv"
	case r.URL.Query().Get("year") != "":
		var year int
		year, err = strconv.Atoi(r.URL.Query().Get("year"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		out, err = export.YearlyCSV(d, year)
		filename = "budget-" + strconv.Itoa(year) + ".csv"
	default:
		writeError(w, http.StatusBadRequest, "month or year query parameter required")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.budget.ImportBackup(r.Context(), raw); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.budget.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
