package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"budget/internal/core"
)

// maxImportBytes caps uploaded backup documents.
const maxImportBytes = 10 << 20

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses:
// validation errors are 422, conflicts 409, missing resources 404, and
// malformed imports 400.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrInsufficientPotBalance),
		errors.Is(err, core.ErrLastSalaryEntry):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidMonthKey):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// decodeBody decodes the JSON request body into v, rejecting unknown
// payload shapes early.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// parseAmount accepts the decimal string the client sends for amounts.
func parseAmount(s string) (core.Money, error) {
	return core.ParseMoney(s)
}

// readBody reads a size-capped raw request body.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
}
