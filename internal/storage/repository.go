package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

// Document keys. The whole budget state is persisted as a single JSON
// document so every save replaces it wholesale.
const (
	keyBudgetData = "budgetDataV2"
	keyBackups    = "budgetBackups"
	keyLastSave   = "lastSaveTime"

	// MaxBackups is how many pre-save snapshots are rotated.
	MaxBackups = 3
)

// Backup is one rotated snapshot of the state as it was before a save.
type Backup struct {
	SavedAt time.Time        `json:"savedAt"`
	Data    *core.BudgetData `json:"data"`
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveState persists the full state. The previous state is rotated into
// the backup list before being overwritten, all in one transaction.
func (r *SQLiteRepository) SaveState(ctx context.Context, d *core.BudgetData) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	previous, err := getDocument(ctx, tx, keyBudgetData)
	if err != nil {
		return fmt.Errorf("read previous state: %w", err)
	}
	if previous != "" {
		if err := rotateBackups(ctx, tx, previous, now); err != nil {
			return fmt.Errorf("rotate backups: %w", err)
		}
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := putDocument(ctx, tx, keyBudgetData, string(payload), now); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := putDocument(ctx, tx, keyLastSave, now.Format(time.RFC3339Nano), now); err != nil {
		return fmt.Errorf("write last save time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.InfoContext(ctx, "Budget state saved",
		"months", len(d.MonthlyData),
		"categories", len(d.Categories),
		"pots", len(d.SavingsPots))

	return nil
}

// LoadState reads the persisted state. A missing or unreadable document
// yields a fresh default state rather than an error, so a corrupt database
// never locks the user out.
func (r *SQLiteRepository) LoadState(ctx context.Context) (*core.BudgetData, error) {
	raw, err := getDocument(ctx, r.db, keyBudgetData)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if raw == "" {
		slog.InfoContext(ctx, "No saved state found, starting fresh")
		return core.NewBudgetData(), nil
	}

	var d core.BudgetData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		slog.WarnContext(ctx, "Saved state is unreadable, starting fresh", "error", err)
		return core.NewBudgetData(), nil
	}

	d.Normalize()
	return &d, nil
}

// Backups returns the rotated snapshots, most recent first.
func (r *SQLiteRepository) Backups(ctx context.Context) ([]Backup, error) {
	raw, err := getDocument(ctx, r.db, keyBackups)
	if err != nil {
		return nil, fmt.Errorf("read backups: %w", err)
	}
	if raw == "" {
		return []Backup{}, nil
	}

	var backups []Backup
	if err := json.Unmarshal([]byte(raw), &backups); err != nil {
		slog.WarnContext(ctx, "Backup list is unreadable", "error", err)
		return []Backup{}, nil
	}

	return backups, nil
}

// LastSaveTime reports when the state was last persisted. The second
// return value is false when nothing has been saved yet.
func (r *SQLiteRepository) LastSaveTime(ctx context.Context) (time.Time, bool, error) {
	raw, err := getDocument(ctx, r.db, keyLastSave)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read last save time: %w", err)
	}
	if raw == "" {
		return time.Time{}, false, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last save time: %w", err)
	}

	return t, true, nil
}

func rotateBackups(ctx context.Context, tx *sql.Tx, previous string, now time.Time) error {
	var backups []Backup
	if raw, err := getDocument(ctx, tx, keyBackups); err != nil {
		return err
	} else if raw != "" {
		// A broken backup list is dropped, not fatal
		if err := json.Unmarshal([]byte(raw), &backups); err != nil {
			slog.WarnContext(ctx, "Discarding unreadable backup list", "error", err)
			backups = nil
		}
	}

	var data core.BudgetData
	if err := json.Unmarshal([]byte(previous), &data); err != nil {
		slog.WarnContext(ctx, "Previous state unreadable, skipping backup rotation", "error", err)
		return nil
	}
	data.Normalize()

	backups = append([]Backup{{SavedAt: now, Data: &data}}, backups...)
	if len(backups) > MaxBackups {
		backups = backups[:MaxBackups]
	}

	payload, err := json.Marshal(backups)
	if err != nil {
		return fmt.Errorf("encode backups: %w", err)
	}

	return putDocument(ctx, tx, keyBackups, string(payload), now)
}

// querier covers both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getDocument(ctx context.Context, q querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func putDocument(ctx context.Context, q querier, key, value string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}
