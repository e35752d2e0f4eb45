// Package worker implements the backup worker that mirrors saved budget
// state to JSON snapshot files on disk and, optionally, to Google Sheets.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/storage"
)

const snapshotPrefix = "budget-"

// SnapshotWorker reacts to state-saved notifications by reading the
// current state from SQLite and writing a timestamped JSON snapshot.
// Old snapshots are pruned so at most keep files remain.
type SnapshotWorker struct {
	storage *storage.SQLiteRepository
	sheets  *export.SheetsExporter
	dir     string
	keep    int
	logger  *log.Logger
	now     func() time.Time
}

func NewSnapshotWorker(repo *storage.SQLiteRepository, sheets *export.SheetsExporter, dir string, keep int, logger *log.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		storage: repo,
		sheets:  sheets,
		dir:     dir,
		keep:    keep,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleStateSaved writes a snapshot of the current state. Sheets push
// failures are logged but do not fail the message, so a flaky Sheets API
// cannot wedge the queue.
func (w *SnapshotWorker) HandleStateSaved(ctx context.Context, msg *amqp.StateSavedMessage) error {
	w.logger.InfoContext(ctx, "Processing state-saved notification",
		"operation", msg.Operation, "saved_at", msg.SavedAt)

	data, err := w.storage.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	path, err := w.writeSnapshot(data)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Snapshot written", "path", path)

	if err := w.prune(); err != nil {
		w.logger.WarnContext(ctx, "Failed to prune snapshots", "error", err)
	}

	if w.sheets != nil {
		monthKey := core.MonthKeyOf(w.now())
		if err := w.sheets.PushMonth(ctx, data, monthKey); err != nil {
			w.logger.ErrorContext(ctx, "Failed to push month to Google Sheets",
				"error", err, "month", monthKey)
		}
	}

	return nil
}

// StartupSnapshot takes a snapshot immediately if the state has been
// saved since the newest snapshot on disk. It covers notifications missed
// while the worker was down.
func (w *SnapshotWorker) StartupSnapshot(ctx context.Context) error {
	savedAt, ok, err := w.storage.LastSaveTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last save time: %w", err)
	}
	if !ok {
		w.logger.InfoContext(ctx, "No saved state yet, skipping startup snapshot")
		return nil
	}

	newest, err := w.newestSnapshotTime()
	if err != nil {
		return err
	}
	if !newest.Before(savedAt) {
		w.logger.InfoContext(ctx, "Snapshots up to date", "last_save", savedAt)
		return nil
	}

	w.logger.InfoContext(ctx, "State saved while worker was down, snapshotting",
		"last_save", savedAt, "newest_snapshot", newest)
	return w.HandleStateSaved(ctx, amqp.NewStateSavedMessage("startup_catchup"))
}

// PeriodicPrune prunes the snapshot directory on the given interval until
// the context is cancelled.
func (w *SnapshotWorker) PeriodicPrune(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.prune(); err != nil {
				w.logger.WarnContext(ctx, "Failed to prune snapshots", "error", err)
			}
		}
	}
}

func (w *SnapshotWorker) writeSnapshot(data *core.BudgetData) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	raw, err := export.JSONBackup(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := snapshotPrefix + w.now().UTC().Format("20060102-150405") + ".json"
	path := filepath.Join(w.dir, name)

	// Write to a temp file and rename so readers never see a torn snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return path, nil
}

// prune deletes the oldest snapshots beyond the keep limit. Timestamped
// names sort chronologically, so a lexicographic sort is enough.
func (w *SnapshotWorker) prune() error {
	names, err := w.snapshotNames()
	if err != nil {
		return err
	}
	if len(names) <= w.keep {
		return nil
	}

	for _, name := range names[:len(names)-w.keep] {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			return fmt.Errorf("failed to remove old snapshot %s: %w", name, err)
		}
		w.logger.Info("Pruned old snapshot", "name", name)
	}
	return nil
}

func (w *SnapshotWorker) snapshotNames() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (w *SnapshotWorker) newestSnapshotTime() (time.Time, error) {
	names, err := w.snapshotNames()
	if err != nil {
		return time.Time{}, err
	}
	if len(names) == 0 {
		return time.Time{}, nil
	}

	newest := names[len(names)-1]
	stamp := strings.TrimSuffix(strings.TrimPrefix(newest, snapshotPrefix), ".json")
	t, err := time.Parse("20060102-150405", stamp)
	if err != nil {
		// Unparseable name, treat as no snapshot.
		return time.Time{}, nil
	}
	return t, nil
}
