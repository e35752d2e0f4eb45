package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T, keep int) (*SnapshotWorker, *storage.SQLiteRepository, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	snapshotDir := filepath.Join(dir, "snapshots")
	w := NewSnapshotWorker(repo, nil, snapshotDir, keep, log.New(log.DefaultConfig()))
	return w, repo, snapshotDir
}

func savedState(t *testing.T, repo *storage.SQLiteRepository) {
	t.Helper()

	data := core.NewBudgetData()
	data.InitialBalance = core.Money{Cents: 100_000}
	require.NoError(t, repo.SaveState(context.Background(), data))
}

func TestHandleStateSavedWritesSnapshot(t *testing.T) {
	w, repo, snapshotDir := newTestWorker(t, 5)
	savedState(t, repo)

	err := w.HandleStateSaved(context.Background(), amqp.NewStateSavedMessage("add_transaction"))
	require.NoError(t, err)

	names, err := w.snapshotNames()
	require.NoError(t, err)
	require.Len(t, names, 1)

	raw, err := os.ReadFile(filepath.Join(snapshotDir, names[0]))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"initialBalance"`)
}

func TestPruneKeepsNewest(t *testing.T) {
	w, repo, _ := newTestWorker(t, 2)
	savedState(t, repo)

	// Distinct timestamps so each snapshot gets its own file name.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		stamp := base.Add(time.Duration(i) * time.Second)
		w.now = func() time.Time { return stamp }
		require.NoError(t, w.HandleStateSaved(context.Background(), amqp.NewStateSavedMessage("test")))
	}

	names, err := w.snapshotNames()
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "budget-20240301-120002.json", names[0])
	assert.Equal(t, "budget-20240301-120003.json", names[1])
}

func TestStartupSnapshotCatchesUp(t *testing.T) {
	w, repo, _ := newTestWorker(t, 5)

	// Nothing saved yet: no snapshot taken.
	require.NoError(t, w.StartupSnapshot(context.Background()))
	names, err := w.snapshotNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	// After a save the startup check takes a snapshot.
	savedState(t, repo)
	require.NoError(t, w.StartupSnapshot(context.Background()))
	names, err = w.snapshotNames()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}
