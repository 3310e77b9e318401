package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/profitfirst/internal/service"
)

func seededCheckpointStorage(t *testing.T) (*SQLiteStorage, *CheckpointManager) {
	t.Helper()
	store, cleanup := createTestStorage(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	require.NoError(t, store.InsertAccounts(ctx, testAccounts(testOwner)))
	require.NoError(t, store.InsertTransactions(ctx, []service.TransactionRecord{
		testTransaction("tx-1", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "1000"),
	}))

	manager, err := store.NewCheckpointManager()
	require.NoError(t, err)
	return store, manager
}

func TestCheckpointManager_Create(t *testing.T) {
	_, manager := seededCheckpointStorage(t)
	ctx := context.Background()

	info, err := manager.Create(ctx, "before-import", "Before spreadsheet import")
	require.NoError(t, err)

	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, 3, info.Accounts)
	assert.Equal(t, 1, info.Transactions)
	assert.Zero(t, info.Distributions)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Positive(t, info.FileSize)
	assert.False(t, info.IsAuto)

	_, err = manager.Create(ctx, "before-import", "again")
	assert.ErrorIs(t, err, ErrCheckpointExists)

	for _, bad := range []string{"../escape", "a/b", `a\b`, "it's"} {
		_, err = manager.Create(ctx, bad, "")
		assert.ErrorIs(t, err, ErrInvalidCheckpointID, bad)
	}

	got, err := manager.GetCheckpointInfo(ctx, "before-import")
	require.NoError(t, err)
	assert.Equal(t, "Before spreadsheet import", got.Description)

	_, err = manager.GetCheckpointInfo(ctx, "missing")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_ListAndDelete(t *testing.T) {
	store, manager := seededCheckpointStorage(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, "first", "")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = manager.Create(ctx, "second", "")
	require.NoError(t, err)

	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoints, 2)
	assert.Equal(t, "second", checkpoints[0].ID)

	require.NoError(t, manager.Delete(ctx, "first"))
	_, err = os.Stat(filepath.Join(filepath.Dir(store.Path()), "checkpoints", "first.db"))
	assert.True(t, os.IsNotExist(err))

	checkpoints, err = manager.List(ctx)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1)

	assert.ErrorIs(t, manager.Delete(ctx, "first"), ErrCheckpointNotFound)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, manager := seededCheckpointStorage(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, "restore-test", "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllocationsForTransactions(ctx, []string{"tx-1"}))
	_, err = store.db.ExecContext(ctx, "DELETE FROM accounts")
	require.NoError(t, err)

	require.NoError(t, manager.Restore(ctx, "restore-test"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.CountAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.ErrorIs(t, manager.Restore(ctx, "non-existent"), ErrCheckpointNotFound)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	_, manager := seededCheckpointStorage(t)
	ctx := context.Background()

	info, err := manager.AutoCheckpoint(ctx, "import")
	require.NoError(t, err)
	assert.True(t, info.IsAuto)
	assert.Contains(t, info.ID, "auto-import-")
	assert.Equal(t, "Automatic checkpoint before import", info.Description)

	// Seed extra automatic checkpoints with distinct ids
	for i := range maxAutoCheckpoints + 2 {
		_, err := manager.create(ctx, "auto-seed-"+string(rune('a'+i)), "seed", true)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, manager.pruneAutoCheckpoints(ctx))

	checkpoints, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Len(t, checkpoints, maxAutoCheckpoints)
}

func TestCheckpointManager_IntegrityCheck(t *testing.T) {
	_, manager := seededCheckpointStorage(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, "corrupt", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(manager.dataPath("corrupt"), []byte("not a database"), 0600))
	assert.ErrorIs(t, manager.Restore(ctx, "corrupt"), ErrCheckpointCorrupted)
}
