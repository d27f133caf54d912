package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/tests/testutil"
)

func TestGormRunRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormRunRepository(db)

	run, err := settlement.NewRun("RUN-001", testutil.TestAgentID())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, run))

	t.Run("finds by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, run.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "RUN-001", found.RunNumber)
		assert.Equal(t, settlement.RunStatusDraft, found.Status)
		assert.True(t, found.ExpectedCash.IsZero())
	})

	t.Run("finds by run number", func(t *testing.T) {
		found, err := repo.FindByRunNumber(ctx, "RUN-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, run.ID, found.ID)
	})

	t.Run("returns nil when missing", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)

		found, err = repo.FindByRunNumber(ctx, "RUN-999")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormRunRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormRunRepository(db)

	run, err := settlement.NewRun("RUN-001", testutil.TestAgentID())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, run))

	t.Run("persists a status transition", func(t *testing.T) {
		require.NoError(t, run.Dispatch())
		require.NoError(t, repo.SaveWithLock(ctx, run))

		found, err := repo.FindByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, settlement.RunStatusDispatched, found.Status)
		assert.NotNil(t, found.DispatchedAt)
		assert.Equal(t, run.Version, found.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		stale := *run
		stale.Version = run.Version + 5
		err := repo.SaveWithLock(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormRunRepository_FindAllAndCount(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewGormRunRepository(db)

	agentID := testutil.TestAgentID()
	for _, number := range []string{"RUN-001", "RUN-002"} {
		run, err := settlement.NewRun(number, agentID)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, run))
	}
	dispatched, err := settlement.NewRun("RUN-003", agentID)
	require.NoError(t, err)
	require.NoError(t, dispatched.Dispatch())
	require.NoError(t, repo.Save(ctx, dispatched))

	t.Run("filters by status", func(t *testing.T) {
		status := settlement.RunStatusDraft
		runs, err := repo.FindAll(ctx, settlement.RunFilter{Status: &status})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("counts by agent", func(t *testing.T) {
		count, err := repo.Count(ctx, settlement.RunFilter{AgentID: &agentID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}
