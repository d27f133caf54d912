package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func varianceRows(id, runID uuid.UUID, gap float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version",
		"run_id", "agent_id", "expected_cash", "received_cash", "gap_amount",
		"status", "resolution",
	}).AddRow(
		id, time.Now(), time.Now(), 1,
		runID, uuid.New(), decimal.NewFromInt(1000), decimal.NewFromFloat(1000-gap), decimal.NewFromFloat(gap),
		settlement.VarianceStatusOpen, "",
	)
}

func TestGormVarianceRepository_FindLatestByRun(t *testing.T) {
	t.Run("returns the newest variance", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormVarianceRepository(gormDB)

		runID := uuid.New()
		varianceID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "cash_variances" WHERE run_id = \$1 ORDER BY created_at DESC,.* LIMIT .*`).
			WithArgs(runID, 1).
			WillReturnRows(varianceRows(varianceID, runID, 150))

		variance, err := repo.FindLatestByRun(context.Background(), runID)

		assert.NoError(t, err)
		require.NotNil(t, variance)
		assert.Equal(t, varianceID, variance.ID)
		assert.True(t, variance.GapAmount.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil without error when the run has no variance", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormVarianceRepository(gormDB)

		runID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "cash_variances" WHERE run_id = \$1 ORDER BY created_at DESC,.* LIMIT .*`).
			WithArgs(runID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		variance, err := repo.FindLatestByRun(context.Background(), runID)

		assert.NoError(t, err)
		assert.Nil(t, variance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVarianceRepository_SaveWithLock(t *testing.T) {
	t.Run("reports a conflict when no row matches the version", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormVarianceRepository(gormDB)

		variance := &settlement.Variance{RunID: uuid.New(), AgentID: uuid.New()}
		variance.ID = uuid.New()
		variance.Version = 2

		mock.ExpectExec(`UPDATE "cash_variances" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), variance)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAgentChargeRepository_FindByVariance(t *testing.T) {
	t.Run("finds the charge booked from a variance", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgentChargeRepository(gormDB)

		varianceID := uuid.New()
		chargeID := uuid.New()
		rows := sqlmock.NewRows([]string{
			"id", "created_at", "updated_at", "version",
			"agent_id", "variance_id", "run_id", "charge_amount", "paid_amount", "status",
		}).AddRow(
			chargeID, time.Now(), time.Now(), 1,
			uuid.New(), varianceID, uuid.New(), decimal.NewFromInt(150), decimal.Zero,
			settlement.AgentChargeStatusOutstanding,
		)

		mock.ExpectQuery(`SELECT \* FROM "agent_charges" WHERE variance_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(varianceID, 1).
			WillReturnRows(rows)

		charge, err := repo.FindByVariance(context.Background(), varianceID)

		assert.NoError(t, err)
		require.NotNil(t, charge)
		assert.Equal(t, chargeID, charge.ID)
		assert.True(t, charge.ChargeAmount.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil without error when no charge exists", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgentChargeRepository(gormDB)

		varianceID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "agent_charges" WHERE variance_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(varianceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		charge, err := repo.FindByVariance(context.Background(), varianceID)

		assert.NoError(t, err)
		assert.Nil(t, charge)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAgentChargeRepository_SumOutstandingByAgentQuery(t *testing.T) {
	t.Run("sums unpaid balances over open statuses", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAgentChargeRepository(gormDB)

		agentID := uuid.New()
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(charge_amount - paid_amount\), 0\) as total FROM "agent_charges"`).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(decimal.NewFromInt(425)))

		total, err := repo.SumOutstandingByAgent(context.Background(), agentID)

		assert.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(425)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
