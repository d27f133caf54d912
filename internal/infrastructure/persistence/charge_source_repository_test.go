package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormChargeSourceRepository_FindSourcesForSale(t *testing.T) {
	t.Run("groups lines into sources in rank order", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormChargeSourceRepository(gormDB)

		saleID := uuid.New()
		rows := sqlmock.NewRows([]string{
			"id", "created_at", "updated_at",
			"sale_id", "source_name", "source_rank", "position",
			"total", "quantity", "unit_price",
		}).
			AddRow(uuid.New(), time.Now(), time.Now(), saleID, settlement.ChargeSourceOriginSnapshot, 1, 1,
				decimal.NewFromInt(600), decimal.NewFromInt(2), decimal.NewFromInt(300)).
			AddRow(uuid.New(), time.Now(), time.Now(), saleID, settlement.ChargeSourceOriginSnapshot, 1, 2,
				decimal.NewFromInt(400), decimal.NewFromInt(1), decimal.NewFromInt(400)).
			AddRow(uuid.New(), time.Now(), time.Now(), saleID, settlement.ChargeSourceLiveItems, 3, 1,
				decimal.NewFromInt(950), decimal.NewFromInt(1), decimal.NewFromInt(950))

		mock.ExpectQuery(`SELECT \* FROM "charge_source_lines" WHERE sale_id = \$1 ORDER BY source_rank ASC, position ASC`).
			WithArgs(saleID).
			WillReturnRows(rows)

		sources, err := repo.FindSourcesForSale(context.Background(), saleID)

		assert.NoError(t, err)
		require.Len(t, sources, 2)
		assert.Equal(t, settlement.ChargeSourceOriginSnapshot, sources[0].Name)
		assert.Len(t, sources[0].Lines, 2)
		assert.Equal(t, settlement.ChargeSourceLiveItems, sources[1].Name)
		assert.Len(t, sources[1].Lines, 1)
		assert.True(t, sources[0].Lines[0].Total.Equal(decimal.NewFromInt(600)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns no sources for an unknown sale", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormChargeSourceRepository(gormDB)

		saleID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "charge_source_lines" WHERE sale_id = \$1 ORDER BY source_rank ASC, position ASC`).
			WithArgs(saleID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "source_name", "source_rank", "position", "total", "quantity", "unit_price"}))

		sources, err := repo.FindSourcesForSale(context.Background(), saleID)

		assert.NoError(t, err)
		assert.Empty(t, sources)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactor_InTransactionCommit(t *testing.T) {
	t.Run("commits when the function succeeds", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		transactor := NewGormTransactor(gormDB)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := transactor.InTransaction(context.Background(), func(ctx context.Context, repos appsettlement.Repositories) error {
			assert.NotNil(t, repos.Receivables)
			assert.NotNil(t, repos.Events)
			assert.NotNil(t, repos.Runs)
			assert.NotNil(t, repos.Variances)
			assert.NotNil(t, repos.Charges)
			return nil
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
