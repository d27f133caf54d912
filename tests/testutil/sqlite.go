package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// NewSQLiteDB opens an in-memory database migrated with the settlement
// models, for repository round-trip tests that want real SQL without a
// postgres instance. Single connection only, so the in-memory schema
// survives for the whole test.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open sqlite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ReceivableModel{},
		&models.SettlementEventModel{},
		&models.RunModel{},
		&models.VarianceModel{},
		&models.AgentChargeModel{},
		&models.ChargeLineModel{},
	), "Failed to migrate sqlite schema")

	return db
}
