package repository

import (
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with the engine schema.
// Uses shared-cache mode with a single connection to ensure all operations
// see the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entities.All()...), "failed to migrate tables")
	return db
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// newOpenIncident builds an unsaved open incident for the dedupe key.
func newOpenIncident(propertyID, typeKey string) *entities.Incident {
	slot := entities.OpenSlotValue
	return &entities.Incident{
		PropertyID:     propertyID,
		TypeKey:        typeKey,
		Title:          "Water heater nearing end of life",
		Status:         entities.IncidentStatusDetected,
		OpenedAt:       testNow,
		LastObservedAt: testNow,
		OpenSlot:       &slot,
	}
}
