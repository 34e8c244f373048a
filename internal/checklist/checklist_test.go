package checklist

import (
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entities.ChecklistItem{}))
	return db
}

func TestDBFinder_FindChecklistItem(t *testing.T) {
	db := setupTestDB(t)
	due := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	freq := "QUARTERLY"
	require.NoError(t, db.Create(&entities.ChecklistItem{
		ID: "item-1", PropertyID: "prop-1", OrchestrationActionID: "hvac_filter",
		Title: "Replace HVAC filter", Frequency: &freq, NextDueDate: &due, Status: "PENDING",
	}).Error)

	finder := NewDBFinder(repository.NewChecklistRepository(db))

	item, err := finder.FindChecklistItem(t.Context(), "prop-1", "hvac_filter")
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "Replace HVAC filter", item.Title)
	assert.Equal(t, "QUARTERLY", *item.Frequency)
	assert.True(t, item.NextDueDate.Equal(due))
	assert.Equal(t, "PENDING", item.Status)

	_, err = finder.FindChecklistItem(t.Context(), "prop-1", "gutter_clean")
	assert.ErrorIs(t, err, ErrNotFound)
}
