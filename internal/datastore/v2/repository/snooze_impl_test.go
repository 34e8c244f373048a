package repository

import (
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnoozeRepository_ReplaceOpenWindowKeepsSingleOpen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnoozeRepository(db)
	ctx := t.Context()

	first := &entities.SnoozeWindow{
		PropertyID: "prop-1", ActionKey: "hvac_filter",
		SnoozedAt: testNow, SnoozeUntil: testNow.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, repo.ReplaceOpenWindow(ctx, first, testNow))

	later := testNow.Add(time.Hour)
	second := &entities.SnoozeWindow{
		PropertyID: "prop-1", ActionKey: "hvac_filter",
		SnoozedAt: later, SnoozeUntil: later.Add(30 * 24 * time.Hour),
	}
	require.NoError(t, repo.ReplaceOpenWindow(ctx, second, later))

	open, err := repo.ListOpenWindows(ctx, "prop-1", "hvac_filter")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	var ended entities.SnoozeWindow
	require.NoError(t, db.First(&ended, first.ID).Error)
	require.NotNil(t, ended.EndedAt)
	assert.True(t, ended.EndedAt.Equal(later))
	assert.Nil(t, ended.OpenSlot)
}

func TestSnoozeRepository_DirectSecondOpenRowConflicts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnoozeRepository(db)
	ctx := t.Context()

	require.NoError(t, repo.ReplaceOpenWindow(ctx, &entities.SnoozeWindow{
		PropertyID: "prop-1", ActionKey: "hvac_filter", SnoozedAt: testNow, SnoozeUntil: testNow.Add(time.Hour),
	}, testNow))

	slot := entities.OpenSlotValue
	err := db.Create(&entities.SnoozeWindow{
		PropertyID: "prop-1", ActionKey: "hvac_filter", SnoozedAt: testNow, SnoozeUntil: testNow.Add(time.Hour), OpenSlot: &slot,
	}).Error
	require.Error(t, err)
	assert.ErrorIs(t, translate(err), ErrConflict)
}

func TestSnoozeRepository_ListOpenWindowsOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnoozeRepository(db)
	ctx := t.Context()

	// Legacy duplicates: open rows without an open slot marker.
	rows := []entities.SnoozeWindow{
		{PropertyID: "prop-1", ActionKey: "gutter_clean", SnoozedAt: testNow.Add(-2 * time.Hour), SnoozeUntil: testNow.Add(48 * time.Hour)},
		{PropertyID: "prop-1", ActionKey: "gutter_clean", SnoozedAt: testNow, SnoozeUntil: testNow.Add(24 * time.Hour)},
		{PropertyID: "prop-1", ActionKey: "gutter_clean", SnoozedAt: testNow, SnoozeUntil: testNow.Add(72 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	open, err := repo.ListOpenWindows(ctx, "prop-1", "gutter_clean")
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, rows[2].ID, open[0].ID, "same snoozed_at resolves to highest id")
	assert.Equal(t, rows[1].ID, open[1].ID)
	assert.Equal(t, rows[0].ID, open[2].ID)
}

func TestSnoozeRepository_EndOpenWindows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnoozeRepository(db)
	ctx := t.Context()

	require.NoError(t, repo.ReplaceOpenWindow(ctx, &entities.SnoozeWindow{
		PropertyID: "prop-1", ActionKey: "hvac_filter", SnoozedAt: testNow, SnoozeUntil: testNow.Add(time.Hour),
	}, testNow))
	require.NoError(t, repo.ReplaceOpenWindow(ctx, &entities.SnoozeWindow{
		PropertyID: "prop-1", ActionKey: "smoke_detector", SnoozedAt: testNow, SnoozeUntil: testNow.Add(time.Hour),
	}, testNow))

	n, err := repo.EndOpenWindows(ctx, "prop-1", "hvac_filter", testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.EndOpenWindows(ctx, "prop-1", "hvac_filter", testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	remaining, err := repo.ListPropertyWindows(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "smoke_detector", remaining[0].ActionKey)
}
