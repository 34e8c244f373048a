package v2

import (
	"testing"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupManager creates a file-backed SQLite manager with initialized schema.
func setupManager(t *testing.T) *Manager {
	t.Helper()

	mgr, err := NewSQLiteManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	require.NoError(t, mgr.Initialize())
	return mgr
}

func TestManager_InitializeCreatesTables(t *testing.T) {
	mgr := setupManager(t)

	for _, model := range entities.All() {
		assert.True(t, mgr.DB().Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, mgr.DB().Migrator().HasIndex(&entities.Incident{}, "idx_incidents_open"))
	assert.True(t, mgr.DB().Migrator().HasIndex(&entities.SnoozeWindow{}, "idx_snooze_windows_open"))
	assert.True(t, mgr.DB().Migrator().HasIndex(&entities.IncidentEvent{}, "idx_incident_events_seq"))
}

func TestManager_InitializeIsIdempotent(t *testing.T) {
	mgr := setupManager(t)
	require.NoError(t, mgr.Initialize())
	require.NoError(t, mgr.Ping(t.Context()))
	assert.Equal(t, DriverSQLite, mgr.Driver())
}

func TestNewManager_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown driver", Config{Driver: "oracle", DSN: "x"}},
		{"mysql without dsn", Config{Driver: DriverMySQL}},
		{"postgres without dsn", Config{Driver: DriverPostgres}},
		{"sqlite without path", Config{Driver: DriverSQLite}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}
