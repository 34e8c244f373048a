package repository

import (
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"nil", nil, false},
		{"duplicated key", gorm.ErrDuplicatedKey, true},
		{"mysql deadlock", &mysql.MySQLError{Number: mysqlErrLockDeadlock}, true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, false},
		{"sqlite busy", fmt.Errorf("exec: %w", errors.NewStd("database is locked")), true},
		{"sqlite shared cache", errors.NewStd("database table is locked: snooze_windows"), true},
		{"postgres serialization", errors.NewStd("ERROR: could not serialize access due to concurrent update"), true},
		{"not found", ErrIncidentNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			if tt.conflict {
				assert.ErrorIs(t, got, ErrConflict)
				assert.ErrorIs(t, got, tt.err)
				return
			}
			assert.NotErrorIs(t, got, ErrConflict)
			assert.Equal(t, tt.err, got)
		})
	}
}
