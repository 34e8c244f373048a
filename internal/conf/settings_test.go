package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	s, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.Equal(t, 35, s.Engine.SurfacingThreshold)
	assert.Equal(t, 50*time.Millisecond, s.Engine.RetryBackoff.Std())
	assert.Equal(t, 30*time.Second, s.Engine.ChecklistCacheTTL.Std())
	assert.Equal(t, 720*time.Hour, s.Engine.StaleAfter.Std())
	assert.Equal(t, 10*time.Second, s.HTTP.RequestTimeout.Std())
	assert.Empty(t, s.Engine.ProposalRules)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "incidentd.yaml")
	content := `
database:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/incidents?parseTime=true"
engine:
  surfacing_threshold: 50
  checklist_cache_ttl: 0s
  proposal_rules:
    - name: roof leak
      action_type: TASK
      title: Book a roofer
      conditions:
        - property: type_key
          operator: contains
          value: roof
checklist:
  source: http
  base_url: http://checklists.internal
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("INCIDENTD_HTTP_LISTEN", ":9999")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", s.Database.Driver)
	assert.Equal(t, 50, s.Engine.SurfacingThreshold)
	assert.Equal(t, time.Duration(0), s.Engine.ChecklistCacheTTL.Std())
	assert.Equal(t, 2*time.Second, s.Checklist.Timeout.Std())
	assert.Equal(t, ":9999", s.HTTP.Listen)

	require.Len(t, s.Engine.ProposalRules, 1)
	rule := s.Engine.ProposalRules[0]
	assert.Equal(t, "roof leak", rule.Name)
	assert.Equal(t, "TASK", rule.ActionType)
	require.Len(t, rule.Conditions, 1)
	assert.Equal(t, "contains", rule.Conditions[0].Operator)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	base := func() Settings {
		return Settings{
			Database:  DatabaseSettings{Driver: "sqlite", Path: "x.db"},
			Engine:    EngineSettings{SurfacingThreshold: 35},
			Checklist: ChecklistSettings{Source: "db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(_ *Settings) {}, ""},
		{"unknown driver", func(s *Settings) { s.Database.Driver = "oracle" }, "unsupported database.driver"},
		{"mysql without dsn", func(s *Settings) { s.Database.Driver = "mysql" }, "database.dsn is required"},
		{"threshold too high", func(s *Settings) { s.Engine.SurfacingThreshold = 101 }, "surfacing_threshold"},
		{"negative retries", func(s *Settings) { s.Engine.ConflictRetries = -1 }, "conflict_retries"},
		{"http checklist without url", func(s *Settings) { s.Checklist.Source = "http" }, "base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
