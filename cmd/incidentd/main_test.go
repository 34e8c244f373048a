package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/homeledger/incident-engine/internal/orchestration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "incidentd.yaml")
	cfg := "database:\n" +
		"  driver: sqlite\n" +
		"  path: " + filepath.Join(dir, "incidents.db") + "\n" +
		"engine:\n" +
		"  stale_after: 1h\n" +
		"logging:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedIncident(t *testing.T, configPath string) string {
	t.Helper()
	opts := &rootOptions{configFile: configPath}
	settings, _, err := opts.load(nil)
	require.NoError(t, err)
	rt, err := newRuntime(settings, logger.Nop())
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.store.DB().Create(&entities.Property{ID: "prop-1"}).Error)
	score := 85
	inc, err := rt.engine.Evaluate(context.Background(), "prop-1", "water_heater.age", &orchestration.Signal{
		SignalType: "age_check",
		ObservedAt: time.Now().UTC().Add(-2 * time.Hour),
		ScoreHint:  &score,
	})
	require.NoError(t, err)
	require.NotNil(t, inc)
	return inc.ID
}

func TestMigrateCommand(t *testing.T) {
	path := writeConfig(t)
	_, err := run(t, "migrate", "--config", path)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "incidents.db"))
}

func TestTraceCommand(t *testing.T) {
	path := writeConfig(t)
	id := seedIncident(t, path)

	out, err := run(t, "trace", id, "--config", path, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Incident "+id)
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "TASK")
	assert.Contains(t, out, orchestration.RuleThreshold)

	_, err = run(t, "trace", "missing", "--config", path)
	assert.Error(t, err)
}

func TestExpireCommand(t *testing.T) {
	path := writeConfig(t)
	seedIncident(t, path)

	out, err := run(t, "expire", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "expired 1 incident(s)")

	out, err = run(t, "expire", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "expired 0 incident(s)")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600))

	_, err := run(t, "migrate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database.driver")
}

func TestPrintTraces(t *testing.T) {
	color.NoColor = true
	band := entities.SeverityWarning
	score, threshold := 50, 35
	inc := &entities.Incident{ID: "inc-1", TypeKey: "gutter.clean", Status: entities.IncidentStatusActioned, Severity: &band, SeverityScore: &score}

	var buf bytes.Buffer
	printTraces(&buf, inc, nil)
	assert.Contains(t, buf.String(), "no proposed actions")

	buf.Reset()
	printTraces(&buf, inc, []orchestration.ProposalTrace{{
		Sequence:   4,
		ActionID:   "act-1",
		ActionType: entities.ActionTypeChecklistItem,
		Trace: &entities.DecisionTrace{
			SchemaVersion: entities.DecisionTraceSchemaVersion,
			RecordedAt:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Steps: []entities.TraceStep{
				{Rule: orchestration.RuleSuppression, Outcome: entities.TraceSkipped},
				{Rule: orchestration.RuleThreshold, Outcome: entities.TraceApplied, Details: entities.TraceDetails{Score: &score, Threshold: &threshold}},
			},
		},
	}})
	out := buf.String()
	assert.Contains(t, out, "Incident inc-1")
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "#4 CHECKLIST_ITEM action act-1")
	assert.Contains(t, out, "recorded 2025-03-10T12:00:00Z")
	assert.Contains(t, out, "score=50 threshold=35")
}
