package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{"string", `"45s"`, Duration(45 * time.Second), false},
		{"compound", `"1h30m"`, Duration(90 * time.Minute), false},
		{"nanoseconds", `30000000000`, Duration(30 * time.Second), false},
		{"null resets", `null`, Duration(0), false},
		{"garbage", `"soon"`, 0, true},
		{"boolean", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Duration(time.Minute)
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		RetryBackoff Duration `json:"retry_backoff"`
	}{Duration(250 * time.Millisecond)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"retry_backoff":"250ms"}`, string(b))
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	type engineSection struct {
		StaleAfter Duration `yaml:"stale_after"`
	}

	var cfg engineSection
	require.NoError(t, yaml.Unmarshal([]byte("stale_after: 720h"), &cfg))
	assert.Equal(t, 720*time.Hour, cfg.StaleAfter.Std())

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "720h0m0s")

	var legacy engineSection
	require.NoError(t, yaml.Unmarshal([]byte("stale_after: 1000"), &legacy))
	assert.Equal(t, Duration(1000), legacy.StaleAfter, "bare integers are nanoseconds")

	var bad engineSection
	assert.Error(t, yaml.Unmarshal([]byte("stale_after: [1, 2]"), &bad))
}
