package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var v struct {
		Timeout Duration `yaml:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`timeout: 1m30s`), &v))
	assert.Equal(t, 90*time.Second, v.Timeout.Duration())

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "timeout: 1m30s\n", string(out))
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: `"10s"`, expected: 10 * time.Second},
		{input: `""`, expected: 0},
		{input: `null`, expected: 0},
		{input: `"bogus"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration())
		})
	}

	out, err := json.Marshal(Duration(5 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"5m0s"`, string(out))
}
