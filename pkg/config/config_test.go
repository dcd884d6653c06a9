package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjarrow/sagaflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil map", nil},
		{"empty map", map[string]any{}},
		{"with values", map[string]any{"key": "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.NotNil(t, cfg.Raw())
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal string
		want       string
	}{
		{"key exists", map[string]any{"name": "alice"}, "name", "default", "alice"},
		{"key missing", map[string]any{"other": "value"}, "name", "default", "default"},
		{"wrong type", map[string]any{"name": 123}, "name", "default", "default"},
		{"nil map", nil, "name", "default", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.String(tt.key, tt.defaultVal))
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		want       time.Duration
	}{
		{"string duration", map[string]any{"timeout": "30s"}, 30 * time.Second},
		{"int seconds", map[string]any{"timeout": 5}, 5 * time.Second},
		{"float seconds", map[string]any{"timeout": 2.5}, time.Duration(2.5 * float64(time.Second))},
		{"duration value", map[string]any{"timeout": 7 * time.Second}, 7 * time.Second},
		{"invalid string falls back", map[string]any{"timeout": "not-a-duration"}, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Duration("timeout", 10*time.Second))
		})
	}
}

func TestBoolIntFloat(t *testing.T) {
	cfg := config.New(map[string]any{
		"enabled": true,
		"retries": 3,
		"ratio":   1.5,
	})
	assert.True(t, cfg.Bool("enabled", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.Equal(t, 3, cfg.Int("retries", 0))
	assert.Equal(t, 1.5, cfg.Float("ratio", 0))
}

func TestStringSlice(t *testing.T) {
	cfg := config.New(map[string]any{
		"hosts":      []string{"a", "b"},
		"anyHosts":   []any{"c", "d"},
		"mixedHosts": []any{"c", 1},
	})
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("hosts", nil))
	assert.Equal(t, []string{"c", "d"}, cfg.StringSlice("anyHosts", nil))
	assert.Nil(t, cfg.StringSlice("mixedHosts", nil))
	assert.Equal(t, []string{"z"}, cfg.StringSlice("missing", []string{"z"}))
}

func TestSection(t *testing.T) {
	cfg := config.New(map[string]any{
		"store": map[string]any{"backend": "sqlite"},
	})
	section := cfg.Section("store")
	assert.Equal(t, "sqlite", section.String("backend", "memory"))

	empty := cfg.Section("missing")
	assert.Equal(t, "memory", empty.String("backend", "memory"))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "sagaflow.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("store:\n  backend: sqlite\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Section("store").String("backend", ""))

	jsonPath := filepath.Join(dir, "sagaflow.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"store":{"backend":"memory"}}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Section("store").String("backend", ""))

	_, err = config.FromFile(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err)
}
