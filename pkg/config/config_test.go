package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/boxel/pkg/budget"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
	assert.Equal(t, float64(budget.DefaultMaxSizeKB), cfg.Build.MaxSizeKB)
	assert.Equal(t, 10*time.Second, cfg.Build.Timeout.Duration)
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
[server]
addr = ":8080"
read_timeout = "3s"

[build]
max_size_kb = 5000
optimization = "moderate"
minify = true
timeout = "2s"

[libraries]
three = "https://cdn.example.com/three.js"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout.Duration)
	assert.Equal(t, float64(budget.MaxMaxSizeKB), cfg.Build.MaxSizeKB, "clamped")
	assert.True(t, cfg.Build.Minify)

	opts := cfg.BundlerOptions()
	assert.True(t, opts.Minify)
	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.Equal(t, "https://cdn.example.com/three.js", opts.Libraries["three"])

	s := cfg.BudgetSettings()
	assert.Equal(t, budget.OptimizeModerate, s.Optimization)
	assert.Equal(t, float64(budget.MaxMaxSizeKB), s.MaxSizeKB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad toml", "[build\n"},
		{"bad duration", "[build]\ntimeout = \"soon\"\n"},
		{"bad optimization", "[build]\noptimization = \"extreme\"\n"},
		{"bad format", "[build]\nformat = \"gif\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOXEL_ADDR", ":9999")
	t.Setenv("BOXEL_MAX_SIZE_KB", "250")
	t.Setenv("BOXEL_ENTRY_ONLY", "true")
	t.Setenv("BOXEL_BUILD_TIMEOUT", "1500ms")

	cfg, err := Load(writeConfig(t, "[server]\naddr = \":8080\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 250.0, cfg.Build.MaxSizeKB)
	assert.True(t, cfg.Build.EntryOnly)
	assert.Equal(t, 1500*time.Millisecond, cfg.Build.Timeout.Duration)

	t.Setenv("BOXEL_MINIFY", "maybe")
	_, err = Load(writeConfig(t, ""))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Build.Minify = true
	cfg.Libraries["leva"] = "https://x/leva.js"
	require.NoError(t, Save(p, cfg))

	got, err := Load(p)
	require.NoError(t, err)
	assert.True(t, got.Build.Minify)
	assert.Equal(t, "https://x/leva.js", got.Libraries["leva"])
	assert.Equal(t, cfg.Build.Timeout, got.Build.Timeout)
}
