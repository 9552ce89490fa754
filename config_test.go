package numsolve_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/numsolve"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := numsolve.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, numsolve.DefaultConfig(), cfg)
	assert.Equal(t, "x**2 - 4", cfg.Presets.Bisection.Expr)
	assert.Equal(t, "2*x", cfg.Presets.NewtonRaphson.Derivative)
	assert.Equal(t, 0.1, cfg.Presets.RungeKutta4.H)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "numsolve.yaml", `
defaults:
  tolerance: 1.0e-9
  max_iterations: 250
presets:
  bisection:
    expr: "x**3 - x - 2"
    a: 1
    b: 2
output:
  format: json
  precision: 12
server:
  addr: ":9090"
  read_timeout: 30s
log:
  level: debug
`)
	cfg, err := numsolve.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 1e-9, cfg.Defaults.Tolerance)
	assert.Equal(t, 250, cfg.Defaults.MaxIterations)
	assert.Equal(t, numsolve.BisectionPreset{Expr: "x**3 - x - 2", A: 1, B: 2}, cfg.Presets.Bisection)
	assert.Equal(t, numsolve.FormatJSON, cfg.Output.Format)
	assert.Equal(t, 12, cfg.Output.Precision)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, "x + y", cfg.Presets.Euler.Expr)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)

	_, read, _, idle := cfg.Server.Durations()
	assert.Equal(t, 30*time.Second, read)
	assert.Equal(t, 60*time.Second, idle)
}

func TestLoadConfig_YAMLRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "numsolve.yaml", `
defaults:
  tolerence: 1.0e-9
`)
	_, err := numsolve.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeConfig(t, "numsolve.toml", `
[defaults]
tolerance = 1e-8
max_iterations = 50

[presets.newton_raphson]
expr = "cos(x) - x"
derivative = ""
x0 = 1.0

[output]
format = "cbor"
precision = 6
no_color = true
`)
	cfg, err := numsolve.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1e-8, cfg.Defaults.Tolerance)
	assert.Equal(t, 50, cfg.Defaults.MaxIterations)
	assert.Equal(t, numsolve.NewtonPreset{Expr: "cos(x) - x", X0: 1}, cfg.Presets.NewtonRaphson)
	assert.Equal(t, numsolve.FormatCBOR, cfg.Output.Format)
	assert.True(t, cfg.Output.NoColor)
}

func TestLoadConfig_TOMLRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "numsolve.toml", `
[output]
colour = true
`)
	_, err := numsolve.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.colour")
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("NUMSOLVE_PORT", "7070")
	t.Setenv("NUMSOLVE_LOG_LEVEL", "warn")
	path := writeConfig(t, "numsolve.yaml", `
server:
  addr: ":${NUMSOLVE_PORT}"
`)
	cfg, err := numsolve.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Setenv("NUMSOLVE_ADDR", "127.0.0.1:1234")
	cfg, err = numsolve.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Server.Addr)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"non-positive tolerance", "defaults:\n  tolerance: -1\n"},
		{"iterations above limit", "defaults:\n  max_iterations: 2000000\n"},
		{"bad format", "output:\n  format: xml\n"},
		{"precision out of range", "output:\n  precision: 40\n"},
		{"bad duration", "server:\n  idle_timeout: soon\n"},
		{"reversed bracket", "presets:\n  bisection:\n    a: 3\n    b: 0\n"},
		{"zero step", "presets:\n  euler:\n    h: 0\n"},
		{"bad preset expression", "presets:\n  runge_kutta4:\n    expr: \"x +\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := numsolve.LoadConfig(writeConfig(t, "numsolve.yaml", tt.content))
			assert.ErrorIs(t, err, numsolve.ErrConfigValidation)
		})
	}
}
