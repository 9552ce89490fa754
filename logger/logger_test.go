package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/numsolve"
	"github.com/njchilds90/numsolve/logger"
)

func TestParseLevel(t *testing.T) {
	lvl, err := logger.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = logger.ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, zerolog.TraceLevel, lvl)

	_, err = logger.ParseLevel("loud")
	assert.Error(t, err)
}

func TestSolverLogging(t *testing.T) {
	saved := logger.Logger()
	t.Cleanup(func() { logger.Set(saved) })

	var buf bytes.Buffer
	logger.Set(zerolog.New(&buf).Level(zerolog.InfoLevel))
	_, err := numsolve.Bisection("x**2 - 4", 0, 3, 1e-6, 100)
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "solver traces are below info")

	logger.SetLevel(zerolog.DebugLevel)
	_, err = numsolve.Bisection("x**2 + 1", -1, 1, 1e-6, 100)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `"method":"bisection"`)
	assert.Contains(t, out, numsolve.ReasonNoSignChange)

	buf.Reset()
	logger.Disable()
	_, err = numsolve.Euler("x + y", 0, 1, 0.1, 1)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(buf.String()))
}
