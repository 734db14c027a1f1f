package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1, cfg.Solver.Workers)
	assert.Equal(t, 50, cfg.Solver.SwarmSize)
	assert.Equal(t, 500, cfg.Solver.MaxIterations)
	assert.Equal(t, int64(0), cfg.Solver.Seed)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("SOLVER_WORKERS", "8")
	t.Setenv("SOLVER_SWARM_SIZE", "120")
	t.Setenv("SOLVER_SEED", "42")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTP.Port)
	assert.Equal(t, 8, cfg.Solver.Workers)
	assert.Equal(t, 120, cfg.Solver.SwarmSize)
	assert.Equal(t, int64(42), cfg.Solver.Seed)
	assert.Equal(t, "error", cfg.Logging.Level)
}
