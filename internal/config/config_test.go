package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SWEEP_SCHEDULE", "")
	t.Setenv("SWEEP_ENABLED", "")

	cfg := Load()

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "0 0 * * *", cfg.Sweep.Schedule)
	assert.True(t, cfg.Sweep.Enabled)
	assert.False(t, cfg.Sweep.Transactional)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.LockTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SWEEP_SCHEDULE", "30 1 * * *")
	t.Setenv("SWEEP_ENABLED", "false")
	t.Setenv("SWEEP_TRANSACTIONAL", "1")
	t.Setenv("SWEEP_LOCK_TTL", "2m")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "30 1 * * *", cfg.Sweep.Schedule)
	assert.False(t, cfg.Sweep.Enabled)
	assert.True(t, cfg.Sweep.Transactional)
	assert.Equal(t, 2*time.Minute, cfg.Sweep.LockTTL)
	assert.Equal(t, int32(20), cfg.DBMaxConns)
}

func TestSweepConfig_LocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, SweepConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "UTC", SweepConfig{Timezone: "UTC"}.Location().String())
}
