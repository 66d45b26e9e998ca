package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresUsernameAndRooms(t *testing.T) {
	t.Setenv("SHOWDOWN_USERNAME", "")
	t.Setenv("ROOMS", "lobby")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("SHOWDOWN_USERNAME", "LadderBot")
	t.Setenv("ROOMS", " , ")
	_, err = Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOWDOWN_USERNAME", "LadderBot")
	t.Setenv("ROOMS", "lobby, tours ,")
	t.Setenv("BOT_PREFIX", "")
	t.Setenv("TICK_INTERVAL", "")
	t.Setenv("TOP_SIZE", "")
	t.Setenv("DRY_RUN", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"lobby", "tours"}, cfg.Rooms)
	assert.Equal(t, ".", cfg.BotPrefix)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 600*time.Millisecond, cfg.SendInterval)
	assert.Equal(t, 10, cfg.TopSize)
	assert.False(t, cfg.DryRun)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SHOWDOWN_USERNAME", "LadderBot")
	t.Setenv("ROOMS", "lobby")
	t.Setenv("TICK_INTERVAL", "3")
	t.Setenv("PULL_TIMEOUT", "750ms")
	t.Setenv("DEADLINE_LEAD", "garbage")
	t.Setenv("LADDER_BASE_URL", "http://ladder.local/ladder/")
	t.Setenv("DEFAULT_RATING", "1500")
	t.Setenv("TOP_SIZE", "-2")
	t.Setenv("DRY_RUN", "TRUE")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.TickInterval)
	assert.Equal(t, 750*time.Millisecond, cfg.PullTimeout)
	assert.Equal(t, 2*time.Second, cfg.DeadlineLead)
	assert.Equal(t, "http://ladder.local/ladder", cfg.LadderBaseURL)
	assert.Equal(t, 1500, cfg.DefaultRating)
	assert.Equal(t, 10, cfg.TopSize)
	assert.True(t, cfg.DryRun)
}
