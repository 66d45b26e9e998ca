package obslog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestReplace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	L().Info("hello", zap.String("room", "lobby"))
	restore()
	L().Info("dropped")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "lobby", logs.All()[0].ContextMap()["room"])
}

func TestInitFromEnv_File(t *testing.T) {
	defer Replace(L())()
	path := filepath.Join(t.TempDir(), "sub", "bot.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_FORMAT", "json")

	require.NoError(t, InitFromEnv())
	L().Info("ready")
	Sync()
	assert.FileExists(t, path)
}
