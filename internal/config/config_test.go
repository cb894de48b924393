package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("CHANNEL_ID", "")
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "database.sqlite", cfg.Storage.Path)
	assert.Equal(t, "memory", cfg.Session.Driver)
	assert.Equal(t, time.Duration(0), cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Address())
	assert.Error(t, cfg.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOT_TOKEN", " 123:abc ")
	t.Setenv("CHANNEL_ID", "-1001865650854")
	t.Setenv("ADMIN_CHAT_ID", "42")
	t.Setenv("PORT", "7955")
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("SESSION_TTL", "15m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, int64(-1001865650854), cfg.Bot.ChannelID)
	assert.Equal(t, int64(42), cfg.Bot.AdminChatID)
	assert.Equal(t, 7955, cfg.Server.Port)
	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoURI)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot:
  token: from-file
  channel_id: -100777
storage:
  path: /data/videos.sqlite
logging:
  level: debug
`), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Bot.Token)
	assert.Equal(t, int64(-100777), cfg.Bot.ChannelID)
	assert.Equal(t, "/data/videos.sqlite", cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
