package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.Server.GRPC.Address)
	assert.Equal(t, "/ws", cfg.Server.WebSocket.Path)
	assert.Equal(t, 15*time.Second, cfg.Match.InterruptWindow)
	assert.Equal(t, 64, cfg.Match.QueueSize)
	assert.Equal(t, time.Minute, cfg.Match.Retention)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Journal.Driver)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
match:
  interrupt_window: 3s
  seed: 42
journal:
  driver: sqlite
  dsn: /tmp/clash.db
logging:
  format: json
`), 0o600))
	t.Setenv("CLASH_MATCH_QUEUE_SIZE", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Match.InterruptWindow)
	assert.Equal(t, uint64(42), cfg.Match.Seed)
	assert.Equal(t, 8, cfg.Match.QueueSize)
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  driver: postgres\n"), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "journal.dsn")

	require.NoError(t, os.WriteFile(path, []byte("journal:\n  driver: mongo\n  dsn: x\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "unknown journal driver")
}
