package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatYAML = `
port: "8088"
jwt:
  secret: ${CHAT_TEST_SECRET}
room:
  default_name: Lobby
ws:
  ping_interval: 15s
mongo:
  enabled: true
  host: mongo
  port: 27017
redis:
  enabled: false
  retry_count: 7
`

func TestReadChat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_test.yaml"), []byte(chatYAML), 0644))
	t.Setenv("CHAT_TEST_SECRET", "s3cret")

	cfg, err := ReadChat("chat_test", dir)
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "Lobby", cfg.Room.DefaultName)
	assert.Equal(t, 15*time.Second, cfg.WS.PingInterval)
	assert.True(t, cfg.Mongo.Enabled)
	assert.Equal(t, "mongo", cfg.Mongo.Host)
	assert.Equal(t, 27017, cfg.Mongo.Port)
	assert.False(t, cfg.Redis.Enabled)

	// defaults
	assert.Equal(t, "global", cfg.Room.DefaultID)
	assert.Equal(t, 2000, cfg.Room.MaxMessageLength)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.Equal(t, "chat", cfg.Redis.ChannelPrefix)
	assert.Equal(t, 7, cfg.Redis.RetryCount)
	assert.Equal(t, 2, cfg.Redis.RetryInterval)
	assert.Equal(t, 3, cfg.Mongo.RetryCount)
}

func TestReadChat_MissingFile(t *testing.T) {
	_, err := ReadChat("does_not_exist", t.TempDir())
	assert.Error(t, err)
}

func TestGetPath(t *testing.T) {
	_, err := GetPath("definitely-not-here.env", 2)
	assert.Error(t, err)
}
