package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, writeFile(path, `{"dataFolder":"/tmp/data","notificationServer":"https://push.example.com","development":true}`))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/data", cfg.DataFolder)
	require.Equal(t, "https://push.example.com", cfg.NotificationServer)
	require.True(t, cfg.Development)
}

func TestLoadMissingDataFolder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, writeFile(path, `{}`))

	_, err := Load(path)
	require.Error(t, err)
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o600)
}
