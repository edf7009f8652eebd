package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "birdbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"telegram_token: from-file\nebird_api_key: key-file\npage_size: 10\nsnapshot_interval: 45s\n",
	), 0o600))

	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("EBIRD_API_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.TelegramToken, "env must win over file")
	require.Equal(t, "key-file", cfg.EBirdAPIKey)
	require.Equal(t, 10, cfg.PageSize)
	require.Equal(t, 45*time.Second, cfg.SnapshotInterval)
}

func TestLoad_MissingFileUsesEnvAndDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("EBIRD_API_KEY", "key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "dialog-state.json", cfg.SnapshotPath)
	require.Equal(t, 30*time.Second, cfg.SnapshotInterval)
	require.Equal(t, 5, cfg.PageSize)
}

func TestLoad_MissingTokensRejected(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("EBIRD_API_KEY", "")
	t.Setenv("PARAM_PREFIX", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_ParamPrefixAllowsMissingTokens(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("EBIRD_API_KEY", "")
	t.Setenv("PARAM_PREFIX", "/birdbot")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/birdbot", cfg.ParamPrefix)
}
