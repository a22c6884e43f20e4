package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_DefaultsAndYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
google:
  client_id: yaml-client
sync:
  concurrency: 4
  cron: "0 */6 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "yaml-client", cfg.Google.ClientID)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, "0 */6 * * *", cfg.Sync.Cron)

	// 未配置项走默认值
	assert.Equal(t, 30, cfg.Sync.MetricsDays)
	assert.Equal(t, 3, cfg.Sync.KeywordMonths)
	assert.Equal(t, 50, cfg.Google.ReviewsPageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Reply.Interval)
	assert.Equal(t, "https://mybusiness.googleapis.com/v4", cfg.Google.MyBusinessURL)
}

func TestLoadConfigFile_EnvOverridesSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("google:\n  client_secret: from-yaml\n"), 0o600))

	t.Setenv("GOOGLE_CLIENT_SECRET", "from-env")
	t.Setenv("SYNC_CRON_SECRET", "cron-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/gbp")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Google.ClientSecret)
	assert.Equal(t, "cron-secret", cfg.Sync.CronSecret)
	assert.Equal(t, "postgres://u:p@localhost:5432/gbp", cfg.Postgres.DSN)
}
