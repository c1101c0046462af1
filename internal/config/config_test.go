package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, "log", c.Notify.Driver)
	require.Equal(t, 32, c.Matching.RetryBudget)
	require.Equal(t, 7*24*time.Hour, c.Scheduler.Interval)
	require.Equal(t, "memory", c.ProfilesDriver())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	p := writeYAML(t, `
storage:
  driver: sqlite
  path: db/pairs.db
scheduler:
  interval: 1h
  concurrency: 2
slack:
  tokens:
    T123: xoxb-tenant
`)
	t.Setenv("HELLOPAIR_SCHEDULER_INTERVAL", "30m")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-default")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "sqlite", c.Storage.Driver)
	require.Equal(t, filepath.Join(filepath.Dir(p), "db", "pairs.db"), c.Storage.Path)
	require.Equal(t, 30*time.Minute, c.Scheduler.Interval)
	require.Equal(t, 2, c.Scheduler.Concurrency)
	require.Equal(t, "xoxb-tenant", c.SlackToken("T123"))
	require.Equal(t, "xoxb-default", c.SlackToken("T999"))
}

func TestLoad_StorageDSNFromSecret(t *testing.T) {
	p := writeYAML(t, "storage:\n  driver: postgres\n")
	t.Setenv("STORAGE_DSN", "postgres://u:p@localhost/hp")
	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@localhost/hp", c.Storage.DSN)
}

func TestValidate_RejectsUnknownDrivers(t *testing.T) {
	p := writeYAML(t, "storage:\n  driver: mongo\nnotify:\n  driver: pigeon\n")
	_, err := Load(p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mongo")
	require.Contains(t, err.Error(), "pigeon")
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	p := writeYAML(t, "storage:\n  driver: postgres\n")
	_, err := Load(p)
	require.ErrorContains(t, err, "storage.dsn")
}

func TestValidate_RedisLockTTLMustOutliveTenantRun(t *testing.T) {
	p := writeYAML(t, "lock:\n  driver: redis\n  ttl: 30s\nscheduler:\n  tenant_timeout: 1m\n")
	_, err := Load(p)
	require.ErrorContains(t, err, "lock.ttl")

	p = writeYAML(t, "lock:\n  driver: redis\n  ttl: 2m\nscheduler:\n  tenant_timeout: 1m\n")
	c, err := Load(p)
	require.NoError(t, err)
	require.Greater(t, c.Lock.TTL, c.Scheduler.TenantTimeout)

	p = writeYAML(t, "lock:\n  driver: memory\n  ttl: 30s\nscheduler:\n  tenant_timeout: 1m\n")
	_, err = Load(p)
	require.NoError(t, err, "the memory lock has no expiry")
}
