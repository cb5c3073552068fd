package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SLAWATCH_DATABASE__URL", "postgres://localhost/slawatch")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 60*time.Second, cfg.SLA.ScanInterval)
	assert.Equal(t, 30*time.Minute, cfg.SLA.RiskWindow)
	assert.Equal(t, 30*24*time.Hour, cfg.SLA.ComplianceWindow)
	assert.Equal(t, 3, cfg.Notifications.Retry.MaxAttempts)
	assert.True(t, cfg.Database.MigrateOnStart)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9000"
database:
  url: postgres://file-host/slawatch
sla:
  scan_interval: 30s
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	// Environment wins over the file.
	t.Setenv("SLAWATCH_DATABASE__URL", "postgres://env-host/slawatch")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "postgres://env-host/slawatch", cfg.Database.URL)
	assert.Equal(t, 30*time.Second, cfg.SLA.ScanInterval)
}

func TestLoad_InvalidScanInterval(t *testing.T) {
	t.Setenv("SLAWATCH_DATABASE__URL", "postgres://localhost/slawatch")
	t.Setenv("SLAWATCH_SLA__SCAN_INTERVAL", "-10s")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan_interval")
}
