package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
profile:
  path: /tmp/workload.jsonl
`))
	require.NoError(t, err)

	assert.Equal(t, uint64(512), cfg.Profile.SectorSize)
	assert.Equal(t, "flag", cfg.Permute.Mode)
	assert.Equal(t, "op", cfg.Permute.Granularity)
	assert.Equal(t, 1000, cfg.Permute.States)
	assert.Equal(t, 1, cfg.Permute.Jobs)
	assert.Equal(t, int64(1), cfg.Permute.Seed)
	assert.Equal(t, 4, cfg.Workers.MaxWorkers)
	assert.Equal(t, 9190, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
profile:
  path: /data/ext4_fsync.jsonl
  sector_size: 4096
permute:
  mode: soft
  granularity: sector
  states: 50
  jobs: 8
  seed: 99
workers:
  max_workers: 8
metrics:
  enabled: true
  port: 9999
logging:
  level: debug
  format: console
`))
	require.NoError(t, err)

	assert.Equal(t, uint64(4096), cfg.Profile.SectorSize)
	assert.Equal(t, "soft", cfg.Permute.Mode)
	assert.Equal(t, "sector", cfg.Permute.Granularity)
	assert.Equal(t, 50, cfg.Permute.States)
	assert.Equal(t, 8, cfg.Permute.Jobs)
	assert.Equal(t, int64(99), cfg.Permute.Seed)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_MissingProfilePath(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
permute:
  mode: flag
`))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
profile:
  path: /tmp/workload.jsonl
permute:
  mode: fuzzy
`))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidGranularity(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
profile:
  path: /tmp/workload.jsonl
permute:
  granularity: byte
`))
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "profile: ["))
	assert.Error(t, err)
}
