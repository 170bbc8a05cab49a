package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(64*1024*1024), cfg.MaxFileSize())
	assert.Equal(t, int64(1024*1024*1024), cfg.MaxDirectorySize())
	assert.Equal(t, cfg.MaxDirectorySize()*80/100, cfg.WarningSize())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
storage:
  threshold_percent: 95
  max_directory_size_mb: 10
logger:
  directory: /var/log/app
  max_file_size_mb: 0.5
  queue_size: 128
  default_file_type: tlvbin
  default_compress: true
  enqueue_timeout: 5ms
xlsxconfig:
  rows: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 95.0, cfg.Storage.ThresholdPercent)
	assert.Equal(t, 80.0, cfg.Storage.WarningPercent, "unset keys keep defaults")
	assert.Equal(t, "/var/log/app", cfg.Logger.Directory)
	assert.Equal(t, int64(512*1024), cfg.MaxFileSize())
	assert.Equal(t, 128, cfg.Logger.QueueSize)
	assert.Equal(t, "tlvbin", cfg.Logger.DefaultFileType)
	assert.True(t, cfg.Logger.DefaultCompress)
	assert.Equal(t, 5*time.Millisecond, cfg.Logger.EnqueueTimeout)
	assert.Equal(t, 1000, cfg.Sheet.Rows)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	mutations := map[string]func(*Config){
		"queue":     func(c *Config) { c.Logger.QueueSize = 0 },
		"file size": func(c *Config) { c.Logger.MaxFileSizeMB = 0 },
		"threshold": func(c *Config) { c.Storage.ThresholdPercent = 120 },
		"warning":   func(c *Config) { c.Storage.WarningPercent = 100 },
		"format":    func(c *Config) { c.Logger.DefaultFileType = "parquet" },
		"codec":     func(c *Config) { c.Logger.CompressionCodec = "lz4" },
		"rows":      func(c *Config) { c.Sheet.Rows = -1 },
		"directory": func(c *Config) { c.Logger.Directory = "" },
	}
	for name, mutate := range mutations {
		cfg := Default()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestValidateAcceptsCodecAliases(t *testing.T) {
	for _, name := range []string{"gzip", "gz", "ZSTD", "zst"} {
		cfg := Default()
		cfg.Logger.CompressionCodec = name
		assert.NoError(t, cfg.Validate(), name)
	}
	for _, name := range []string{"csv", "bin", "tlv", "tlvbin", ".xlsx"} {
		cfg := Default()
		cfg.Logger.DefaultFileType = name
		assert.NoError(t, cfg.Validate(), name)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SEGLOG_DIRECTORY", "/tmp/seglog")
	t.Setenv("SEGLOG_QUEUE_SIZE", "7")
	t.Setenv("SEGLOG_DEFAULT_COMPRESS", "true")
	t.Setenv("SEGLOG_MAX_FILE_SIZE_MB", "2")
	t.Setenv("SEGLOG_FLUSH_INTERVAL", "250ms")
	t.Setenv("SEGLOG_XLSX_MAX_ROWS", "not-a-number")

	cfg := Default()
	FromEnv(&cfg)

	assert.Equal(t, "/tmp/seglog", cfg.Logger.Directory)
	assert.Equal(t, 7, cfg.Logger.QueueSize)
	assert.True(t, cfg.Logger.DefaultCompress)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxFileSize())
	assert.Equal(t, 250*time.Millisecond, cfg.Logger.FlushInterval)
	assert.Equal(t, 50000, cfg.Sheet.Rows, "invalid values are ignored")
}
