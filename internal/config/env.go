package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays SEGLOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	floatVar("SEGLOG_STORAGE_THRESHOLD_PERCENT", &cfg.Storage.ThresholdPercent)
	floatVar("SEGLOG_MAX_DIRECTORY_SIZE_MB", &cfg.Storage.MaxDirectorySizeMB)
	floatVar("SEGLOG_DIRECTORY_WARNING_PERCENT", &cfg.Storage.WarningPercent)

	if v := os.Getenv("SEGLOG_DIRECTORY"); v != "" {
		cfg.Logger.Directory = v
	}
	floatVar("SEGLOG_MAX_FILE_SIZE_MB", &cfg.Logger.MaxFileSizeMB)
	if v := os.Getenv("SEGLOG_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Logger.QueueSize = n
		}
	}
	if v := os.Getenv("SEGLOG_DEFAULT_FILE_TYPE"); v != "" {
		cfg.Logger.DefaultFileType = v
	}
	if v := os.Getenv("SEGLOG_DEFAULT_COMPRESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logger.DefaultCompress = b
		}
	}
	if v := os.Getenv("SEGLOG_COMPRESSION_CODEC"); v != "" {
		cfg.Logger.CompressionCodec = v
	}
	durationVar("SEGLOG_ENQUEUE_TIMEOUT", &cfg.Logger.EnqueueTimeout)
	durationVar("SEGLOG_FLUSH_INTERVAL", &cfg.Logger.FlushInterval)
	if v := os.Getenv("SEGLOG_XLSX_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sheet.Rows = n
		}
	}
}

func floatVar(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func durationVar(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
