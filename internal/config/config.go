// Package config holds the immutable settings a pipeline is built from.
package config

import (
	"os"
	"time"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/storage"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const mb = 1024 * 1024

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Storage Storage `yaml:"storage"`
	Logger  Logger  `yaml:"logger"`
	Sheet   Sheet   `yaml:"xlsxconfig"`
}

// Storage captures disk limits for the log directory.
type Storage struct {
	// ThresholdPercent refuses to start when the filesystem is at least this full.
	ThresholdPercent float64 `yaml:"threshold_percent"`
	// MaxDirectorySizeMB is the hard ceiling for all files in the log directory.
	MaxDirectorySizeMB float64 `yaml:"max_directory_size_mb"`
	// WarningPercent of the ceiling above which directory size is reported.
	WarningPercent float64 `yaml:"max_dir_warning_threshold"`
}

// Logger captures segment and queue settings.
type Logger struct {
	Directory        string        `yaml:"directory"`
	MaxFileSizeMB    float64       `yaml:"max_file_size_mb"`
	QueueSize        int           `yaml:"queue_size"`
	DefaultFileType  string        `yaml:"default_file_type"`
	DefaultCompress  bool          `yaml:"default_compress"`
	CompressionCodec string        `yaml:"compression_codec"`
	EnqueueTimeout   time.Duration `yaml:"enqueue_timeout"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
}

// Sheet captures tabular segment settings.
type Sheet struct {
	Rows int `yaml:"rows"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Storage: Storage{
			ThresholdPercent:   90,
			MaxDirectorySizeMB: 1024,
			WarningPercent:     80,
		},
		Logger: Logger{
			Directory:        "logs",
			MaxFileSizeMB:    64,
			QueueSize:        10000,
			DefaultFileType:  "csv",
			CompressionCodec: "gzip",
			EnqueueTimeout:   10 * time.Millisecond,
			FlushInterval:    time.Second,
		},
		Sheet: Sheet{
			Rows: 50000,
		},
	}
}

// Load reads configuration from a YAML file. If path is empty, returns defaults.
// Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// MaxFileSize is the segment size limit in bytes.
func (c Config) MaxFileSize() int64 {
	return int64(c.Logger.MaxFileSizeMB * mb)
}

// MaxDirectorySize is the directory ceiling in bytes.
func (c Config) MaxDirectorySize() int64 {
	return int64(c.Storage.MaxDirectorySizeMB * mb)
}

// WarningSize is the directory size in bytes above which a warning is logged.
func (c Config) WarningSize() int64 {
	return int64(float64(c.MaxDirectorySize()) * c.Storage.WarningPercent / 100)
}

// Validate rejects settings no pipeline can run with.
func (c Config) Validate() error {
	switch {
	case c.Logger.Directory == "":
		return errors.New("logger.directory must be set")
	case c.MaxFileSize() <= 0:
		return errors.New("logger.max_file_size_mb must be positive")
	case c.Logger.QueueSize <= 0:
		return errors.New("logger.queue_size must be positive")
	case c.Logger.EnqueueTimeout < 0:
		return errors.New("logger.enqueue_timeout must not be negative")
	case c.Logger.FlushInterval <= 0:
		return errors.New("logger.flush_interval must be positive")
	case c.MaxDirectorySize() <= 0:
		return errors.New("storage.max_directory_size_mb must be positive")
	case c.Storage.ThresholdPercent <= 0 || c.Storage.ThresholdPercent > 100:
		return errors.New("storage.threshold_percent must be in (0, 100]")
	case c.Storage.WarningPercent <= 0 || c.Storage.WarningPercent >= 100:
		return errors.New("storage.max_dir_warning_threshold must be in (0, 100)")
	case c.Sheet.Rows <= 0:
		return errors.New("xlsxconfig.rows must be positive")
	}

	if _, err := codec.ParseFormat(c.Logger.DefaultFileType); err != nil {
		return errors.Wrap(err, "logger.default_file_type")
	}
	if _, err := storage.ParseCodec(c.Logger.CompressionCodec); err != nil {
		return errors.Wrap(err, "logger.compression_codec")
	}
	return nil
}
