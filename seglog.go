// Package seglog writes structured log records to size-rotated segment files
// in CSV, fixed-binary, TLV or spreadsheet form. Sealed segments can be
// compressed in the background, and the oldest compressed segments are
// evicted to keep the log directory under a size ceiling.
//
// A Logger goes through Initialize, SetSchema, Start, any number of Publish
// calls, and Stop:
//
//	l, err := seglog.New(seglog.DefaultConfig())
//	...
//	err = l.Initialize(seglog.TLV, true)
//	err = l.SetSchema("ts", "level", "msg")
//	err = l.Start()
//	err = l.Publish(seglog.Record{time.Now().Unix(), "info", "hello"})
//	err = l.Stop()
package seglog

import (
	"log/slog"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/config"
	"github.com/coffersTech/seglog/internal/engine"
	"github.com/coffersTech/seglog/internal/model"
	"github.com/coffersTech/seglog/internal/slogbridge"
)

type (
	Logger  = engine.Pipeline
	Option  = engine.Option
	State   = engine.State
	Stats   = engine.Stats
	Config  = config.Config
	Format  = codec.Format
	Schema  = model.Schema
	Record  = model.Record
	Fields  = model.Fields
	Raw     = model.Raw
	Handler = slogbridge.Handler

	HandlerOptions = slogbridge.Options
)

const (
	CSV         = codec.CSV
	FixedBinary = codec.FixedBinary
	TLV         = codec.TLV
	Tabular     = codec.Tabular
)

var (
	ErrInsufficientStorage     = engine.ErrInsufficientStorage
	ErrCriticalStorageExceeded = engine.ErrCriticalStorageExceeded
	ErrNotInitialized          = engine.ErrNotInitialized
	ErrAlreadyInitialized      = engine.ErrAlreadyInitialized
	ErrNotRunning              = engine.ErrNotRunning
	ErrAlreadyStarted          = engine.ErrAlreadyStarted
	ErrStopped                 = engine.ErrStopped
	ErrEmptySchema             = engine.ErrEmptySchema
	ErrSchemaFrozen            = engine.ErrSchemaFrozen
	ErrSchemaMismatch          = engine.ErrSchemaMismatch
	ErrNoSchema                = engine.ErrNoSchema
	ErrUnsupportedType         = engine.ErrUnsupportedType
	ErrUnsupportedFormat       = engine.ErrUnsupportedFormat
	ErrRawUnsupported          = engine.ErrRawUnsupported
	ErrRecordTooLarge          = engine.ErrRecordTooLarge
)

var (
	WithLogger     = engine.WithLogger
	WithRegisterer = engine.WithRegisterer
	WithDiskUsage  = engine.WithDiskUsage
)

// New builds an uninitialized Logger.
func New(cfg Config, opts ...Option) (*Logger, error) {
	return engine.New(cfg, opts...)
}

func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML file over the defaults, then applies SEGLOG_*
// environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Config{}, err
	}
	config.FromEnv(&cfg)
	return cfg, cfg.Validate()
}

// ParseFormat maps csv, bin, tlv (or tlvbin) and xlsx to a Format.
func ParseFormat(name string) (Format, error) {
	return codec.ParseFormat(name)
}

// NewSlogHandler returns a slog.Handler publishing into l. The schema must
// already be set.
func NewSlogHandler(l *Logger, opts *HandlerOptions) slog.Handler {
	return slogbridge.NewHandler(l, opts)
}
