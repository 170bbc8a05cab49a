// Package engine runs the ingestion pipeline: records are encoded on the
// caller's goroutine, queued on a bounded channel, and written to rotating
// segments by a single writer goroutine while a compactor goroutine
// compresses and evicts sealed segments.
package engine

import (
	"sync"
	"time"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/config"
	"github.com/coffersTech/seglog/internal/model"
	"github.com/coffersTech/seglog/internal/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle position of a Pipeline.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to logrus.New().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRegisterer registers the pipeline metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Pipeline) { p.registerer = reg }
}

// WithDiskUsage replaces the filesystem query used by the preflight check.
func WithDiskUsage(fn storage.DiskUsageFunc) Option {
	return func(p *Pipeline) { p.diskUsage = fn }
}

// Pipeline is one logger instance.
type Pipeline struct {
	cfg        config.Config
	id         string
	logger     logrus.FieldLogger
	registerer prometheus.Registerer
	diskUsage  storage.DiskUsageFunc
	parsers    fastjson.ParserPool

	// mu guards the lifecycle fields below. Publish holds it shared for the
	// bounded enqueue attempt; Stop holds it exclusively to close the queue.
	mu       sync.RWMutex
	state    State
	format   codec.Format
	compress bool
	encoder  codec.Encoder
	schema   model.Schema
	header   codec.Entry
	segments *storage.SegmentManager
	group    *errgroup.Group
	stopErr  error

	queue chan codec.Entry
	wake  chan struct{}
	done  chan struct{}

	critical     chan struct{}
	criticalOnce sync.Once
	criticalErr  error

	stats counters
}

// New builds an uninitialized pipeline from cfg.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	p := &Pipeline{
		cfg:      cfg,
		id:       uuid.NewString(),
		logger:   logrus.New(),
		queue:    make(chan codec.Entry, cfg.Logger.QueueSize),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		critical: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("pipeline", p.id)

	if p.registerer != nil {
		p.registerMetrics(p.registerer)
	}
	return p, nil
}

// ID identifies the pipeline in logs and metrics.
func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Schema returns a copy of the schema, or nil when none is set.
func (p *Pipeline) Schema() model.Schema {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.schema == nil {
		return nil
	}
	return append(model.Schema(nil), p.schema...)
}

// CurrentSegment returns the path of the segment receiving writes.
func (p *Pipeline) CurrentSegment() string {
	p.mu.RLock()
	segments := p.segments
	p.mu.RUnlock()
	if segments == nil {
		return ""
	}
	return segments.Current()
}

// Initialize runs the preflight storage check and prepares the first
// segment. The pipeline stays uninitialized when the check fails.
func (p *Pipeline) Initialize(format codec.Format, compress bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUninitialized {
		return errors.Wrapf(ErrAlreadyInitialized, "state %s", p.state)
	}

	enc, err := codec.For(format)
	if err != nil {
		return err
	}
	zc, err := storage.ParseCodec(p.cfg.Logger.CompressionCodec)
	if err != nil {
		return err
	}

	dir := p.cfg.Logger.Directory
	du, err := storage.Guard{
		Path:             dir,
		ThresholdPercent: p.cfg.Storage.ThresholdPercent,
		Usage:            p.diskUsage,
	}.Check()
	if err != nil {
		p.logger.WithField("action", "storage_check").
			WithField("path", dir).
			WithError(err).
			Warn("refusing to initialize")
		return err
	}
	p.logger.WithField("action", "storage_check").
		WithField("path", dir).
		Debugf("%s", du.String())

	segments, err := storage.NewSegmentManager(storage.SegmentOptions{
		Dir:         dir,
		Extension:   format.Extension(),
		DeferCreate: format == codec.Tabular,
		Codec:       zc,
		MaxDirSize:  p.cfg.MaxDirectorySize(),
		WarnDirSize: p.cfg.WarningSize(),
		Logger:      p.logger,
	})
	if err != nil {
		return err
	}

	p.format = format
	p.compress = compress
	p.encoder = enc
	p.segments = segments
	p.state = StateInitialized

	p.logger.WithField("action", "initialize").
		WithField("format", format.String()).
		WithField("compress", compress).
		WithField("segment", segments.Current()).
		Info("pipeline initialized")
	return nil
}

// InitializeDefault initializes with the configured default format and
// compression flag.
func (p *Pipeline) InitializeDefault() error {
	format, err := codec.ParseFormat(p.cfg.Logger.DefaultFileType)
	if err != nil {
		return err
	}
	return p.Initialize(format, p.cfg.Logger.DefaultCompress)
}

// SetSchema fixes the field names and builds the segment header. It can be
// called once, between Initialize and Start.
func (p *Pipeline) SetSchema(names ...string) error {
	if len(names) == 0 {
		return ErrEmptySchema
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.state == StateUninitialized:
		return ErrNotInitialized
	case p.state != StateInitialized:
		return errors.Wrapf(ErrSchemaFrozen, "state %s", p.state)
	case p.schema != nil:
		return errors.Wrap(ErrSchemaFrozen, "schema already set")
	}

	schema := append(model.Schema(nil), names...)
	header, err := p.encoder.Header(schema)
	if err != nil {
		return err
	}
	p.schema = schema
	p.header = header
	return nil
}

// Start launches the writer goroutine and, when compression is enabled, the
// compactor goroutine.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	w, err := storage.OpenWriter(p.format, p.segments.Current(), p.header, p.limits())
	if err != nil {
		return errors.Wrapf(err, "open segment %s", p.segments.Current())
	}

	p.group = new(errgroup.Group)
	p.group.Go(func() error {
		return p.runWriter(w)
	})
	if p.compress {
		p.group.Go(func() error {
			p.runCompactor()
			return nil
		})
	}
	p.state = StateRunning

	p.logger.WithField("action", "start").
		WithField("format", p.format.String()).
		Info("pipeline started")
	return nil
}

// Stop refuses further records, waits for the writer to drain the queue and
// seal the current segment, and stops the compactor. It returns the writer's
// shutdown error combined with any critical storage error. Stop is idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	switch p.state {
	case StateStopped:
		err := p.stopErr
		p.mu.Unlock()
		return err
	case StateRunning:
	default:
		p.state = StateStopped
		p.mu.Unlock()
		return nil
	}
	p.state = StateStopped
	close(p.queue)
	close(p.done)
	group := p.group
	p.mu.Unlock()

	err := closeErrors(group.Wait(), p.Err())

	p.mu.Lock()
	p.stopErr = err
	p.mu.Unlock()

	p.logger.WithField("action", "stop").
		WithField("dropped", p.stats.dropped.Load()).
		WithField("written", p.stats.written.Load()).
		Info("pipeline stopped")
	return err
}

// Critical is closed once the log directory could not be brought under its
// ceiling. From then on Publish refuses records and the owner should Stop.
func (p *Pipeline) Critical() <-chan struct{} {
	return p.critical
}

// Err returns the critical storage error, if one occurred.
func (p *Pipeline) Err() error {
	select {
	case <-p.critical:
		return p.criticalErr
	default:
		return nil
	}
}

func (p *Pipeline) markCritical(err error) {
	p.criticalOnce.Do(func() {
		p.criticalErr = err
		close(p.critical)
		p.logger.WithField("action", "critical_storage").
			WithField("path", p.cfg.Logger.Directory).
			WithError(err).
			Error("log directory over its ceiling after evicting every compressed segment; refusing new records")
	})
}

func (p *Pipeline) limits() storage.Limits {
	return storage.Limits{
		MaxBytes: p.cfg.MaxFileSize(),
		MaxRows:  p.cfg.Sheet.Rows,
	}
}

func (p *Pipeline) signalCompactor() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// enqueue hands e to the writer, waiting at most the configured enqueue
// timeout. A record that cannot be queued is dropped and counted.
func (p *Pipeline) enqueue(e codec.Entry) {
	select {
	case p.queue <- e:
		p.stats.published.Add(1)
		return
	default:
	}

	if timeout := p.cfg.Logger.EnqueueTimeout; timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case p.queue <- e:
			p.stats.published.Add(1)
			return
		case <-t.C:
		}
	}

	if p.stats.dropped.Add(1) == 1 {
		p.logger.WithField("action", "queue_full").
			Warn("queue full, dropping records")
	}
}
