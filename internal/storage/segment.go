package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SegmentOptions configures a SegmentManager.
type SegmentOptions struct {
	// Dir is created if missing.
	Dir string
	// Extension of new segment files, without the dot.
	Extension string
	// DeferCreate leaves file creation to the segment writer (tabular segments
	// are only materialized when saved).
	DeferCreate bool
	Codec       Codec
	// MaxDirSize is the ceiling enforced by ReclaimIfOverCeiling.
	MaxDirSize int64
	// WarnDirSize is the advisory threshold checked by MaybeWarn.
	WarnDirSize int64
	Logger      logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

// SegmentManager owns segment naming, directory accounting and space
// reclamation for one log directory. NewSegment is called by the writer
// goroutine only; the compactor reads Current to keep away from the live file.
type SegmentManager struct {
	dir         string
	ext         string
	deferCreate bool
	codec       Codec
	ceiling     int64
	warnAt      int64
	logger      logrus.FieldLogger
	now         func() time.Time

	seq     atomic.Uint64
	current atomic.Pointer[string]
	warn    *scanState
}

// NewSegmentManager prepares the directory and creates the first segment.
func NewSegmentManager(opts SegmentOptions) (*SegmentManager, error) {
	if opts.Dir == "" {
		return nil, errors.New("segment directory must be set")
	}
	if opts.Extension == "" {
		return nil, errors.New("segment extension must be set")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log directory %s", opts.Dir)
	}

	m := &SegmentManager{
		dir:         opts.Dir,
		ext:         strings.TrimPrefix(opts.Extension, "."),
		deferCreate: opts.DeferCreate,
		codec:       opts.Codec,
		ceiling:     opts.MaxDirSize,
		warnAt:      opts.WarnDirSize,
		logger:      opts.Logger,
		now:         opts.Now,
		warn:        newScanState(),
	}
	if _, err := m.NewSegment(); err != nil {
		return nil, err
	}
	return m, nil
}

// Dir returns the managed directory.
func (m *SegmentManager) Dir() string {
	return m.dir
}

// Current returns the path of the segment receiving writes.
func (m *SegmentManager) Current() string {
	if p := m.current.Load(); p != nil {
		return *p
	}
	return ""
}

// NewSegment makes a fresh segment current and returns its path.
// Filename format: log_{YYYYMMDD_HHMMSS_mmm}_{seq}.{ext}. The sequence number
// keeps names unique when rotations fall within the same millisecond.
func (m *SegmentManager) NewSegment() (string, error) {
	const attempts = 16

	for i := 0; i < attempts; i++ {
		seq := m.seq.Add(1)
		ts := strings.Replace(m.now().Format("20060102_150405.000"), ".", "_", 1)
		path := filepath.Join(m.dir, fmt.Sprintf("log_%s_%06d.%s", ts, seq, m.ext))

		if m.deferCreate {
			if _, err := os.Lstat(path); err == nil {
				continue
			}
			m.current.Store(&path)
			return path, nil
		}

		// current is switched before the file exists so the compactor never
		// sees the new segment unprotected
		m.current.Store(&path)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "create segment %s", path)
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrapf(err, "create segment %s", path)
		}
		return path, nil
	}
	return "", errors.Errorf("no free segment name in %s after %d attempts", m.dir, attempts)
}

type fileEntry struct {
	name    string
	path    string
	size    int64
	modTime time.Time
}

// files lists the regular files directly inside the directory, oldest first.
func (m *SegmentManager) files() ([]fileEntry, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	out := make([]fileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, fileEntry{
			name:    entry.Name(),
			path:    filepath.Join(m.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].modTime.Equal(out[j].modTime) {
			return out[i].modTime.Before(out[j].modTime)
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

// DirectorySize sums the sizes of all regular files in the directory,
// compressed segments included.
func (m *SegmentManager) DirectorySize() (int64, error) {
	files, err := m.files()
	if err != nil {
		return 0, err
	}
	var size int64
	for _, f := range files {
		size += f.size
	}
	return size, nil
}

// CompressOldest compresses the oldest sealed, uncompressed segment and
// removes the original. A segment that fails is logged and skipped, so one
// bad file cannot hold back newer ones. It returns the compressed path, or ""
// when no segment could be compressed; the error then carries every failure.
func (m *SegmentManager) CompressOldest() (string, error) {
	files, err := m.files()
	if err != nil {
		return "", err
	}

	var failed *multierror.Error
	current := m.Current()
	for _, f := range files {
		if IsCompressed(f.name) || f.path == current {
			continue
		}

		dst, err := m.compress(f)
		if err != nil {
			m.logger.WithField("action", "segment_compress").
				WithField("segment", f.name).
				WithError(err).
				Warn("skipping segment that failed to compress")
			failed = multierror.Append(failed, err)
			continue
		}

		m.logger.WithField("action", "segment_compress").
			WithField("segment", f.name).
			WithField("codec", m.codec.String()).
			Debugf("compressed segment of %d bytes", f.size)
		return dst, nil
	}
	return "", failed.ErrorOrNil()
}

func (m *SegmentManager) compress(f fileEntry) (string, error) {
	// a compressed copy left by an interrupted pass is overwritten; the
	// original is still the complete data
	dst := f.path + m.codec.Suffix()
	if err := m.codec.compressFile(f.path, dst); err != nil {
		return "", errors.Wrapf(err, "compress %s", f.name)
	}

	// keep the data age so eviction stays oldest-first
	if err := os.Chtimes(dst, f.modTime, f.modTime); err != nil {
		m.logger.WithField("action", "segment_compress").
			WithField("segment", f.name).
			WithError(err).
			Debug("failed to carry the segment mtime over; eviction will order it by compression time")
	}
	if err := os.Remove(f.path); err != nil {
		return "", errors.Wrapf(err, "remove compressed original %s", f.name)
	}
	return dst, nil
}

// ReclaimIfOverCeiling deletes compressed segments oldest-first while the
// directory is at or above its ceiling. It fails with
// ErrCriticalStorageExceeded when no compressed segment is left to delete
// and the directory is still too large. It returns the number of deletions.
func (m *SegmentManager) ReclaimIfOverCeiling() (int, error) {
	size, err := m.DirectorySize()
	if err != nil {
		return 0, err
	}
	if size < m.ceiling {
		return 0, nil
	}

	files, err := m.files()
	if err != nil {
		return 0, err
	}

	current := m.Current()
	deleted := 0
	for _, f := range files {
		if size < m.ceiling {
			break
		}
		if !IsCompressed(f.name) || f.path == current {
			continue
		}
		if err := os.Remove(f.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return deleted, errors.Wrapf(err, "evict %s", f.name)
		}
		deleted++

		m.logger.WithField("action", "segment_evict").
			WithField("segment", f.name).
			Infof("evicted compressed segment of %d bytes", f.size)

		if size, err = m.DirectorySize(); err != nil {
			return deleted, err
		}
	}

	if size >= m.ceiling {
		return deleted, errors.Wrapf(ErrCriticalStorageExceeded, "%d bytes against a ceiling of %d", size, m.ceiling)
	}
	return deleted, nil
}

// MaybeWarn logs a warning when the directory is at or above the warning
// threshold. Repeated warnings back off. It reports whether the threshold
// is exceeded.
func (m *SegmentManager) MaybeWarn() bool {
	size, err := m.DirectorySize()
	if err != nil {
		m.logger.WithField("action", "dir_size_warning").WithError(err).
			Warn("failed to read log directory size")
		return false
	}

	if size < m.warnAt {
		m.warn.reset()
		return false
	}

	if time.Since(m.warn.lastWarning) > m.warn.getWarningInterval() {
		m.logger.WithField("action", "dir_size_warning").
			WithField("path", m.dir).
			Warnf("log directory at %d bytes, warning threshold %d, ceiling %d",
				size, m.warnAt, m.ceiling)
		m.warn.lastWarning = time.Now()
		m.warn.increaseWarningInterval()
	}
	return true
}

type scanState struct {
	backoffLevel int
	backoffs     []time.Duration
	lastWarning  time.Time
}

func newScanState() *scanState {
	return &scanState{backoffs: []time.Duration{
		0,
		30 * time.Second,
		2 * time.Minute,
		10 * time.Minute,
		time.Hour,
	}}
}

func (s *scanState) getWarningInterval() time.Duration {
	if s.backoffLevel >= len(s.backoffs) {
		return 12 * time.Hour
	}
	return s.backoffs[s.backoffLevel]
}

func (s *scanState) increaseWarningInterval() {
	if s.backoffLevel < len(s.backoffs) {
		s.backoffLevel++
	}
}

func (s *scanState) reset() {
	s.backoffLevel = 0
	s.lastWarning = time.Time{}
}
