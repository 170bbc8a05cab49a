package engine

import (
	"os"
	"time"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/storage"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// runWriter is the only goroutine touching segment files. It appends queued
// entries in FIFO order, rotates when the next entry would overflow the
// current segment, and flushes on a ticker. It returns when the queue is
// closed and drained.
func (p *Pipeline) runWriter(w storage.SegmentWriter) error {
	interval := p.cfg.Logger.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTick := time.Now()
	lastWritten := p.stats.written.Load()

	for {
		select {
		case e, ok := <-p.queue:
			if !ok {
				return p.seal(w)
			}
			w = p.write(w, e)

		case now := <-ticker.C:
			if w != nil {
				if err := w.Flush(); err != nil {
					p.stats.writeErrors.Add(1)
					p.logger.WithField("action", "writer_flush").
						WithField("segment", w.Path()).
						WithError(err).
						Error("failed to flush segment")
				}
			}

			written := p.stats.written.Load()
			rate := float64(written-lastWritten) / now.Sub(lastTick).Seconds()
			p.stats.setRate(rate)
			if written != lastWritten {
				p.logger.WithField("action", "writer_throughput").
					WithField("records", written-lastWritten).
					Debugf("%.1f records/s", rate)
			}
			lastTick, lastWritten = now, written
		}
	}
}

// write appends e, rotating first when needed. It returns the writer to use
// for the next entry, which is nil when a rotation failed; the next entry
// retries it.
func (p *Pipeline) write(w storage.SegmentWriter, e codec.Entry) storage.SegmentWriter {
	if w == nil || !w.Fits(e) {
		next, err := p.rotate(w)
		if err != nil {
			p.stats.writeErrors.Add(1)
			p.stats.lost.Add(1)
			p.logger.WithField("action", "segment_rotate").
				WithError(err).
				Error("failed to rotate segment, record lost")
			return nil
		}
		w = next
	}

	if err := w.Append(e); err != nil {
		p.stats.writeErrors.Add(1)
		p.stats.lost.Add(1)
		p.logger.WithField("action", "writer_append").
			WithField("segment", w.Path()).
			WithError(err).
			Error("failed to append record")
		return w
	}
	p.stats.written.Add(1)
	p.stats.bytes.Add(int64(e.Size()))
	return w
}

// rotate seals the current segment, opens the next one with the header and
// wakes the compactor. The old segment is closed before the new one becomes
// current so the compactor only ever sees sealed files.
func (p *Pipeline) rotate(old storage.SegmentWriter) (storage.SegmentWriter, error) {
	if old != nil {
		if err := old.Close(); err != nil {
			p.stats.writeErrors.Add(1)
			p.logger.WithField("action", "segment_rotate").
				WithField("segment", old.Path()).
				WithError(err).
				Error("failed to seal segment")
		}
	}

	path, err := p.segments.NewSegment()
	if err != nil {
		return nil, err
	}
	w, err := storage.OpenWriter(p.format, path, p.header, p.limits())
	if err != nil {
		// deferred segments may not exist yet
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.WithField("action", "segment_rotate").
				WithField("segment", path).
				WithError(rmErr).
				Warn("failed to remove unopened segment")
		}
		return nil, errors.Wrapf(err, "open segment %s", path)
	}

	p.stats.rotations.Add(1)
	if old != nil {
		p.logger.WithField("action", "segment_rotate").
			WithField("sealed", old.Path()).
			WithField("segment", path).
			Infof("rotated after %d", old.Written())
	}
	if p.compress {
		p.signalCompactor()
	}
	return w, nil
}

func (p *Pipeline) seal(w storage.SegmentWriter) error {
	if w == nil {
		return nil
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "seal segment %s", w.Path())
	}
	return nil
}

// closeErrors combines the shutdown errors, ignoring nils.
func closeErrors(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
