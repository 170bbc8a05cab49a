package engine

import (
	"github.com/pkg/errors"
)

// runCompactor waits for rotation signals. Each wake compresses every sealed
// segment still uncompressed, then evicts compressed segments while the
// directory is over its ceiling. Signals that arrive while a pass is running
// collapse into one follow-up pass.
func (p *Pipeline) runCompactor() {
	p.logger.WithField("action", "compactor").Debug("compactor started")

	for {
		select {
		case <-p.done:
			p.logger.WithField("action", "compactor").Debug("compactor stopped")
			return
		case <-p.wake:
			p.compact()
		}
	}
}

func (p *Pipeline) compact() {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		path, err := p.segments.CompressOldest()
		if err != nil {
			p.logger.WithField("action", "segment_compress").
				WithError(err).
				Error("no sealed segment could be compressed")
			break
		}
		if path == "" {
			break
		}
		p.stats.compressed.Add(1)
	}

	evicted, err := p.segments.ReclaimIfOverCeiling()
	p.stats.evicted.Add(int64(evicted))
	if err != nil {
		if errors.Is(err, ErrCriticalStorageExceeded) {
			p.markCritical(err)
		} else {
			p.logger.WithField("action", "segment_evict").
				WithError(err).
				Error("failed to reclaim space")
		}
	}

	p.segments.MaybeWarn()
}
