package engine

import (
	"math"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type counters struct {
	published   atomic.Int64
	dropped     atomic.Int64
	written     atomic.Int64
	lost        atomic.Int64
	writeErrors atomic.Int64
	bytes       atomic.Int64
	rotations   atomic.Int64
	compressed  atomic.Int64
	evicted     atomic.Int64
	rate        atomic.Uint64 // float64 bits
}

func (c *counters) setRate(v float64) {
	c.rate.Store(math.Float64bits(v))
}

func (c *counters) getRate() float64 {
	return math.Float64frombits(c.rate.Load())
}

// Stats is a point-in-time snapshot of pipeline activity.
type Stats struct {
	Published     int64   `json:"published"`
	Dropped       int64   `json:"dropped"`
	Written       int64   `json:"written"`
	Lost          int64   `json:"lost"`
	WriteErrors   int64   `json:"write_errors"`
	Bytes         int64   `json:"bytes"`
	Rotations     int64   `json:"rotations"`
	Compressed    int64   `json:"compressed"`
	Evicted       int64   `json:"evicted"`
	IngestionRate float64 `json:"ingestion_rate"` // records/sec over the last flush interval
	Queued        int     `json:"queued"`
}

// Dropped is the number of records discarded because the queue stayed full.
func (p *Pipeline) Dropped() int64 {
	return p.stats.dropped.Load()
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Published:     p.stats.published.Load(),
		Dropped:       p.stats.dropped.Load(),
		Written:       p.stats.written.Load(),
		Lost:          p.stats.lost.Load(),
		WriteErrors:   p.stats.writeErrors.Load(),
		Bytes:         p.stats.bytes.Load(),
		Rotations:     p.stats.rotations.Load(),
		Compressed:    p.stats.compressed.Load(),
		Evicted:       p.stats.evicted.Load(),
		IngestionRate: p.stats.getRate(),
		Queued:        len(p.queue),
	}
}

func (p *Pipeline) registerMetrics(reg prometheus.Registerer) {
	labels := prometheus.Labels{"pipeline": p.id}

	counter := func(name, help string, v *atomic.Int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "seglog",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(v.Load()) })
	}
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "seglog",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, fn)
	}

	collectors := []prometheus.Collector{
		counter("records_published_total", "Records accepted into the queue.", &p.stats.published),
		counter("records_dropped_total", "Records dropped because the queue was full.", &p.stats.dropped),
		counter("records_written_total", "Records appended to a segment.", &p.stats.written),
		counter("write_errors_total", "Segment write, flush and seal failures.", &p.stats.writeErrors),
		counter("bytes_written_total", "Encoded bytes appended to segments.", &p.stats.bytes),
		counter("segment_rotations_total", "Segments opened by rotation.", &p.stats.rotations),
		counter("segments_compressed_total", "Sealed segments compressed.", &p.stats.compressed),
		counter("segments_evicted_total", "Compressed segments deleted to stay under the ceiling.", &p.stats.evicted),
		gauge("queue_length", "Records waiting for the writer.", func() float64 {
			return float64(len(p.queue))
		}),
		gauge("ingestion_rate", "Records written per second over the last flush interval.", p.stats.getRate),
		gauge("directory_bytes", "Size of the log directory, compressed segments included.", func() float64 {
			p.mu.RLock()
			segments := p.segments
			p.mu.RUnlock()
			if segments == nil {
				return 0
			}
			size, err := segments.DirectorySize()
			if err != nil {
				return 0
			}
			return float64(size)
		}),
		gauge("critical", "1 once the log directory could not be kept under its ceiling.", func() float64 {
			if p.Err() != nil {
				return 1
			}
			return 0
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			p.logger.WithField("action", "metrics").WithError(err).
				Warn("failed to register collector")
		}
	}
}
