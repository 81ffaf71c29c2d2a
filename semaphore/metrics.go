package semaphore

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments a single Weighted semaphore.
// The methods of a nil *Metrics are no-ops.
type Metrics struct {
	capacity     prometheus.Gauge
	outstanding  prometheus.Gauge
	waiters      prometheus.Gauge
	acquisitions prometheus.Counter
	releases     prometheus.Counter
	waitSeconds  prometheus.Histogram
}

func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capacity_weight",
			Help:      "maximum total weight that can be held at once",
		}),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outstanding_weight",
			Help:      "total weight currently held",
		}),
		waiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "waiters",
			Help:      "number of goroutines blocked in Acquire",
		}),
		acquisitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "acquisitions_total",
			Help:      "number of successful acquisitions",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "releases_total",
			Help:      "number of released acquisitions",
		}),
		waitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "acquire_wait_seconds",
			Help:      "time spent in Acquire until the weight was granted",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.capacity,
		m.outstanding,
		m.waiters,
		m.acquisitions,
		m.releases,
		m.waitSeconds,
	}
}

func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := r.Register(c); err != nil {
			return errors.Wrap(err, "cannot register semaphore metrics")
		}
	}
	return nil
}

func (m *Metrics) setCapacity(capacity int64) {
	if m == nil {
		return
	}
	m.capacity.Set(float64(capacity))
}

func (m *Metrics) setWaiters(waiters int64) {
	if m == nil {
		return
	}
	m.waiters.Set(float64(waiters))
}

func (m *Metrics) acquired(outstanding int64, waited time.Duration) {
	if m == nil {
		return
	}
	m.outstanding.Set(float64(outstanding))
	m.acquisitions.Inc()
	m.waitSeconds.Observe(waited.Seconds())
}

func (m *Metrics) released(outstanding int64) {
	if m == nil {
		return
	}
	m.outstanding.Set(float64(outstanding))
	m.releases.Inc()
}
