package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/chaoslab/internal/sim"
)

// Collector exports simulation counters to Prometheus.
type Collector struct {
	steps       *prometheus.CounterVec
	divergences *prometheus.CounterVec
	reseeds     *prometheus.CounterVec
	crossings   *prometheus.CounterVec
	live        *prometheus.GaugeVec
	sessions    prometheus.Gauge
	scans       *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chaoslab_steps_total",
			Help: "Ensemble sub-steps advanced.",
		}, []string{"model"}),
		divergences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chaoslab_divergences_total",
			Help: "Trajectories that produced a non-finite or escaped state.",
		}, []string{"model"}),
		reseeds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chaoslab_reseeds_total",
			Help: "Diverged trajectories restarted from the seeder.",
		}, []string{"model"}),
		crossings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chaoslab_section_crossings_total",
			Help: "Recorded Poincare section crossings.",
		}, []string{"model"}),
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chaoslab_live_trajectories",
			Help: "Trajectories still being stepped, per session.",
		}, []string{"session"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chaoslab_sessions",
			Help: "Open simulation sessions.",
		}),
		scans: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaoslab_scan_duration_seconds",
			Help:    "Wall time of bifurcation scans.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"model"}),
	}
	for _, col := range []prometheus.Collector{
		c.steps, c.divergences, c.reseeds, c.crossings, c.live, c.sessions, c.scans,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveTick records one tick report for a session running model.
func (c *Collector) ObserveTick(model, session string, r sim.TickReport) {
	c.steps.WithLabelValues(model).Add(float64(r.Steps))
	for _, d := range r.Divergences {
		c.divergences.WithLabelValues(model).Inc()
		if d.Reseeded {
			c.reseeds.WithLabelValues(model).Inc()
		}
	}
	c.live.WithLabelValues(session).Set(float64(r.Live))
}

func (c *Collector) ObserveCrossing(model string) {
	c.crossings.WithLabelValues(model).Inc()
}

func (c *Collector) ObserveScan(model string, d time.Duration) {
	c.scans.WithLabelValues(model).Observe(d.Seconds())
}

func (c *Collector) SessionOpened() { c.sessions.Inc() }

func (c *Collector) SessionClosed(session string) {
	c.sessions.Dec()
	c.live.DeleteLabelValues(session)
}
