package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "booking"

// Recorder groups the engine's Prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	reservations  *prometheus.CounterVec
	releases      prometheus.Counter
	transitions   *prometheus.CounterVec
	matchDuration prometheus.Histogram
	eligible      prometheus.Histogram
	events        *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Provider reservation attempts by outcome.",
		}, []string{"outcome"}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Reservations released back to provider capacity.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed booking status transitions.",
		}, []string{"from", "to"}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent finding eligible providers.",
			Buckets:   prometheus.DefBuckets,
		}),
		eligible: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eligible_providers",
			Help:      "Number of eligible providers returned per match.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Booking events handed to the publisher by result.",
		}, []string{"type", "result"}),
	}

	reg.MustRegister(r.reservations, r.releases, r.transitions, r.matchDuration, r.eligible, r.events)
	return r
}

func (r *Recorder) ObserveReservation(outcome string) {
	if r == nil {
		return
	}
	r.reservations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveRelease() {
	if r == nil {
		return
	}
	r.releases.Inc()
}

func (r *Recorder) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) ObserveMatch(elapsed time.Duration, eligible int) {
	if r == nil {
		return
	}
	r.matchDuration.Observe(elapsed.Seconds())
	r.eligible.Observe(float64(eligible))
}

func (r *Recorder) ObserveEvent(eventType, result string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(eventType, result).Inc()
}
