package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session lifecycle metrics.
// A nil *Metrics records nothing.
type Metrics struct {
	LoginsTotal         *prometheus.CounterVec
	LogoutsTotal        prometheus.Counter
	ProfileFetchesTotal *prometheus.CounterVec
	UnauthorizedTotal   *prometheus.CounterVec
	Authenticated       prometheus.Gauge
}

// NewMetrics creates and registers the session metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LoginsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "session",
				Name:      "logins_total",
				Help:      "Total login attempts",
			},
			[]string{"result"}, // ok/invalid/rejected/unreachable/error
		),
		LogoutsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "session",
				Name:      "logouts_total",
				Help:      "Total logouts",
			},
		),
		ProfileFetchesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "session",
				Name:      "profile_fetches_total",
				Help:      "Total profile fetches",
			},
			[]string{"result"}, // ok/unchanged/not_found/error
		),
		UnauthorizedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "passabola",
				Subsystem: "session",
				Name:      "unauthorized_total",
				Help:      "Protected calls rejected with 401",
			},
			[]string{"policy"},
		),
		Authenticated: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "passabola",
				Subsystem: "session",
				Name:      "authenticated",
				Help:      "1 if the session is logged in",
			},
		),
	}
}

func (m *Metrics) login(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) logout() {
	if m == nil {
		return
	}
	m.LogoutsTotal.Inc()
}

func (m *Metrics) profileFetch(result string) {
	if m == nil {
		return
	}
	m.ProfileFetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) unauthorized(policy UnauthorizedPolicy) {
	if m == nil {
		return
	}
	m.UnauthorizedTotal.WithLabelValues(string(policy)).Inc()
}

func (m *Metrics) setAuthenticated(loggedIn bool) {
	if m == nil {
		return
	}
	if loggedIn {
		m.Authenticated.Set(1)
		return
	}
	m.Authenticated.Set(0)
}
