// Package metrics exposes experiment counters in the Prometheus text format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verte-zerg/entrylab/internal/model"
)

const namespace = "entrylab"

// Metrics holds the instrument's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsAbandoned prometheus.Counter
	trialsCompleted   prometheus.Counter
	trialDuration     prometheus.Histogram
	inputActions      *prometheus.CounterVec
	strokes           *prometheus.CounterVec
	templates         prometheus.Gauge
	phrasePool        prometheus.Gauge
	loadErrors        *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_started_total",
			Help: "Sessions started.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_completed_total",
			Help: "Sessions that ran every trial to completion.",
		}),
		sessionsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_abandoned_total",
			Help: "Sessions exited before the last trial completed.",
		}),
		trialsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "trials_completed_total",
			Help: "Trials completed.",
		}),
		trialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "trial_duration_seconds",
			Help:    "Time from trial start to completion.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		inputActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "input_actions_total",
			Help: "Normalized input events by action.",
		}, []string{"action"}),
		strokes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "gesture_strokes_total",
			Help: "Finished palm strokes by outcome.",
		}, []string{"outcome"}),
		templates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "gesture_templates",
			Help: "Gesture templates currently loaded.",
		}),
		phrasePool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "phrase_pool_size",
			Help: "Candidate phrases currently loaded.",
		}),
		loadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "load_errors_total",
			Help: "Failed asset loads by asset.",
		}, []string{"asset"}),
	}
	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsCompleted,
		m.sessionsAbandoned,
		m.trialsCompleted,
		m.trialDuration,
		m.inputActions,
		m.strokes,
		m.templates,
		m.phrasePool,
		m.loadErrors,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SessionStarted counts a started session.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// SessionAbandoned counts a session exited early.
func (m *Metrics) SessionAbandoned() {
	if m == nil {
		return
	}
	m.sessionsAbandoned.Inc()
}

// TrialCompleted implements session.Observer.
func (m *Metrics) TrialCompleted(t model.Trial) {
	if m == nil {
		return
	}
	m.trialsCompleted.Inc()
	if !t.StartedAt.IsZero() && !t.EndedAt.Before(t.StartedAt) {
		m.trialDuration.Observe(t.EndedAt.Sub(t.StartedAt).Seconds())
	}
}

// SessionEnded implements session.Observer.
func (m *Metrics) SessionEnded(model.Session) {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
}

// InputAction counts one normalized input by its action name.
func (m *Metrics) InputAction(action string) {
	if m == nil {
		return
	}
	m.inputActions.WithLabelValues(action).Inc()
}

// Stroke counts one finished palm stroke by outcome.
func (m *Metrics) Stroke(outcome string) {
	if m == nil {
		return
	}
	m.strokes.WithLabelValues(outcome).Inc()
}

// SetTemplates records the template library size.
func (m *Metrics) SetTemplates(n int) {
	if m == nil {
		return
	}
	m.templates.Set(float64(n))
}

// SetPhrasePool records the phrase pool size.
func (m *Metrics) SetPhrasePool(n int) {
	if m == nil {
		return
	}
	m.phrasePool.Set(float64(n))
}

// LoadFailed counts a failed asset load.
func (m *Metrics) LoadFailed(asset string) {
	if m == nil {
		return
	}
	m.loadErrors.WithLabelValues(asset).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics and /health.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, m *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background. It returns the
// bound address.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	return ln.Addr().String(), nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
