// Package http serves the operational endpoints: health, readiness and
// Prometheus metrics.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/daslui/telegram-music-bot/internal/core"
)

// ReadyFunc reports whether the bot can queue tracks right now.
type ReadyFunc func() bool

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

// Metrics implements core.MetricsRecorder. Each Server carries its own
// registry so tests can build servers side by side without collisions.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	VotesTotal      *prometheus.CounterVec
	QueueAddsTotal  prometheus.Counter
	PendingRequests prometheus.Gauge
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musicbot_requests_total",
				Help: "Total number of track requests processed",
			},
			[]string{"outcome"},
		),
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "musicbot_votes_total",
				Help: "Total number of vote callbacks processed",
			},
			[]string{"outcome"},
		),
		QueueAddsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "musicbot_queue_adds_total",
				Help: "Total number of tracks appended to the playback queue",
			},
		),
		PendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "musicbot_pending_requests",
				Help: "Number of requests waiting for a moderator vote",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.VotesTotal,
		m.QueueAddsTotal,
		m.PendingRequests,
	)
	return m
}

func (m *Metrics) RequestHandled(outcome string) {
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) VoteHandled(outcome string) {
	m.VotesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QueueAppended() {
	m.QueueAddsTotal.Inc()
}

func (m *Metrics) SetPendingRequests(n int) {
	m.PendingRequests.Set(float64(n))
}

func NewServer(config *core.ServerConfig, ready ReadyFunc, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"musicbot"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unauthorized","service":"musicbot"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"musicbot"}`))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

// Metrics returns the server's recorder for wiring into the workflow.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
