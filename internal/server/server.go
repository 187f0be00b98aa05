package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/vincentbai/accounts-metrics/internal/database"
	"github.com/vincentbai/accounts-metrics/internal/models"
)

const defaultFlushLimit = 20

type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Logger          *zap.Logger
}

type Server struct {
	db       *database.Database
	address  string
	options  Options
	logger   *zap.Logger
	registry *prometheus.Registry
	counters *collectorCounters
	server   *http.Server
}

func NewServer(db *database.Database, address string, options Options) *Server {
	if options.ReadTimeout <= 0 {
		options.ReadTimeout = 5 * time.Second
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = 5 * time.Second
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = 30 * time.Second
	}
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = 1 << 20
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	return &Server{
		db:       db,
		address:  address,
		options:  options,
		logger:   logger,
		registry: registry,
		counters: newCollectorCounters(registry),
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, request *http.Request) {
	var payload models.Payload
	body := http.MaxBytesReader(w, request.Body, s.options.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		s.counters.rejected.WithLabelValues("bad_json").Inc()
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	flushID, err := s.db.InsertPayload(payload, time.Now())
	if errors.Is(err, database.ErrInvalidPayload) {
		s.counters.rejected.WithLabelValues("invalid").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("Database error", zap.Error(err))
		s.counters.rejected.WithLabelValues("storage").Inc()
		http.Error(w, "Failed to store metrics", http.StatusInternalServerError)
		return
	}

	s.counters.flushes.Inc()
	s.counters.events.Add(float64(len(payload.Events)))
	s.logger.Debug("Stored metrics flush",
		zap.String("flush_id", flushID),
		zap.Int("events", len(payload.Events)),
		zap.String("context", payload.Context),
	)
	w.WriteHeader(http.StatusNoContent) // success, no body
}

func (s *Server) handleFlushes(w http.ResponseWriter, request *http.Request) {
	limit := defaultFlushLimit
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	flushes, err := s.db.RecentFlushes(limit)
	if err != nil {
		s.logger.Error("Database error", zap.Error(err))
		http.Error(w, "Failed to read flushes", http.StatusInternalServerError)
		return
	}
	if flushes == nil {
		flushes = []database.StoredFlush{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(flushes); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) setupRoutes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", s.handleHealthz)
	router.Post("/metrics", s.handleMetrics)
	router.Get("/flushes", s.handleFlushes)
	router.Handle("/debug/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return otelhttp.NewHandler(router, "collector")
}

// Start serves until SIGINT or SIGTERM, or until ctx is done, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
	}

	shutdownContext, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Metrics collector listening", zap.String("address", s.address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- err
		}
		close(serveErrors)
	}()

	select {
	case err, ok := <-serveErrors:
		if ok {
			return err
		}
		return nil
	case <-shutdownContext.Done():
	}
	s.logger.Info("Shutting down server...")

	timeoutContext, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(timeoutContext); err != nil {
		return err
	}

	s.logger.Info("Server exited")
	return nil
}
