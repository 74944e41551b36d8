// Package server exposes the voucher workflow over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/lockerlink/internal/fulfillment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the locker service.
type Server struct {
	port     int
	manager  *fulfillment.Manager
	gatherer prometheus.Gatherer
	logger   *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance. Metrics are served from gatherer.
func New(cfg Config, manager *fulfillment.Manager, gatherer prometheus.Gatherer, logger *otelzap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:     cfg.Port,
		manager:  manager,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(s.requestLogger)

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout/locker", s.handleSelectLocker)
		r.Post("/checkout/validate", s.handleValidateCheckout)

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Put("/", s.handlePutOrder)
			r.Post("/placed", s.handleOrderPlaced)
			r.Post("/completed", s.handleOrderCompleted)
			r.Get("/vouchers", s.handleVoucherStatus)
			r.Post("/vouchers", s.handleCreateVouchers)
			r.Get("/labels", s.handleOrderLabels)
			r.Delete("/parcels/{parcelID}", s.handleCancelParcel)
		})

		r.Get("/parcels/{parcelID}/label", s.handleLabel)
		r.Get("/origins", s.handleOrigins)
		r.Get("/warehouses", s.handleWarehouses)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			s.logger.Ctx(r.Context()).Error("request completed", fields...)
		case ww.Status() >= http.StatusBadRequest:
			s.logger.Ctx(r.Context()).Warn("request completed", fields...)
		default:
			s.logger.Ctx(r.Context()).Debug("request completed", fields...)
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
