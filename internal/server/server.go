// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/document"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/intake"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/ledger"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/metrics"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/syncer"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// HTTPServer exposes the sync engine's REST API
type HTTPServer struct {
	config         *config.ServerConfig
	server         *http.Server
	router         *mux.Router
	store          ledger.Store
	documents      document.Store
	orchestrator   *syncer.Orchestrator
	scheduler      *syncer.Scheduler
	decoder        *intake.Decoder
	metricsManager *metrics.Manager
	logger         *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.ServerConfig,
	store ledger.Store,
	documents document.Store,
	orchestrator *syncer.Orchestrator,
	scheduler *syncer.Scheduler,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         cfg,
		store:          store,
		documents:      documents,
		orchestrator:   orchestrator,
		scheduler:      scheduler,
		decoder:        intake.NewDecoder(),
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Profile endpoints
	api.HandleFunc("/profiles", s.createProfileHandler).Methods("POST")
	api.HandleFunc("/profiles", s.listProfilesHandler).Methods("GET")
	api.HandleFunc("/profiles/{id}", s.getProfileHandler).Methods("GET")
	api.HandleFunc("/profiles/{id}", s.updateProfileHandler).Methods("PUT")
	api.HandleFunc("/profiles/{id}/sync", s.syncProfileHandler).Methods("POST")

	// Sync endpoints
	api.HandleFunc("/sync/run", s.runSyncHandler).Methods("POST")
	api.HandleFunc("/sync/status", s.syncStatusHandler).Methods("GET")

	// Audit endpoints
	api.HandleFunc("/audit", s.listAuditHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	// Prime gauges so they appear on the first scrape
	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		s.updateComponentHealth()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Catch immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.metricsManager.UpdateSystemMetrics()
		s.updateComponentHealth()
	}
}

func (s *HTTPServer) updateComponentHealth() {
	prom := s.metricsManager.GetPrometheusMetrics()
	if s.store != nil {
		prom.UpdateComponentHealth("ledger", s.store.GetHealth().Healthy)
	}
	if s.scheduler != nil {
		prom.UpdateComponentHealth("scheduler", s.scheduler.IsRunning())
	}
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		if code := utils.ErrorCode(err); code != "" {
			errorResponse["code"] = code
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"status":  status,
			"message": message,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}

// statusForError maps application error codes to HTTP status codes
func statusForError(err error) int {
	switch utils.ErrorCode(err) {
	case utils.ErrCodeValidation:
		return http.StatusBadRequest
	case utils.ErrCodeNotFound:
		return http.StatusNotFound
	case utils.ErrCodeDuplicate, utils.ErrCodeLocked:
		return http.StatusConflict
	case utils.ErrCodeRemote, utils.ErrCodeDocument:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
