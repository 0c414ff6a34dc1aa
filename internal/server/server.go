package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/utcc/social-mentions/internal/config"
)

// Server is the dashboard HTTP API
type Server struct {
	config    *config.Config
	dashboard Dashboard
	backend   Backend
	router    *mux.Router
	server    *http.Server
}

// NewServer wires the routes; the handler chain is CORS, request logging, router
func NewServer(cfg *config.Config, dashboard Dashboard, backend Backend) *Server {
	s := &Server{
		config:    cfg,
		dashboard: dashboard,
		backend:   backend,
		router:    mux.NewRouter(),
	}
	s.routes()

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(requestLogger(s.router))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router

	// Health check, metrics and manual digest trigger
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	r.HandleFunc("/trigger", s.handleTrigger).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/mentions", s.handleMentions).Methods("GET")
	api.HandleFunc("/mentions/export", s.handleExport).Methods("GET")
	api.HandleFunc("/exports", s.handleListArchive).Methods("GET")
	api.HandleFunc("/exports/{name}", s.handleGetArchived).Methods("GET")
	api.HandleFunc("/exports/{name}", s.handleDeleteArchived).Methods("DELETE")
	api.HandleFunc("/mentions/{id}/sentiment", s.handleOverride).Methods("PUT")
	api.HandleFunc("/mentions/{id}/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/summary", s.handleSummary).Methods("GET")
	api.HandleFunc("/trends", s.handleTrends).Methods("GET")
	api.HandleFunc("/categories", s.handleCategories).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/reload", s.handleReload).Methods("POST")

	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods("PUT")
	api.HandleFunc("/alerts/scan", s.handleScanAlerts).Methods("POST")
	api.HandleFunc("/alerts/test", s.handleTestMail).Methods("POST")
	api.HandleFunc("/tweet-dates", s.handleTweetDates).Methods("GET")

	api.HandleFunc("/keywords", s.handleListKeywords).Methods("GET")
	api.HandleFunc("/keywords", s.handleCreateKeyword).Methods("POST")
	api.HandleFunc("/keywords/{id:[0-9]+}", s.handleUpdateKeyword).Methods("PUT")
	api.HandleFunc("/keywords/{id:[0-9]+}", s.handleDeleteKeyword).Methods("DELETE")
}

// Handler returns the full handler chain
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
