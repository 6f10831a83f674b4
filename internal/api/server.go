package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/FairForge/s3connector/internal/config"
	"github.com/FairForge/s3connector/internal/host"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags "-X ...api.Version=...".
var Version = "1.0.0"

// Server exposes a node registry over HTTP so an out-of-process host can
// list and execute the pack's nodes.
type Server struct {
	config     config.ServerConfig
	logger     *zap.Logger
	router     *mux.Router
	httpServer *http.Server
	registry   *host.Registry
	metrics    *Metrics
	schemas    *schemaCache

	startTime time.Time
}

func NewServer(cfg config.ServerConfig, reg *host.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:    cfg,
		logger:    logger,
		router:    mux.NewRouter(),
		registry:  reg,
		metrics:   NewMetrics(),
		schemas:   newSchemaCache(),
		startTime: time.Now(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/object_info", s.handleObjectInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/nodes/{class}/execute", s.handleExecute).Methods(http.MethodPost)
	s.router.HandleFunc("/nodes/{class}/is_changed", s.handleIsChanged).Methods(http.MethodGet)

	s.router.Use(chimiddleware.RequestID, s.loggingMiddleware, chimiddleware.Recoverer)

	// Use only wraps matched routes
	s.router.NotFoundHandler = s.unmatched(http.StatusNotFound, KindRouteNotFound)
	s.router.MethodNotAllowedHandler = s.unmatched(http.StatusMethodNotAllowed, KindMethodNotAllowed)
}

// Handler returns the routed handler with response compression, for tests
// and embedding.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// unmatched answers requests no route accepts, still logged and counted.
func (s *Server) unmatched(status int, kind string) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, ErrorResponse{
			Error: fmt.Sprintf("%s %s: %s", r.Method, r.URL.Path, http.StatusText(status)),
			Kind:  kind,
		})
	})
	return chimiddleware.RequestID(s.loggingMiddleware(h))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"nodes":   len(s.registry.Definitions()),
		"uptime":  time.Since(s.startTime).Seconds(),
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	version := map[string]string{
		"version": Version,
		"go":      runtime.Version(),
	}
	writeJSON(w, http.StatusOK, version)
}

// unmatchedRoute labels requests outside the route table so arbitrary
// paths do not grow the metric label set.
const unmatchedRoute = "unmatched"

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := unmatchedRoute
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		latency := time.Since(start)
		s.metrics.IncrementRequest(r.Method, route, status)
		s.metrics.RecordLatency(r.Method, route, latency.Seconds())

		s.logger.Info("request",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", latency),
		)
	})
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.Int("port", s.config.Port))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
