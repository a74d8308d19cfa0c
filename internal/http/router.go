package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/metrics"
	"go.uber.org/zap"
)

type RouterConfig struct {
	CORSOrigins []string
	// Metrics is nil when /metrics is disabled.
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(recoveryMiddleware(logger))
	if cfg.Metrics != nil {
		r.Use(metricsMiddleware(cfg.Metrics))
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(loggingMiddleware(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.APIHealth).Methods(http.MethodGet)
	r.HandleFunc("/ask", h.Ask).Methods(http.MethodPost)

	api := r.PathPrefix("/api/{subject}").Subrouter()
	api.HandleFunc("/learn", h.Learn).Methods(http.MethodPost)
	api.HandleFunc("/word-explanation", h.WordExplanation).Methods(http.MethodPost)

	// CORS wraps the router so preflight requests never reach method matching.
	return corsMiddleware(cfg.CORSOrigins)(r)
}
