package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"go.uber.org/zap"
)

const serviceName = "textbook-rag-tutor"

type HandlerConfig struct {
	AskTimeout   time.Duration
	LearnTimeout time.Duration
}

type Handler struct {
	ragService  *rag.Service
	wordService *rag.WordService
	// counter is nil when the store cannot report its size.
	counter rag.Counter
	cfg     HandlerConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewHandler(ragService *rag.Service, wordService *rag.WordService, counter rag.Counter, cfg HandlerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AskTimeout == 0 {
		cfg.AskTimeout = 2 * time.Minute
	}
	if cfg.LearnTimeout == 0 {
		cfg.LearnTimeout = 60 * time.Second
	}
	return &Handler{
		ragService:  ragService,
		wordService: wordService,
		counter:     counter,
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "http_handler")),
		now:         time.Now,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type healthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Subject      string `json:"subject"`
	Database     string `json:"database"`
	TotalVectors *int   `json:"total_vectors,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// APIHealth reports the backing store. A failing count degrades the status
// but still answers 200 so the UI can render it.
func (h *Handler) APIHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Subject:   h.ragService.Subject(),
		Database:  h.ragService.Database(),
		Timestamp: h.timestamp(),
	}
	if h.counter != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		n, err := h.counter.Count(ctx)
		if err != nil {
			h.logger.Warn("vector count failed", zap.Error(err))
			resp.Status = "degraded"
		} else {
			resp.TotalVectors = &n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req rag.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.AskTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, h.ragService.Ask(ctx, req))
}

type learnRequest struct {
	Topic string `json:"topic"`
	Lang  string `json:"lang,omitempty"`
}

type learnResponse struct {
	Success bool   `json:"success"`
	Topic   string `json:"topic"`
	rag.Sections
	Answer       string              `json:"answer"`
	Sources      []rag.SourceSummary `json:"sources"`
	Outcome      rag.Outcome         `json:"outcome"`
	ResponseTime float64             `json:"responseTime"`
	Database     string              `json:"database"`
	Timestamp    string              `json:"timestamp"`
}

// Learn answers a topic and splits the answer into its sections.
func (h *Handler) Learn(w http.ResponseWriter, r *http.Request) {
	if !h.subjectMatches(w, r) {
		return
	}
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "Topic is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.LearnTimeout)
	defer cancel()

	res := h.ragService.Ask(ctx, rag.AskRequest{Query: req.Topic, Lang: req.Lang})
	status := http.StatusOK
	if res.Outcome == rag.OutcomeFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, learnResponse{
		Success:      res.Outcome == rag.OutcomeAnswered,
		Topic:        res.Query,
		Sections:     rag.ParseSections(res.Answer),
		Answer:       res.Answer,
		Sources:      res.Sources,
		Outcome:      res.Outcome,
		ResponseTime: res.TimingMS,
		Database:     res.Database,
		Timestamp:    h.timestamp(),
	})
}

type wordRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

type wordResponse struct {
	Success bool `json:"success"`
	*rag.WordResult
	Timestamp string `json:"timestamp"`
}

func (h *Handler) WordExplanation(w http.ResponseWriter, r *http.Request) {
	if !h.subjectMatches(w, r) {
		return
	}
	var req wordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	res, err := h.wordService.Explain(r.Context(), req.Word, req.Context)
	if err != nil {
		var ie *rag.InputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, "Word is required")
			return
		}
		h.logger.Error("word explanation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, wordResponse{
		Success:    res.Outcome == rag.OutcomeAnswered,
		WordResult: res,
		Timestamp:  h.timestamp(),
	})
}

func (h *Handler) subjectMatches(w http.ResponseWriter, r *http.Request) bool {
	subject := mux.Vars(r)["subject"]
	if subject != "" && !strings.EqualFold(subject, h.ragService.Subject()) {
		writeError(w, http.StatusNotFound, "unknown subject: "+subject)
		return false
	}
	return true
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
