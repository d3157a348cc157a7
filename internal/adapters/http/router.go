package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
	"github.com/kirillkom/retailtech-search/internal/core/usecase"
	"github.com/kirillkom/retailtech-search/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 1 << 20
)

type Options struct {
	Metrics *metrics.HTTPServerMetrics
	Events  ports.EventSink
	Logger  *slog.Logger
}

type Router struct {
	search     ports.SearchService
	keywords   ports.KeywordExtractor
	summarizer ports.IncidentSummarizer

	events  ports.EventSink
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(
	search ports.SearchService,
	keywords ports.KeywordExtractor,
	summarizer ports.IncidentSummarizer,
	opts Options,
) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		search:     search,
		keywords:   keywords,
		summarizer: summarizer,
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(rt.accessLog)
	r.Use(chimiddleware.Recoverer)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Get("/healthz", rt.healthz)
	r.Post("/search/documents", rt.searchDocuments)
	r.Post("/summarize", rt.summarize)
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Question string   `json:"question"`
	Keywords []string `json:"keywords"`
	TopK     int      `json:"top_k"`
}

type searchResponse struct {
	ResultCount int                    `json:"result_count"`
	Tier        domain.Tier            `json:"tier"`
	Fallback    bool                   `json:"fallback"`
	Keywords    []string               `json:"keywords"`
	Documents   []domain.DisplayRecord `json:"documents"`
}

// searchDocuments runs the cascade. Keywords supplied by the caller are used
// as-is; when the field is absent they are generated from the question.
func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	ctx := r.Context()
	keywords := req.Keywords
	if keywords == nil && rt.keywords != nil {
		extracted, err := rt.keywords.Extract(ctx, req.Question)
		if err != nil {
			rt.writeError(w, r, "keyword_extraction_failed", err)
			return
		}
		keywords = extracted
	}
	if keywords == nil {
		keywords = []string{}
	}

	start := time.Now()
	result, err := rt.search.Search(ctx, req.Question, keywords, req.TopK)
	if err != nil {
		rt.writeError(w, r, "search_failed", err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, string(result.Tier), result.FellBack, len(result.Results), time.Since(start))
		for _, kw := range keywords {
			if strings.TrimSpace(kw) == "" {
				continue
			}
			rt.metrics.RecordKeywordCategory(serviceName, string(usecase.ClassifyKeyword(strings.TrimSpace(kw)).Category))
		}
	}
	usecase.RecordEvent(ctx, rt.events, usecase.NewSearchEvent(req.Question, keywords, result), rt.logger)

	docs := make([]domain.DisplayRecord, 0, len(result.Results))
	for _, res := range result.Results {
		docs = append(docs, domain.FormatForDisplay(res))
	}
	writeJSON(w, http.StatusOK, searchResponse{
		ResultCount: len(docs),
		Tier:        result.Tier,
		Fallback:    result.FellBack,
		Keywords:    keywords,
		Documents:   docs,
	})
}

func (rt *Router) summarize(w http.ResponseWriter, r *http.Request) {
	var brief domain.IncidentBrief
	if !decodeJSON(w, r, &brief) {
		return
	}

	ctx := r.Context()
	summary, err := rt.summarizer.Summarize(ctx, brief)
	if rt.metrics != nil && !domain.IsKind(err, domain.ErrInvalidInput) {
		rt.metrics.RecordSummary(serviceName, err)
	}
	if err != nil {
		rt.writeError(w, r, "summarize_failed", err)
		return
	}

	usecase.RecordEvent(ctx, rt.events, usecase.NewSummaryEvent(brief, summary), rt.logger)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, event string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.ErrorContext(r.Context(), event,
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
