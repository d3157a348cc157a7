package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/observability/metrics"
)

type searchFake struct {
	result   *domain.SearchResult
	err      error
	question string
	keywords []string
	topK     int
}

func (f *searchFake) Search(_ context.Context, question string, keywords []string, topK int) (*domain.SearchResult, error) {
	f.question, f.keywords, f.topK = question, keywords, topK
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type keywordsFake struct {
	keywords []string
	err      error
	calls    int
}

func (f *keywordsFake) Extract(context.Context, string) ([]string, error) {
	f.calls++
	return f.keywords, f.err
}

type summarizerFake struct {
	summary string
	err     error
	brief   domain.IncidentBrief
}

func (f *summarizerFake) Summarize(_ context.Context, brief domain.IncidentBrief) (string, error) {
	f.brief = brief
	return f.summary, f.err
}

type sinkFake struct {
	events []domain.Event
}

func (f *sinkFake) Record(_ context.Context, event domain.Event) error {
	f.events = append(f.events, event)
	return nil
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func sampleResult() *domain.SearchResult {
	return &domain.SearchResult{
		Tier:     domain.TierDateText,
		FellBack: false,
		Results: []domain.RankedResult{{
			Document: domain.Document{
				RecordID:  "1042",
				StoreName: "강남점",
				Date:      "2023-03-07",
				Keywords:  []string{"POS", "결제"},
			},
			Score: 0.87654,
		}},
	}
}

func TestSearchDocumentsGeneratesKeywordsWhenAbsent(t *testing.T) {
	search := &searchFake{result: sampleResult()}
	keywords := &keywordsFake{keywords: []string{"2023", "POS"}}
	sink := &sinkFake{}
	handler := NewRouter(search, keywords, &summarizerFake{}, Options{Events: sink}).Handler()

	res := postJSON(t, handler, "/search/documents", map[string]any{"question": "2023년 POS 장애", "top_k": 5})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if keywords.calls != 1 || strings.Join(search.keywords, ",") != "2023,POS" || search.topK != 5 {
		t.Fatalf("unexpected search call: %+v", search)
	}

	var body struct {
		ResultCount int                    `json:"result_count"`
		Tier        string                 `json:"tier"`
		Fallback    bool                   `json:"fallback"`
		Keywords    []string               `json:"keywords"`
		Documents   []domain.DisplayRecord `json:"documents"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ResultCount != 1 || body.Tier != "date_text" || body.Fallback {
		t.Fatalf("unexpected response: %+v", body)
	}
	doc := body.Documents[0]
	if doc.RecordID != "1042" || doc.Accuracy != "87.65%" || doc.Keywords != "POS, 결제" || doc.Score != 0.87654 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != domain.EventSearch || sink.events[0].ResultCount != 1 {
		t.Fatalf("expected search event, got %+v", sink.events)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestSearchDocumentsUsesProvidedKeywords(t *testing.T) {
	search := &searchFake{result: &domain.SearchResult{Tier: domain.TierUnfiltered, Results: []domain.RankedResult{}}}
	keywords := &keywordsFake{}
	handler := NewRouter(search, keywords, &summarizerFake{}, Options{}).Handler()

	res := postJSON(t, handler, "/search/documents", map[string]any{"question": "q", "keywords": []string{}})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if keywords.calls != 0 {
		t.Fatalf("keyword generation must be skipped when keywords are supplied")
	}
	if !strings.Contains(res.Body.String(), `"documents":[]`) || !strings.Contains(res.Body.String(), `"keywords":[]`) {
		t.Fatalf("expected empty arrays, got %s", res.Body.String())
	}
}

func TestSearchDocumentsValidation(t *testing.T) {
	handler := NewRouter(&searchFake{}, &keywordsFake{}, &summarizerFake{}, Options{}).Handler()

	res := postJSON(t, handler, "/search/documents", map[string]any{"question": "  "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank question, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/search/documents", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/documents", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSearchDocumentsMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "encoding", err: domain.WrapError(domain.ErrEncoding, "encode", errors.New("down")), want: http.StatusBadGateway},
		{name: "store", err: domain.WrapError(domain.ErrStoreQuery, "search", errors.New("bad filter")), want: http.StatusBadGateway},
		{
			name: "temporary store",
			err:  domain.WrapError(domain.ErrStoreQuery, "search", domain.WrapError(domain.ErrTemporary, "qdrant.search", errors.New("503"))),
			want: http.StatusServiceUnavailable,
		},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := &sinkFake{}
			handler := NewRouter(&searchFake{err: tc.err}, nil, &summarizerFake{}, Options{Events: sink}).Handler()
			res := postJSON(t, handler, "/search/documents", map[string]any{"question": "q"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			if len(sink.events) != 0 {
				t.Fatalf("failed searches must not be logged as events")
			}
		})
	}
}

func TestSearchDocumentsKeywordFailureIs502(t *testing.T) {
	keywords := &keywordsFake{err: domain.WrapError(domain.ErrKeywordGeneration, "generate", errors.New("llm down"))}
	handler := NewRouter(&searchFake{}, keywords, &summarizerFake{}, Options{}).Handler()

	res := postJSON(t, handler, "/search/documents", map[string]any{"question": "q"})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
}

func TestSummarize(t *testing.T) {
	summarizer := &summarizerFake{summary: "강남점 POS 전원 불량으로 교체했습니다."}
	sink := &sinkFake{}
	handler := NewRouter(&searchFake{}, nil, summarizer, Options{Events: sink}).Handler()

	res := postJSON(t, handler, "/summarize", map[string]any{
		"content":         "POS 전원 불량",
		"store_name":      "강남점",
		"ocs_cause_major": "전원",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body["summary"] != summarizer.summary {
		t.Fatalf("unexpected body %v", body)
	}
	if summarizer.brief.StoreName != "강남점" || summarizer.brief.OCSCauseMajor != "전원" {
		t.Fatalf("unexpected brief %+v", summarizer.brief)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != domain.EventSummarize {
		t.Fatalf("expected summarize event, got %+v", sink.events)
	}
}

func TestSummarizeInvalidInputIs400(t *testing.T) {
	summarizer := &summarizerFake{err: domain.WrapError(domain.ErrInvalidInput, "summarize", errors.New("content is required"))}
	handler := NewRouter(&searchFake{}, nil, summarizer, Options{}).Handler()

	res := postJSON(t, handler, "/summarize", map[string]any{"content": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewRouter(&searchFake{result: sampleResult()}, nil, &summarizerFake{}, Options{
		Metrics: metrics.NewHTTPServerMetrics(serviceName),
	}).Handler()

	_ = postJSON(t, handler, "/search/documents", map[string]any{"question": "q", "keywords": []string{"2023", "POS"}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()
	for _, want := range []string{
		`retailtech_search_requests_total{fallback="false",service="api",tier="date_text"} 1`,
		`retailtech_search_keyword_category_total{category="year",service="api"} 1`,
		`retailtech_search_keyword_category_total{category="text",service="api"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in metrics output", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(&searchFake{}, nil, &summarizerFake{}, Options{}).Handler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	handler := NewRouter(&searchFake{}, &keywordsFake{}, &summarizerFake{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected caller request id, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := rec.Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}
