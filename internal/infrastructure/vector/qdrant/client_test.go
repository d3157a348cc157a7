package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

func TestSimilaritySearchSendsFilterAndDecodesHits(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/incidents/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":42,"score":0.91,"payload":{"store_name":"강남점","year":2023}},
			{"id":"6f1c1b5e-2a7d-4f8e-9a55-1d9e4b7c0a11","score":0.5,"payload":{}}
		],"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "incidents")
	filter := domain.Filter{Must: []domain.Condition{
		domain.MatchValue(domain.FieldYear, 2023),
		domain.NestedFilter(domain.Filter{Should: []domain.Condition{
			domain.MatchValue(domain.FieldStoreName, "강남점"),
			domain.MatchAny(domain.FieldKeywords, "강남점"),
		}}),
	}}
	hits, err := client.SimilaritySearch(context.Background(), []float32{0.1, 0.2}, filter, 300)
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}

	if len(hits) != 2 || hits[0].ID != "42" || hits[1].ID != "6f1c1b5e-2a7d-4f8e-9a55-1d9e4b7c0a11" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Score != 0.91 || hits[0].Payload.StringOr("store_name", "") != "강남점" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if year, _ := hits[0].Payload.Int("year"); year != 2023 {
		t.Fatalf("expected numeric year payload, got %v", hits[0].Payload["year"])
	}

	if captured["limit"] != float64(300) || captured["with_payload"] != true {
		t.Fatalf("unexpected request body: %v", captured)
	}
	encoded, _ := json.Marshal(captured["filter"])
	want := `{"must":[{"key":"year","match":{"value":2023}},{"should":[{"key":"store_name","match":{"value":"강남점"}},{"key":"keywords","match":{"any":["강남점"]}}]}]}`
	if string(encoded) != want {
		t.Fatalf("unexpected filter:\n got %s\nwant %s", encoded, want)
	}
}

func TestSimilaritySearchOmitsEmptyFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	hits, err := New(server.URL, "incidents").SimilaritySearch(context.Background(), []float32{1}, domain.Filter{}, 30)
	if err != nil {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Fatalf("expected empty non-nil hits, got %#v", hits)
	}
	if _, ok := captured["filter"]; ok {
		t.Fatalf("expected no filter in request, got %v", captured["filter"])
	}
}

func TestFilterQueryReturnsPayloadAndVector(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/incidents/points/query" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"id":7,"payload":{"sFileName":"POS"},"vector":[0.5,0.25]},
			{"id":8,"payload":{"sFileName":"POS"},"vector":{"dense":[1.0]}}
		]}}`))
	}))
	defer server.Close()

	predicate := domain.Filter{Should: []domain.Condition{domain.MatchValue(domain.FieldFileName, "POS")}}
	hits, err := New(server.URL, "incidents").FilterQuery(context.Background(), predicate, 200)
	if err != nil {
		t.Fatalf("FilterQuery() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "7" || len(hits[0].Vector) != 2 || hits[0].Vector[1] != 0.25 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[1].Vector != nil {
		t.Fatalf("expected named vector to be dropped, got %v", hits[1].Vector)
	}
	if captured["with_vector"] != true || captured["limit"] != float64(200) {
		t.Fatalf("unexpected request body: %v", captured)
	}
}

func TestStatusErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"Bad request: wrong filter"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL, "incidents").FilterQuery(context.Background(), domain.Filter{}, 10)
	if err == nil || !strings.Contains(err.Error(), "wrong filter") {
		t.Fatalf("expected body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not be temporary: %v", err)
	}
}

func TestServerErrorIsTemporary(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "incidents", Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.Config{BreakerEnabled: false}),
	})
	_, err := client.SimilaritySearch(context.Background(), []float32{1}, domain.Filter{}, 10)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status error in chain, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected no retries by default, got %d calls", got)
	}
}

func TestTimeoutIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "incidents", Options{
		Timeout: 20 * time.Millisecond,
		ResilienceExecutor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts:    3,
			RetryInitialBackoff: time.Millisecond,
			BreakerEnabled:      false,
		}),
	})
	_, err := client.SimilaritySearch(context.Background(), []float32{1}, domain.Filter{}, 10)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected timeout not to be retried, got %d calls", got)
	}
}
