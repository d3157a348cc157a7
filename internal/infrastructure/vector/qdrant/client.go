package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

const defaultTimeout = 30 * time.Second

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

// Client talks to the Qdrant REST API. It is safe for concurrent use and is
// shared by every request and every fan-out worker.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string) *Client {
	return NewWithOptions(baseURL, collection, Options{})
}

func NewWithOptions(baseURL, collection string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type point struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
	Vector  json.RawMessage `json:"vector"`
}

// FilterQuery returns up to limit points matching the filter, with payloads
// and vectors, without any similarity ranking.
func (c *Client) FilterQuery(ctx context.Context, filter domain.Filter, limit int) ([]domain.VectorHit, error) {
	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if !filter.IsEmpty() {
		reqBody["filter"] = encodeFilter(filter)
	}

	var resp struct {
		Result struct {
			Points []point `json:"points"`
		} `json:"result"`
	}
	if err := c.execute(ctx, "qdrant.query", "/points/query", reqBody, &resp); err != nil {
		return nil, err
	}
	return toHits(resp.Result.Points), nil
}

// SimilaritySearch returns the nearest points to vector, optionally
// constrained by filter, best first.
func (c *Client) SimilaritySearch(
	ctx context.Context,
	vector []float32,
	filter domain.Filter,
	limit int,
) ([]domain.VectorHit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if !filter.IsEmpty() {
		reqBody["filter"] = encodeFilter(filter)
	}

	var resp struct {
		Result []point `json:"result"`
	}
	if err := c.execute(ctx, "qdrant.search", "/points/search", reqBody, &resp); err != nil {
		return nil, err
	}
	return toHits(resp.Result), nil
}

func (c *Client) execute(ctx context.Context, operation, path string, payload any, out any) error {
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, operation, path, payload, out)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.WrapTemporary(operation, err, classifyQdrantError)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, operation, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	url := fmt.Sprintf("%s/collections/%s%s", c.baseURL, c.collection, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(msg),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func toHits(points []point) []domain.VectorHit {
	out := make([]domain.VectorHit, 0, len(points))
	for _, p := range points {
		out = append(out, domain.VectorHit{
			ID:      pointID(p.ID),
			Payload: domain.Payload(p.Payload),
			Vector:  decodeVector(p.Vector),
			Score:   p.Score,
		})
	}
	return out
}

// pointID renders numeric and uuid point ids as the same string form.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// decodeVector accepts the unnamed dense form only; named or sparse vectors
// are not used by the search and are dropped.
func decodeVector(raw json.RawMessage) []float32 {
	if len(raw) == 0 {
		return nil
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
