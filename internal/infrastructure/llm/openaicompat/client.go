package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

const (
	keywordMaxTokens = 32
	summaryMaxTokens = 1024
	temperature      = 0.4
)

type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

// Client wraps an OpenAI-compatible completions server such as vLLM.
type Client struct {
	client   *openai.Client
	model    string
	executor *resilience.Executor
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		executor: cfg.ResilienceExecutor,
	}
}

func (c *Client) complete(ctx context.Context, operation, prompt string, maxTokens int, stop []string) (string, error) {
	req := openai.CompletionRequest{
		Model:       c.model,
		Prompt:      strings.TrimSpace(prompt),
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stop:        stop,
	}

	var text string
	call := func(callCtx context.Context) error {
		resp, err := c.client.CreateCompletion(callCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			text = ""
			return nil
		}
		text = strings.TrimSpace(resp.Choices[0].Text)
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.WrapTemporary(operation, describeError(err), classifyError)
	}
	return text, nil
}

// Generator implements keyword generation and incident summaries.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// GenerateKeywords returns the raw keyword line. An empty completion is not an
// error: it yields no keywords and the search runs unfiltered.
func (g *Generator) GenerateKeywords(ctx context.Context, question string) (string, error) {
	return g.client.complete(ctx, "vllm.keywords", buildKeywordPrompt(question), keywordMaxTokens, []string{"\n"})
}

func (g *Generator) Summarize(ctx context.Context, brief domain.IncidentBrief) (string, error) {
	return g.client.complete(ctx, "vllm.summarize", buildSummaryPrompt(brief), summaryMaxTokens, nil)
}

// Embedder encodes query text through an OpenAI-compatible embeddings API
// (text-embeddings-inference, vLLM, Infinity).
type Embedder struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	executor *resilience.Executor
}

func NewEmbedder(cfg Config) *Embedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Embedder{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    openai.EmbeddingModel(cfg.Model),
		executor: cfg.ResilienceExecutor,
	}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var vector []float32
	call := func(callCtx context.Context) error {
		resp, err := e.client.CreateEmbeddings(callCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errEmptyEmbedding
		}
		vector = resp.Data[0].Embedding
		return nil
	}

	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "embeddings", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapTemporary("embeddings", describeError(err), classifyError)
	}
	return vector, nil
}

var errEmptyEmbedding = errors.New("empty embedding response")

// describeError adds the HTTP status and server message to API failures.
func describeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("api error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("request error %d: %w", reqErr.HTTPStatusCode, err)
	}
	return err
}
