package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/retailtech-search/internal/config"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
	"github.com/kirillkom/retailtech-search/internal/core/usecase"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/retailtech-search/internal/observability/metrics"
)

// App holds the collaborators of the api process and the CLI. The vector
// store and embedder are built once and shared by all requests.
type App struct {
	Config config.Config

	SearchUC    *usecase.SearchUseCase
	KeywordUC   *usecase.KeywordUseCase
	SummarizeUC *usecase.SummarizeUseCase
	Events      ports.EventSink
	Metrics     *metrics.HTTPServerMetrics

	closeFn func()
}

func New(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	httpMetrics := metrics.NewHTTPServerMetrics("api")
	executor := resilience.NewExecutor(resilienceConfig(cfg),
		resilience.WithLogger(logger),
		resilience.WithStateObserver(httpMetrics.ObserveBreakerState),
	)

	vectorDB := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		Timeout:            seconds(cfg.QdrantTimeoutSeconds),
		ResilienceExecutor: executor,
	})

	embedder, err := newEmbedder(cfg, executor)
	if err != nil {
		return nil, err
	}

	generator := openaicompat.NewGenerator(openaicompat.New(openaicompat.Config{
		BaseURL:            cfg.VLLMURL,
		APIKey:             cfg.VLLMAPIKey,
		Model:              cfg.VLLMModel,
		Timeout:            seconds(cfg.LLMTimeoutSeconds),
		ResilienceExecutor: executor,
	}))

	events, closeEvents, err := newEventSink(cfg, executor)
	if err != nil {
		return nil, err
	}

	searchUC := usecase.NewSearchUseCase(vectorDB, embedder, usecase.SearchOptions{
		DefaultTopK:     cfg.SearchTopK,
		OverFetchFactor: cfg.SearchOverFetchFactor,
		FanOutLimit:     cfg.SearchFanOutLimit,
		KeywordBonus:    cfg.SearchKeywordBonusEnabled,
	}, logger)

	return &App{
		Config: cfg,

		SearchUC:    searchUC,
		KeywordUC:   usecase.NewKeywordUseCase(generator),
		SummarizeUC: usecase.NewSummarizeUseCase(generator),
		Events:      events,
		Metrics:     httpMetrics,

		closeFn: closeEvents,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Worker holds the collaborators of the event persistence process.
type Worker struct {
	Config config.Config

	Queue  *nats.Queue
	Events *postgres.EventRepository

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewEventRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &Worker{
		Config: cfg,
		Queue:  queue,
		Events: repo,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func newEmbedder(cfg config.Config, executor *resilience.Executor) (ports.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "", "openai":
		return openaicompat.NewEmbedder(openaicompat.Config{
			BaseURL:            cfg.EmbeddingURL,
			APIKey:             cfg.EmbeddingAPIKey,
			Model:              cfg.EmbeddingModel,
			Timeout:            seconds(cfg.LLMTimeoutSeconds),
			ResilienceExecutor: executor,
		}), nil
	case "ollama":
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.EmbeddingModel, ollama.Options{
			Timeout:            seconds(cfg.LLMTimeoutSeconds),
			ResilienceExecutor: executor,
		})
		return ollama.NewEmbedder(client), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func newEventSink(cfg config.Config, executor *resilience.Executor) (ports.EventSink, func(), error) {
	switch cfg.EventSink {
	case "none":
		return nil, func() {}, nil
	case "", "file":
		eventLog, err := localfs.NewEventLog(cfg.EventLogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("init event log: %w", err)
		}
		return eventLog, func() {}, nil
	case "nats":
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init event queue: %w", err)
		}
		return queue, queue.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.ResilienceRetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.ResilienceRetryMaxBackoffMS) * time.Millisecond,
		AttemptTimeout:      time.Duration(cfg.ResilienceAttemptTimeoutMS) * time.Millisecond,

		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:  seconds(cfg.ResilienceBreakerOpenTimeoutSecs),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
