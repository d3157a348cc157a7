package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/retailtech-search/internal/bootstrap"
	"github.com/kirillkom/retailtech-search/internal/config"
	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
	"github.com/kirillkom/retailtech-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/retailtech-search/internal/observability/logging"
)

// services is what the subcommands need from the application graph.
type services struct {
	Search     ports.SearchService
	Keywords   ports.KeywordExtractor
	Summarizer ports.IncidentSummarizer
	Events     ports.EventSink
	Stats      tierCounter
	Logger     *slog.Logger
}

type tierCounter interface {
	CountByTier(ctx context.Context) (map[domain.Tier]int, error)
}

type loader func(ctx context.Context, stderr io.Writer) (*services, func(), error)

func loadServices(ctx context.Context, stderr io.Writer) (*services, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewJSONLoggerTo(stderr, "searchctl", cfg.LogLevel)

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	svc := &services{
		Search:     app.SearchUC,
		Keywords:   app.KeywordUC,
		Summarizer: app.SummarizeUC,
		Events:     app.Events,
		Logger:     logger,
	}
	closeFn := app.Close

	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			app.Close()
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		svc.Stats = postgres.NewEventRepository(db)
		closeFn = func() {
			_ = db.Close()
			app.Close()
		}
	}
	return svc, closeFn, nil
}

func newRootCmd(load loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "searchctl",
		Short:         "Query the incident collection from the command line",
		SilenceUsage:  true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.AddCommand(
		newSearchCmd(load),
		newKeywordsCmd(load),
		newSummarizeCmd(load),
		newStatsCmd(load),
	)
	return root
}

// withServices loads the application graph for one command run.
func withServices(cmd *cobra.Command, load loader, run func(*services) error) error {
	svc, closeFn, err := load(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()
	return run(svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
