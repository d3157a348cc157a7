package ports

import (
	"context"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

// SearchService is the inbound contract of the retrieval cascade.
type SearchService interface {
	Search(ctx context.Context, question string, keywords []string, topK int) (*domain.SearchResult, error)
}

// KeywordExtractor turns a question into a cleaned keyword list.
type KeywordExtractor interface {
	Extract(ctx context.Context, question string) ([]string, error)
}

// IncidentSummarizer is the inbound contract for incident narratives.
type IncidentSummarizer interface {
	Summarize(ctx context.Context, brief domain.IncidentBrief) (string, error)
}
