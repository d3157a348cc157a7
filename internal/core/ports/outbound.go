package ports

import (
	"context"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

// VectorStore runs metadata lookups and similarity searches over incident points.
type VectorStore interface {
	FilterQuery(ctx context.Context, filter domain.Filter, limit int) ([]domain.VectorHit, error)
	SimilaritySearch(ctx context.Context, vector []float32, filter domain.Filter, limit int) ([]domain.VectorHit, error)
}

// Embedder encodes query text into the collection's vector space.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// KeywordGenerator asks the language model for a comma-delimited keyword line.
type KeywordGenerator interface {
	GenerateKeywords(ctx context.Context, question string) (string, error)
}

// Summarizer writes a short narrative for one incident.
type Summarizer interface {
	Summarize(ctx context.Context, brief domain.IncidentBrief) (string, error)
}

// EventSink persists request log entries.
type EventSink interface {
	Record(ctx context.Context, event domain.Event) error
}
