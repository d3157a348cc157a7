package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
)

type SearchOptions struct {
	DefaultTopK     int
	OverFetchFactor int
	FanOutLimit     int
	// KeywordBonus adds a small score boost per matched text keyword.
	// Disabled by default: the final score is the raw similarity.
	KeywordBonus bool
}

func (o SearchOptions) normalize() SearchOptions {
	out := o
	if out.DefaultTopK <= 0 {
		out.DefaultTopK = 30
	}
	if out.OverFetchFactor <= 0 {
		out.OverFetchFactor = 10
	}
	if out.FanOutLimit <= 0 {
		out.FanOutLimit = 200
	}
	return out
}

type SearchUseCase struct {
	store    ports.VectorStore
	embedder ports.Embedder
	opts     SearchOptions
	logger   *slog.Logger
}

func NewSearchUseCase(
	store ports.VectorStore,
	embedder ports.Embedder,
	opts SearchOptions,
	logger *slog.Logger,
) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		store:    store,
		embedder: embedder,
		opts:     opts.normalize(),
		logger:   logger,
	}
}

// Search classifies the keywords through the metadata fan-out and runs the
// retrieval cascade for the question.
func (uc *SearchUseCase) Search(
	ctx context.Context,
	question string,
	keywords []string,
	topK int,
) (*domain.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errEmptyQuestion)
	}
	if topK <= 0 {
		topK = uc.opts.DefaultTopK
	}

	candidates, err := uc.FanOut(ctx, keywords)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreQuery, "metadata fan-out", err)
	}

	classified := make([]domain.ClassifiedKeyword, 0, len(candidates.Categories))
	for _, kw := range normalizeKeywords(keywords) {
		if _, ok := candidates.Categories[kw]; ok {
			classified = append(classified, ClassifyKeyword(kw))
		}
	}
	return uc.Retrieve(ctx, question, keywords, classified, topK)
}

// Retrieve selects the cascade tier for the classified keywords and runs it.
// rawKeywords is only used for match signals of the unfiltered tier.
func (uc *SearchUseCase) Retrieve(
	ctx context.Context,
	question string,
	rawKeywords []string,
	classified []domain.ClassifiedKeyword,
	topK int,
) (*domain.SearchResult, error) {
	dateKeywords, textKeywords := partitionKeywords(classified)
	uc.logger.InfoContext(ctx, "search_tier_selected",
		"question", question,
		"date_keywords", keywordTexts(dateKeywords),
		"text_keywords", keywordTexts(textKeywords),
	)

	switch {
	case len(dateKeywords) > 0:
		return uc.filteredTier(ctx, domain.TierDateText, question, dateTextFilter(dateKeywords, textKeywords), keywordTexts(textKeywords), topK)
	case len(textKeywords) > 0:
		return uc.filteredTier(ctx, domain.TierText, question, textFilter(textKeywords), keywordTexts(textKeywords), topK)
	default:
		return uc.unfilteredTier(ctx, question, rawKeywords, topK)
	}
}

func (uc *SearchUseCase) filteredTier(
	ctx context.Context,
	tier domain.Tier,
	question string,
	filter domain.Filter,
	textKeywords []string,
	topK int,
) (*domain.SearchResult, error) {
	vector, err := uc.encode(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := uc.store.SimilaritySearch(ctx, vector, filter, topK*uc.opts.OverFetchFactor)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreQuery, "filtered similarity search", err)
	}

	if len(hits) == 0 {
		uc.logger.InfoContext(ctx, "search_fallback", "tier", string(tier))
		results, err := uc.SemanticFallback(ctx, question, vector, topK)
		if err != nil {
			return nil, err
		}
		return &domain.SearchResult{Tier: tier, FellBack: true, Results: results}, nil
	}

	return &domain.SearchResult{
		Tier:    tier,
		Results: uc.Rerank(ctx, hits, textKeywords, topK),
	}, nil
}

func (uc *SearchUseCase) unfilteredTier(
	ctx context.Context,
	question string,
	rawKeywords []string,
	topK int,
) (*domain.SearchResult, error) {
	vector, err := uc.encode(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := uc.store.SimilaritySearch(ctx, vector, domain.Filter{}, topK*uc.opts.OverFetchFactor)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreQuery, "unfiltered similarity search", err)
	}

	return &domain.SearchResult{
		Tier:    domain.TierUnfiltered,
		Results: uc.Rerank(ctx, hits, rawKeywords, topK),
	}, nil
}

// SemanticFallback is the terminal tier: a plain nearest-neighbour search
// limited to topK. vector is reused when the caller already encoded the
// question. Zero hits yield an empty, non-nil list.
func (uc *SearchUseCase) SemanticFallback(
	ctx context.Context,
	question string,
	vector []float32,
	topK int,
) ([]domain.RankedResult, error) {
	if topK <= 0 {
		topK = uc.opts.DefaultTopK
	}
	if len(vector) == 0 {
		encoded, err := uc.encode(ctx, question)
		if err != nil {
			return nil, err
		}
		vector = encoded
	}

	hits, err := uc.store.SimilaritySearch(ctx, vector, domain.Filter{}, topK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreQuery, "fallback similarity search", err)
	}

	out := make([]domain.RankedResult, 0, len(hits))
	for i, hit := range hits {
		result := domain.RankedResult{
			Document: documentFromHit(hit),
			Score:    domain.RoundTo(hit.Score, 5),
		}
		uc.trace(ctx, i+1, result)
		out = append(out, result)
	}
	return out, nil
}

func (uc *SearchUseCase) encode(ctx context.Context, question string) ([]float32, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEncoding, "encode question", err)
	}
	return vector, nil
}

func partitionKeywords(classified []domain.ClassifiedKeyword) (date, text []domain.ClassifiedKeyword) {
	for _, kw := range classified {
		if kw.Category.IsDate() {
			date = append(date, kw)
			continue
		}
		text = append(text, kw)
	}
	return date, text
}

// dateTextFilter requires every date predicate and, when text keywords are
// present, at least one text predicate.
func dateTextFilter(date, text []domain.ClassifiedKeyword) domain.Filter {
	must := make([]domain.Condition, 0, len(date)+1)
	for _, kw := range date {
		must = append(must, kw.Conditions...)
	}
	if len(text) > 0 {
		must = append(must, domain.NestedFilter(textFilter(text)))
	}
	return domain.Filter{Must: must}
}

func textFilter(text []domain.ClassifiedKeyword) domain.Filter {
	should := make([]domain.Condition, 0, len(text)*4)
	for _, kw := range text {
		should = append(should, kw.Conditions...)
	}
	return domain.Filter{Should: should}
}

func keywordTexts(keywords []domain.ClassifiedKeyword) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, kw.Keyword)
	}
	return out
}
