package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

type keywordLookup struct {
	category domain.Category
	hits     []domain.VectorHit
}

// FanOut runs one metadata lookup per keyword concurrently and merges the
// results. The first failing lookup cancels the rest and fails the batch.
func (uc *SearchUseCase) FanOut(ctx context.Context, keywords []string) (domain.CandidateSet, error) {
	set := domain.NewCandidateSet()
	keywords = normalizeKeywords(keywords)
	if len(keywords) == 0 {
		return set, nil
	}

	lookups := make([]keywordLookup, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(keywords))
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			classified := ClassifyKeyword(kw)
			hits, err := uc.store.FilterQuery(gctx, classified.Predicate(), uc.opts.FanOutLimit)
			if err != nil {
				return fmt.Errorf("metadata lookup %q: %w", kw, err)
			}
			lookups[i] = keywordLookup{category: classified.Category, hits: hits}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CandidateSet{}, err
	}

	for i, kw := range keywords {
		ids := make(map[string]struct{}, len(lookups[i].hits))
		for _, hit := range lookups[i].hits {
			ids[hit.ID] = struct{}{}
			set.Payloads[hit.ID] = domain.CachedPoint{Payload: hit.Payload, Vector: hit.Vector}
		}
		set.IDs[kw] = ids
		set.Categories[kw] = lookups[i].category
	}
	return set, nil
}
