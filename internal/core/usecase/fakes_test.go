package usecase

import (
	"context"
	"strconv"
	"sync"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

type searchCall struct {
	vector []float32
	filter domain.Filter
	limit  int
}

type storeFake struct {
	mu sync.Mutex

	lookup     func(ctx context.Context, filter domain.Filter) ([]domain.VectorHit, error)
	searchHits [][]domain.VectorHit
	searchErr  error

	lookupCalls  int
	lookupLimits []int
	searches     []searchCall
}

func (f *storeFake) FilterQuery(ctx context.Context, filter domain.Filter, limit int) ([]domain.VectorHit, error) {
	f.mu.Lock()
	f.lookupCalls++
	f.lookupLimits = append(f.lookupLimits, limit)
	lookup := f.lookup
	f.mu.Unlock()

	if lookup == nil {
		return nil, nil
	}
	return lookup(ctx, filter)
}

func (f *storeFake) SimilaritySearch(_ context.Context, vector []float32, filter domain.Filter, limit int) ([]domain.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searches = append(f.searches, searchCall{vector: vector, filter: filter, limit: limit})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	idx := len(f.searches) - 1
	if idx < len(f.searchHits) {
		return f.searchHits[idx], nil
	}
	return nil, nil
}

type embedderFake struct {
	calls int
	texts []string
	err   error
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// keywordOf extracts the keyword a single-keyword lookup filter was built for.
func keywordOf(filter domain.Filter) string {
	conds := filter.Must
	if len(conds) == 0 {
		conds = filter.Should
	}
	if len(conds) == 0 {
		return ""
	}
	switch v := conds[0].Value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func hit(id string, score float64, payload domain.Payload) domain.VectorHit {
	return domain.VectorHit{ID: id, Score: score, Payload: payload}
}
