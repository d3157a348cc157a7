package qdrant

import "github.com/kirillkom/retailtech-search/internal/core/domain"

// encodeFilter renders a domain filter in Qdrant's must/should JSON form.
func encodeFilter(f domain.Filter) map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = encodeConditions(f.Must)
	}
	if len(f.Should) > 0 {
		out["should"] = encodeConditions(f.Should)
	}
	return out
}

func encodeConditions(conds []domain.Condition) []map[string]any {
	out := make([]map[string]any, 0, len(conds))
	for _, cond := range conds {
		out = append(out, encodeCondition(cond))
	}
	return out
}

func encodeCondition(cond domain.Condition) map[string]any {
	switch {
	case cond.Nested != nil:
		return encodeFilter(*cond.Nested)
	case cond.Any != nil:
		return map[string]any{
			"key":   cond.Key,
			"match": map[string]any{"any": cond.Any},
		}
	default:
		return map[string]any{
			"key":   cond.Key,
			"match": map[string]any{"value": cond.Value},
		}
	}
}
