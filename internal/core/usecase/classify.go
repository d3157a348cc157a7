package usecase

import (
	"strconv"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

// ClassifyKeyword resolves a keyword to its filter category. Rules are
// checked in order and the first match wins, so a value valid as both month
// and day ("12") is always a month.
func ClassifyKeyword(keyword string) domain.ClassifiedKeyword {
	if isASCIIDigits(keyword) {
		if n, err := strconv.Atoi(keyword); err == nil {
			switch {
			case len(keyword) == 4:
				return dateKeyword(keyword, domain.CategoryYear, domain.FieldYear, n)
			case n >= 1 && n <= 12:
				return dateKeyword(keyword, domain.CategoryMonth, domain.FieldMonth, n)
			case n >= 1 && n <= 31:
				return dateKeyword(keyword, domain.CategoryDay, domain.FieldDay, n)
			}
		}
	}

	return domain.ClassifiedKeyword{
		Keyword:  keyword,
		Category: domain.CategoryText,
		Conditions: []domain.Condition{
			domain.MatchValue(domain.FieldFileName, keyword),
			domain.MatchAny(domain.FieldKeywords, keyword),
			domain.MatchValue(domain.FieldStoreName, keyword),
			domain.MatchValue(domain.FieldStoreCode, keyword),
		},
	}
}

func dateKeyword(keyword string, category domain.Category, field string, value int) domain.ClassifiedKeyword {
	return domain.ClassifiedKeyword{
		Keyword:    keyword,
		Category:   category,
		Conditions: []domain.Condition{domain.MatchValue(field, value)},
	}
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// normalizeKeywords drops blank entries and duplicates, keeping first-seen order.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
