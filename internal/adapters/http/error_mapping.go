package httpadapter

import (
	"net/http"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEncoding),
		domain.IsKind(err, domain.ErrStoreQuery),
		domain.IsKind(err, domain.ErrKeywordGeneration),
		domain.IsKind(err, domain.ErrSummarization):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
