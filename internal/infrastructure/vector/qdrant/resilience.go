package qdrant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the Qdrant REST API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Operation, e.Status, body)
}

// classifyQdrantError: 4xx means a malformed filter or a missing collection,
// which retrying cannot fix and which says nothing about Qdrant's health.
func classifyQdrantError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (resilience.ErrorClassification, bool) {
		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) {
			return resilience.ErrorClassification{}, false
		}
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500 {
			return resilience.Transient, true
		}
		return resilience.Rejected, true
	})
}
