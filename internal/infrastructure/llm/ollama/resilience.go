package ollama

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, body)
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (resilience.ErrorClassification, bool) {
		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) {
			return resilience.ErrorClassification{}, false
		}
		if resilience.IsRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Transient, true
		}
		return resilience.Rejected, true
	})
}
