package openaicompat

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

func classifyError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (resilience.ErrorClassification, bool) {
		status, ok := httpStatus(err)
		if !ok {
			return resilience.ErrorClassification{}, false
		}
		if resilience.IsRetryableHTTPStatus(status) {
			return resilience.Transient, true
		}
		return resilience.Rejected, true
	})
}

// httpStatus digs the status code out of go-openai's two error shapes.
func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
