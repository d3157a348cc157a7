package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Permanent failures count against the breaker but are not retried.
	Permanent = ErrorClassification{Retryable: false, RecordFailure: true}
	// Rejected covers caller faults and cancellation: the dependency is healthy.
	Rejected = ErrorClassification{}
)

// Classify applies the rules shared by every dependency. specific sees the
// error after cancellation and open-breaker checks and before the network
// fallbacks; it reports false when it has no opinion.
//
// Timeouts are terminal: a call that exceeded its budget is not repeated.
func Classify(err error, specific func(error) (ErrorClassification, bool)) ErrorClassification {
	if err == nil || isContextError(err) {
		return Rejected
	}
	if IsCircuitOpen(err) {
		return Transient
	}
	if specific != nil {
		if class, ok := specific(err); ok {
			return class
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Permanent
		}
		return Transient
	}
	return Permanent
}

// WrapTemporary marks err as domain.ErrTemporary when classifier considers it
// transient, so the HTTP layer can answer 503 instead of 502.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || classifier(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
