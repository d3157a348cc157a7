package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/retailtech-search/internal/infrastructure/resilience"
)

// classifyNATSError treats a lost connection as transient. Publish timeouts
// stay terminal like every other dependency timeout.
func classifyNATSError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (resilience.ErrorClassification, bool) {
		switch {
		case errors.Is(err, nats.ErrNoServers),
			errors.Is(err, nats.ErrConnectionClosed),
			errors.Is(err, nats.ErrDisconnected),
			errors.Is(err, nats.ErrConnectionReconnecting):
			return resilience.Transient, true
		case errors.Is(err, nats.ErrTimeout):
			return resilience.Permanent, true
		}
		return resilience.ErrorClassification{}, false
	})
}

func wrapTemporaryIfNeeded(err error) error {
	return resilience.WrapTemporary("nats publish", err, classifyNATSError)
}
