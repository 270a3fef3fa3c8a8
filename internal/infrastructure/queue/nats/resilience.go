package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
)

const publishOperation = "publish batch job event"

// transientErrors clear up once the connection recovers.
var transientErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

func isTransient(err error) bool {
	if resilience.IsCircuitOpen(err) {
		return true
	}
	for _, target := range transientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil, isContextError(err):
		return resilience.ErrorClassification{}
	case isTransient(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// wrapPublishError tags a publish failure so the submitter reports it as
// Temporary when a retry later could succeed.
func wrapPublishError(err error) error {
	switch {
	case err == nil:
		return nil
	case isContextError(err), domain.IsKind(err, domain.ErrTemporary):
		return err
	case isTransient(err):
		return domain.WrapError(domain.ErrTemporary, publishOperation, err)
	default:
		return domain.WrapError(domain.ErrBackend, publishOperation, err)
	}
}
