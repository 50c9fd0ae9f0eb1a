package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Permanent failures are returned at once but still count against the breaker.
	Permanent = ErrorClassification{RecordFailure: true}
	// Ignored outcomes neither retry nor affect breaker health.
	Ignored = ErrorClassification{}
)

// Classify completes an adapter classifier with the outcomes every adapter
// treats alike: caller cancellation is ignored and an open breaker is
// transient. A nil specific classifier treats everything else as Permanent.
func Classify(specific ErrorClassifier) ErrorClassifier {
	return func(err error) ErrorClassification {
		switch {
		case err == nil:
			return Ignored
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Ignored
		case IsCircuitOpen(err):
			return Transient
		case specific == nil:
			return Permanent
		default:
			return specific(err)
		}
	}
}

// WrapTemporary tags retryable failures with domain.ErrTemporary so inbound
// adapters can answer with a retry hint.
func WrapTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
