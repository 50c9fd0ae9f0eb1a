package nats

import (
	"errors"

	"github.com/kirillkom/readshelf/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

const publishOperation = "nats publish ingest request"

var classifyPublishError = resilience.Classify(func(err error) resilience.ErrorClassification {
	for _, transient := range []error{nats.ErrNoServers, nats.ErrTimeout, nats.ErrConnectionClosed, nats.ErrDisconnected} {
		if errors.Is(err, transient) {
			return resilience.Transient
		}
	}
	return resilience.Permanent
})
