package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/infrastructure/resilience"
)

const (
	workerQueueGroup  = "ingest-workers"
	drainFlushTimeout = 5 * time.Second
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

// Options tunes the connection. Zero values keep the client usable against
// a broker that starts after the process.
type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func (o Options) natsOptions() []nats.Option {
	retryOnFailedConnect := true
	if o.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *o.RetryOnFailedConnect
	}
	return []nats.Option{
		nats.Name("readshelf"),
		nats.Timeout(positiveOr(o.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(positiveOr(o.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(positiveOr(o.MaxReconnects, 60)),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, options.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &Queue{conn: conn, subject: subject, executor: options.ResilienceExecutor}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishIngestRequested(ctx context.Context, url string) error {
	data, err := encodeIngestRequest(url, time.Now().UTC())
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.WrapTemporary(publishOperation, err, classifyPublishError)
	}
	return nil
}

// SubscribeIngestRequested delivers each queued URL to one worker of the
// queue group. It blocks until ctx is done, then drains the subscription so
// in-flight handlers finish.
func (q *Queue) SubscribeIngestRequested(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		q.deliver(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", q.subject, err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(drainFlushTimeout); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// deliver never requeues: a failed URL is logged and dropped.
func (q *Queue) deliver(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.IngestRequest) error) {
	if ctx.Err() != nil {
		return
	}
	req, err := decodeIngestRequest(msg.Data)
	if err != nil {
		slog.Error("ingest_message_invalid", "subject", msg.Subject, "error", err)
		return
	}
	if err := handler(ctx, req); err != nil {
		slog.Error("ingest_handler_failed", "url", req.URL, "error", err)
	}
}

func encodeIngestRequest(url string, requestedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(domain.IngestRequest{URL: url, RequestedAt: requestedAt})
	if err != nil {
		return nil, fmt.Errorf("marshal ingest request: %w", err)
	}
	return data, nil
}

// decodeIngestRequest also accepts a bare URL body for manual publishing
// with the nats CLI.
func decodeIngestRequest(data []byte) (domain.IngestRequest, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return domain.IngestRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode ingest request", errors.New("empty message"))
	}
	if !strings.HasPrefix(trimmed, "{") {
		return domain.IngestRequest{URL: trimmed}, nil
	}

	var req domain.IngestRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return domain.IngestRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode ingest request", err)
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return domain.IngestRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode ingest request", errors.New("missing url"))
	}
	return req, nil
}
