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

	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
)

const workerQueueGroup = "legal-rag-workers"

// Queue carries batch job events between the API and the workers.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	onLag    func(time.Duration)
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// QueueLagObserver receives the delay between publish and delivery.
	QueueLagObserver func(time.Duration)
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("legal-rag-api"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		onLag:    options.QueueLagObserver,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

type batchJobQueuedEvent struct {
	JobID       string    `json:"job_id"`
	PublishedAt time.Time `json:"published_at"`
}

func encodeEvent(jobID string, now time.Time) ([]byte, error) {
	return json.Marshal(batchJobQueuedEvent{JobID: jobID, PublishedAt: now.UTC()})
}

// decodeEvent also accepts a bare job id payload.
func decodeEvent(data []byte) (batchJobQueuedEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return batchJobQueuedEvent{}, errors.New("empty batch job event")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return batchJobQueuedEvent{JobID: trimmed}, nil
	}
	var event batchJobQueuedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return batchJobQueuedEvent{}, fmt.Errorf("decode batch job event: %w", err)
	}
	if event.JobID == "" {
		return batchJobQueuedEvent{}, errors.New("batch job event without job_id")
	}
	return event, nil
}

func (q *Queue) PublishBatchJobQueued(ctx context.Context, jobID string) error {
	payload, err := encodeEvent(jobID, time.Now())
	if err != nil {
		return fmt.Errorf("encode batch job event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapPublishError(err)
}

func (q *Queue) SubscribeBatchJobQueued(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := decodeEvent(msg.Data)
		if err != nil {
			slog.Error("batch_job_event_invalid", "error", err)
			return
		}
		if q.onLag != nil && !event.PublishedAt.IsZero() {
			q.onLag(time.Since(event.PublishedAt))
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event.JobID); err != nil {
			slog.Error("batch_job_handler_failed", "job_id", event.JobID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
