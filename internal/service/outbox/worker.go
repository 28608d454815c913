// Package outbox доставляет события заказов из transactional outbox в брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
)

type config struct {
	logger         *log.Entry
	metrics        *metrics.OutboxMetrics
	dlq            domain.OutboxPublisher
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// Option настраивает Worker.
type Option func(*config)

func WithLogger(logger *log.Entry) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics включает метрики доставки.
func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithDLQPublisher задаёт, куда уходят события после исчерпания попыток.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(c *config) { c.dlq = publisher }
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *config) { c.pollInterval = interval }
}

func WithBatchSize(size int) Option {
	return func(c *config) { c.batchSize = size }
}

// WithMaxAttempts задаёт число попыток публикации одного события.
func WithMaxAttempts(attempts int) Option {
	return func(c *config) { c.maxAttempts = attempts }
}

// WithRetryBaseDelay задаёт первую паузу между попытками; дальше она удваивается.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(c *config) { c.retryBaseDelay = delay }
}

// WithRetryMaxDelay ограничивает паузу между попытками сверху.
func WithRetryMaxDelay(delay time.Duration) Option {
	return func(c *config) { c.retryMaxDelay = delay }
}

// Worker публикует pending-события заказов из outbox.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	cfg       config
}

// NewWorker создаёт воркер. Невалидные значения опций заменяются значениями по умолчанию.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, opts ...Option) *Worker {
	cfg := config{
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logger == nil {
		cfg.logger = log.WithField("component", "outbox-worker")
	}
	if cfg.pollInterval <= 0 {
		cfg.pollInterval = defaultPollInterval
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = defaultBatchSize
	}
	if cfg.maxAttempts <= 0 {
		cfg.maxAttempts = defaultMaxAttempts
	}
	if cfg.retryBaseDelay < 0 {
		cfg.retryBaseDelay = 0
	}
	if cfg.retryMaxDelay < cfg.retryBaseDelay {
		cfg.retryMaxDelay = cfg.retryBaseDelay
	}

	return &Worker{repo: repo, publisher: publisher, cfg: cfg}
}

// Run опрашивает outbox до отмены ctx. Штатная остановка возвращает nil.
func (w *Worker) Run(ctx context.Context) error {
	if w.repo == nil || w.publisher == nil {
		w.cfg.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return nil
	}

	w.cfg.logger.WithFields(log.Fields{
		"poll_interval": w.cfg.pollInterval.String(),
		"batch_size":    w.cfg.batchSize,
		"max_attempts":  w.cfg.maxAttempts,
	}).Info("outbox worker started")

	ticker := time.NewTicker(w.cfg.pollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			w.cfg.logger.Info("outbox worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOnce забирает одну пачку событий и возвращает число доставленных.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.cfg.batchSize)
	if err != nil {
		w.cfg.logger.WithError(err).Warn("failed to pull pending order events")
		return 0
	}

	delivered := 0
	for _, event := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, event) {
			delivered++
		}
	}
	return delivered
}

// deliver публикует событие и переводит его в sent или failed.
func (w *Worker) deliver(ctx context.Context, event domain.OutboxMessage) bool {
	logger := w.cfg.logger.WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
		"order_id":   event.AggregateID,
	})

	publishErr := w.publish(ctx, event)
	if publishErr == nil {
		if err := w.repo.MarkSent(ctx, event.ID); err != nil {
			logger.WithError(err).Warn("failed to mark order event as sent")
			return false
		}
		return true
	}
	if ctx.Err() != nil {
		// Событие остаётся pending и уйдёт в следующем запуске.
		return false
	}

	logger.WithError(publishErr).Error("order event publish failed after retries")
	w.cfg.metrics.RecordPublish(event.EventType, metrics.OutboxResultFailed)
	w.deadLetter(event, publishErr, logger)

	if err := w.repo.MarkFailed(ctx, event.ID); err != nil {
		logger.WithError(err).Warn("failed to mark order event as failed")
	}
	return false
}

func (w *Worker) publish(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.maxAttempts; attempt++ {
		if lastErr = w.publisher.Publish(event); lastErr == nil {
			w.cfg.metrics.RecordPublish(event.EventType, metrics.OutboxResultSent)
			return nil
		}
		w.cfg.metrics.RecordPublish(event.EventType, metrics.OutboxResultRetry)

		if attempt == w.cfg.maxAttempts {
			break
		}
		if delay := w.backoff(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return fmt.Errorf("%w: %d attempts: %v", domain.ErrOutboxPublish, w.cfg.maxAttempts, lastErr)
}

// backoff возвращает паузу перед попыткой attempt+1: base, 2*base, 4*base... не больше max.
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.cfg.retryBaseDelay
	for i := 1; i < attempt && delay < w.cfg.retryMaxDelay; i++ {
		delay *= 2
	}
	if delay > w.cfg.retryMaxDelay {
		delay = w.cfg.retryMaxDelay
	}
	return delay
}

// deadLetter описывает сообщение в DLQ.
type deadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	OrderID       string          `json:"order_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"failed_at"`
}

func (w *Worker) deadLetter(event domain.OutboxMessage, publishErr error, logger *log.Entry) {
	if w.cfg.dlq == nil {
		return
	}

	payload, err := json.Marshal(deadLetter{
		OutboxID:      event.ID,
		AggregateType: event.AggregateType,
		OrderID:       event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishError:  publishErr.Error(),
		FailedAt:      time.Now().UTC(),
	})
	if err == nil {
		dead := event
		dead.Payload = payload
		err = w.cfg.dlq.Publish(dead)
	}
	if err != nil {
		logger.WithError(err).Warn("failed to publish order event to DLQ")
		w.cfg.metrics.RecordPublish(event.EventType, metrics.OutboxResultDLQFailed)
		return
	}
	w.cfg.metrics.RecordPublish(event.EventType, metrics.OutboxResultDLQ)
}

func (w *Worker) observeBacklog(ctx context.Context) {
	if w.cfg.metrics == nil {
		return
	}
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.cfg.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}
	var age time.Duration
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = time.Since(stats.OldestPendingAt)
	}
	w.cfg.metrics.SetBacklog(stats.PendingCount, age)
}
