package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// MessageWriter - часть kafka.Writer, нужная поллеру
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Options struct {
	Interval  time.Duration
	BatchSize int
}

// OutboxPoller переносит неопубликованные события из outbox в Kafka
type OutboxPoller struct {
	log       *slog.Logger
	repo      storage.OutboxStorage
	writer    MessageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	interval  time.Duration
	batchSize int
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(log *slog.Logger, repo storage.OutboxStorage, writer MessageWriter, opts Options) *OutboxPoller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	log = log.With(slog.String("component", "outbox-poller"))

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-outbox",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &OutboxPoller{
		log:       log,
		repo:      repo,
		writer:    writer,
		breaker:   breaker,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run опрашивает outbox до отмены контекста
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("outbox poller started", slog.Duration("interval", p.interval))
	for {
		select {
		case <-ticker.C:
			p.PublishBatch(ctx)
		case <-ctx.Done():
			if err := p.writer.Close(); err != nil {
				p.log.Error("failed to close kafka writer", slog.Any("error", err))
			}
			p.log.Info("outbox poller stopped")
			return
		}
	}
}

// PublishBatch публикует одну пачку событий и возвращает число опубликованных.
// Неопубликованные события остаются в outbox до следующего тика.
func (p *OutboxPoller) PublishBatch(ctx context.Context) int {
	const op = "events.OutboxPoller.PublishBatch"
	logger := p.log.With(slog.String("op", op))

	events, err := p.repo.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		logger.Error("failed to fetch events", slog.Any("error", err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				logger.Warn("kafka unavailable, batch postponed", slog.Int("pending", len(events)-published))
				return published
			}
			logger.Error("failed to publish event", slog.String("eventID", event.ID), slog.Any("error", err))
			continue
		}
		if err := p.repo.MarkEventPublished(ctx, event.ID); err != nil {
			logger.Error("failed to mark event published", slog.String("eventID", event.ID), slog.Any("error", err))
			continue
		}
		published++
	}

	if published > 0 {
		logger.Debug("events published", slog.Int("count", published))
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *models.OutboxEvent) error {
	msg := kafka.Message{
		// ключ - агрегат, чтобы события одного заказа шли в одну партицию
		Key:   []byte(event.AggregateType + ":" + event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			return struct{}{}, fmt.Errorf("kafka write: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
