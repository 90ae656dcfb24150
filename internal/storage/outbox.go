package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/farm-shop/internal/domain/models"
)

// OutboxStorage - таблица исходящих событий для публикации в Kafka
type OutboxStorage interface {
	CreateEventTx(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id string) error
}

type outboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) OutboxStorage {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) CreateEventTx(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.AggregateType, event.AggregateID, event.EventType, []byte(event.Payload))
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*models.OutboxEvent{}
	for rows.Next() {
		e := &models.OutboxEvent{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkEventPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE outbox_events SET published_at = NOW() WHERE id = $1", id)
	return err
}
