package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/linemk/farm-shop/internal/domain/models"
)

type SubscriptionFilter struct {
	UserID int64
	Status models.SubscriptionStatus
}

type SubscriptionStorage interface {
	ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]*models.Subscription, error)
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, s *models.Subscription) error
	DeleteSubscription(ctx context.Context, id int64) error
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionStorage {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, status, frequency, price, start_date,
	next_billing_date, items, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.Status, &s.Frequency, &s.Price, &s.StartDate,
		&s.NextBillingDate, &s.Items, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepository) ListSubscriptions(ctx context.Context, filter SubscriptionFilter) ([]*models.Subscription, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := "SELECT " + subscriptionColumns + " FROM subscriptions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*models.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = $1", id)
	return scanSubscription(row)
}

func (r *subscriptionRepository) CreateSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO subscriptions (user_id, plan_id, plan_name, status, frequency, price, start_date,
			next_billing_date, items)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		s.UserID, s.PlanID, s.PlanName, s.Status, s.Frequency, s.Price, s.StartDate, s.NextBillingDate, s.Items,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepository) UpdateSubscription(ctx context.Context, s *models.Subscription) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET plan_id = $1, plan_name = $2, status = $3, frequency = $4, price = $5,
			next_billing_date = $6, items = $7, updated_at = NOW()
		 WHERE id = $8`,
		s.PlanID, s.PlanName, s.Status, s.Frequency, s.Price, s.NextBillingDate, s.Items, s.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrSubscriptionNotFound)
}

func (r *subscriptionRepository) DeleteSubscription(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrSubscriptionNotFound)
}
