package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
)

type TourFilter struct {
	Status   models.TourStatus
	Category models.TourCategory
	// Date - тур проходит в этот день
	Date *time.Time
}

type TourStorage interface {
	ListTours(ctx context.Context, filter TourFilter) ([]*models.Tour, error)
	GetTour(ctx context.Context, id int64) (*models.Tour, error)
	// LockTourTx блокирует строку тура на время проверки вместимости
	LockTourTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Tour, error)
	CreateTour(ctx context.Context, t *models.Tour) (*models.Tour, error)
	UpdateTour(ctx context.Context, t *models.Tour) error
	DeleteTour(ctx context.Context, id int64) error
	// AdjustParticipantsTx меняет счётчик участников в пределах [0, max_participants]
	AdjustParticipantsTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error
}

type tourRepository struct {
	db *sql.DB
}

func NewTourRepository(db *sql.DB) TourStorage {
	return &tourRepository{db: db}
}

const tourColumns = `id, name, description, date, time, duration, max_participants, current_participants,
	guide, status, category, price, image, created_at, updated_at`

func scanTour(row interface{ Scan(...any) error }) (*models.Tour, error) {
	t := &models.Tour{}
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Date, &t.Time, &t.Duration, &t.MaxParticipants,
		&t.CurrentParticipants, &t.Guide, &t.Status, &t.Category, &t.Price, &t.Image, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTourNotFound
		}
		if isLockNotAvailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return nil, err
	}
	return t, nil
}

func (r *tourRepository) ListTours(ctx context.Context, filter TourFilter) ([]*models.Tour, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, filter.Date.Format("2006-01-02"))
		where = append(where, fmt.Sprintf("date::date = $%d::date", len(args)))
	}
	query := "SELECT " + tourColumns + " FROM tours"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := []*models.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tours, nil
}

func (r *tourRepository) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tourColumns+" FROM tours WHERE id = $1", id)
	return scanTour(row)
}

func (r *tourRepository) LockTourTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Tour, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+tourColumns+" FROM tours WHERE id = $1 FOR UPDATE", id)
	return scanTour(row)
}

func (r *tourRepository) CreateTour(ctx context.Context, t *models.Tour) (*models.Tour, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tours (name, description, date, time, duration, max_participants, current_participants,
			guide, status, category, price, image)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.Description, t.Date, t.Time, t.Duration, t.MaxParticipants, t.CurrentParticipants,
		t.Guide, t.Status, t.Category, t.Price, t.Image,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTour не трогает current_participants: счётчик меняется только бронированиями
func (r *tourRepository) UpdateTour(ctx context.Context, t *models.Tour) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tours SET name = $1, description = $2, date = $3, time = $4, duration = $5, max_participants = $6,
			guide = $7, status = $8, category = $9, price = $10, image = $11, updated_at = NOW()
		 WHERE id = $12 AND current_participants <= $6`,
		t.Name, t.Description, t.Date, t.Time, t.Duration, t.MaxParticipants,
		t.Guide, t.Status, t.Category, t.Price, t.Image, t.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTourNotFound)
}

func (r *tourRepository) DeleteTour(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tours WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTourNotFound)
}

func (r *tourRepository) AdjustParticipantsTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE tours SET current_participants = current_participants + $1, updated_at = NOW()
		 WHERE id = $2 AND current_participants + $1 BETWEEN 0 AND max_participants`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust participants: %w", err)
	}
	return expectAffected(res, ErrTourFull)
}
