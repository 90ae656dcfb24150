package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/farm-shop/internal/domain/models"
)

type BookingStorage interface {
	CreateBookingTx(ctx context.Context, tx *sql.Tx, b *models.Booking) (*models.Booking, error)
	// FindActiveBookingTx ищет не отменённую запись пользователя на тур
	FindActiveBookingTx(ctx context.Context, tx *sql.Tx, tourID, userID int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	LockBookingTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error)
	// ListBookingsByUser возвращает записи пользователя вместе с турами
	ListBookingsByUser(ctx context.Context, userID int64, status models.BookingStatus) ([]*models.Booking, error)
	UpdateBookingStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.BookingStatus) error
}

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingStorage {
	return &bookingRepository{db: db}
}

const bookingColumns = "id, code, tour_id, user_id, status, participants, total_price, created_at, updated_at"

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(&b.ID, &b.Code, &b.TourID, &b.UserID, &b.Status, &b.Participants, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) CreateBookingTx(ctx context.Context, tx *sql.Tx, b *models.Booking) (*models.Booking, error) {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO bookings (code, tour_id, user_id, status, participants, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		b.Code, b.TourID, b.UserID, b.Status, b.Participants, b.TotalPrice,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrBookingExists
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return b, nil
}

func (r *bookingRepository) FindActiveBookingTx(ctx context.Context, tx *sql.Tx, tourID, userID int64) (*models.Booking, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE tour_id = $1 AND user_id = $2 AND status <> 'CANCELLED' LIMIT 1",
		tourID, userID)
	return scanBooking(row)
}

func (r *bookingRepository) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
	return scanBooking(row)
}

func (r *bookingRepository) LockBookingTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", id)
	return scanBooking(row)
}

func (r *bookingRepository) ListBookingsByUser(ctx context.Context, userID int64, status models.BookingStatus) ([]*models.Booking, error) {
	query := `SELECT b.id, b.code, b.tour_id, b.user_id, b.status, b.participants, b.total_price, b.created_at, b.updated_at,
		t.name, t.date, t.time, t.duration, t.guide, t.category, t.status
		FROM bookings b
		JOIN tours t ON t.id = b.tour_id
		WHERE b.user_id = $1`
	args := []any{userID}
	if status != "" {
		query += " AND b.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY t.date DESC, b.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b := &models.Booking{Tour: &models.Tour{}}
		if err := rows.Scan(&b.ID, &b.Code, &b.TourID, &b.UserID, &b.Status, &b.Participants, &b.TotalPrice,
			&b.CreatedAt, &b.UpdatedAt, &b.Tour.Name, &b.Tour.Date, &b.Tour.Time, &b.Tour.Duration, &b.Tour.Guide,
			&b.Tour.Category, &b.Tour.Status); err != nil {
			return nil, err
		}
		b.Tour.ID = b.TourID
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateBookingStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.BookingStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return expectAffected(res, ErrBookingNotFound)
}
