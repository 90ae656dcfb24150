package storage

import (
	"context"
	"database/sql"

	"github.com/linemk/farm-shop/internal/domain/models"
)

type ReviewStorage interface {
	ListReviews(ctx context.Context, tourID int64) ([]models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewStorage {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) ListReviews(ctx context.Context, tourID int64) ([]models.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rv.id, rv.user_id, u.name, rv.tour_id, rv.rating, rv.comment, rv.created_at
		 FROM reviews rv
		 JOIN users u ON u.id = rv.user_id
		 WHERE rv.tour_id = $1
		 ORDER BY rv.created_at DESC`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.TourID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// CreateReview - один отзыв на тур от пользователя, повтор даёт ErrReviewExists
func (r *reviewRepository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO reviews (user_id, tour_id, rating, comment) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		review.UserID, review.TourID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrReviewExists
		}
		return nil, err
	}
	return review, nil
}
