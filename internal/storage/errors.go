package storage

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrItemNotFound         = errors.New("order item not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrTourNotFound         = errors.New("tour not found")
	ErrTourFull             = errors.New("tour has no free spots")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingExists        = errors.New("user already booked this tour")
	ErrReviewExists         = errors.New("review already exists")
	ErrPostNotFound         = errors.New("blog post not found")
	ErrSlugTaken            = errors.New("slug already taken")
	ErrSupplierNotFound     = errors.New("supplier not found")
	ErrLocked               = errors.New("resource is locked, please try again")
)

const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isLockNotAvailable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable
}

// expectAffected возвращает notFound, если запрос не изменил ни одной строки
func expectAffected(res interface{ RowsAffected() (int64, error) }, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
