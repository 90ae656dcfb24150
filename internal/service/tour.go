package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// TicketRenderer формирует PDF-билет по записи на тур
type TicketRenderer interface {
	Render(b *models.Booking, t *models.Tour, holder string) ([]byte, error)
}

type TourService interface {
	ListAvailable(ctx context.Context, filter storage.TourFilter) ([]*models.Tour, error)
	ListAll(ctx context.Context, filter storage.TourFilter) ([]*models.Tour, error)
	Get(ctx context.Context, id int64) (*models.Tour, error)
	Create(ctx context.Context, t *models.Tour) (*models.Tour, error)
	Update(ctx context.Context, t *models.Tour) (*models.Tour, error)
	Delete(ctx context.Context, id int64) error

	Register(ctx context.Context, userID, tourID int64, participants int) (*models.Booking, error)
	ListBookings(ctx context.Context, userID int64, status models.BookingStatus) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, userID int64, role models.Role, bookingID int64, status models.BookingStatus) (*models.Booking, error)
	Ticket(ctx context.Context, userID int64, role models.Role, bookingID int64) ([]byte, *models.Booking, error)

	ListReviews(ctx context.Context, tourID int64) ([]models.Review, error)
	CreateReview(ctx context.Context, userID, tourID int64, rating int, comment string) (*models.Review, error)
}

type tourService struct {
	log         *slog.Logger
	db          *sql.DB
	tourRepo    storage.TourStorage
	bookingRepo storage.BookingStorage
	reviewRepo  storage.ReviewStorage
	userRepo    storage.UserStorage
	outbox      storage.OutboxStorage
	tickets     TicketRenderer
}

func NewTourService(log *slog.Logger, db *sql.DB, tourRepo storage.TourStorage, bookingRepo storage.BookingStorage,
	reviewRepo storage.ReviewStorage, userRepo storage.UserStorage, outbox storage.OutboxStorage, tickets TicketRenderer) TourService {
	return &tourService{
		log:         log,
		db:          db,
		tourRepo:    tourRepo,
		bookingRepo: bookingRepo,
		reviewRepo:  reviewRepo,
		userRepo:    userRepo,
		outbox:      outbox,
		tickets:     tickets,
	}
}

// ListAvailable - только запланированные туры
func (s *tourService) ListAvailable(ctx context.Context, filter storage.TourFilter) ([]*models.Tour, error) {
	filter.Status = models.TourScheduled
	return s.ListAll(ctx, filter)
}

func (s *tourService) ListAll(ctx context.Context, filter storage.TourFilter) ([]*models.Tour, error) {
	const op = "service.TourService.List"
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%s: unknown category: %w", op, ErrInvalidInput)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	tours, err := s.tourRepo.ListTours(ctx, filter)
	if err != nil {
		s.log.Error("failed to list tours", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tours, nil
}

// Get возвращает тур вместе с отзывами
func (s *tourService) Get(ctx context.Context, id int64) (*models.Tour, error) {
	const op = "service.TourService.Get"
	tour, err := s.tourRepo.GetTour(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reviews, err := s.reviewRepo.ListReviews(ctx, id)
	if err != nil {
		s.log.Error("failed to list reviews", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tour.Reviews = reviews
	return tour, nil
}

func validateTour(t *models.Tour) error {
	if strings.TrimSpace(t.Name) == "" || t.Date.IsZero() || t.MaxParticipants <= 0 || t.Duration < 0 || t.Price.IsNegative() {
		return ErrInvalidInput
	}
	if !t.Category.Valid() {
		return ErrInvalidInput
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (s *tourService) Create(ctx context.Context, t *models.Tour) (*models.Tour, error) {
	const op = "service.TourService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("name", t.Name))

	if t.Status == "" {
		t.Status = models.TourScheduled
	}
	if t.Category == "" {
		t.Category = models.TourCategoryGeneral
	}
	if err := validateTour(t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t.CurrentParticipants = 0

	created, err := s.tourRepo.CreateTour(ctx, t)
	if err != nil {
		logger.Error("failed to create tour", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("tour created", slog.Int64("tourID", created.ID))
	return created, nil
}

// Update меняет описание тура. Счётчик участников не редактируется,
// а вместимость нельзя опустить ниже уже записанных.
func (s *tourService) Update(ctx context.Context, t *models.Tour) (*models.Tour, error) {
	const op = "service.TourService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("tourID", t.ID))

	current, err := s.tourRepo.GetTour(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t.Status == "" {
		t.Status = current.Status
	}
	if t.Category == "" {
		t.Category = current.Category
	}
	if err := validateTour(t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t.MaxParticipants < current.CurrentParticipants {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCapacity)
	}

	if err := s.tourRepo.UpdateTour(ctx, t); err != nil {
		logger.Error("failed to update tour", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t.CurrentParticipants = current.CurrentParticipants
	t.CreatedAt = current.CreatedAt
	logger.Info("tour updated")
	return t, nil
}

func (s *tourService) Delete(ctx context.Context, id int64) error {
	const op = "service.TourService.Delete"
	if err := s.tourRepo.DeleteTour(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("tour deleted", slog.String("op", op), slog.Int64("tourID", id))
	return nil
}

type bookingEvent struct {
	BookingID    int64  `json:"bookingId"`
	Code         string `json:"code"`
	TourID       int64  `json:"tourId"`
	UserID       int64  `json:"userId"`
	Participants int    `json:"participants"`
}

// Register записывает пользователя на тур. Строка тура блокируется на время
// проверки вместимости, запись и счётчик меняются в одной транзакции.
func (s *tourService) Register(ctx context.Context, userID, tourID int64, participants int) (*models.Booking, error) {
	const op = "service.TourService.Register"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("tourID", tourID))

	if participants <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	tour, err := s.tourRepo.LockTourTx(ctx, tx, tourID)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: failed to lock tour: %w", op, err)
	}
	if tour.Status != models.TourScheduled {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: %w", op, ErrTourNotAvailable)
	}

	_, err = s.bookingRepo.FindActiveBookingTx(ctx, tx, tourID, userID)
	switch {
	case err == nil:
		rollback(tx, logger)
		logger.Warn("duplicate booking")
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyBooked)
	case !errors.Is(err, storage.ErrBookingNotFound):
		rollback(tx, logger)
		logger.Error("failed to check existing booking", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to check existing booking: %w", op, err)
	}

	if tour.CurrentParticipants+participants > tour.MaxParticipants {
		rollback(tx, logger)
		logger.Warn("not enough spots", slog.Int("available", tour.AvailableSpots()))
		return nil, fmt.Errorf("%s: %w", op, &CapacityError{AvailableSpots: tour.AvailableSpots()})
	}

	booking, err := s.bookingRepo.CreateBookingTx(ctx, tx, &models.Booking{
		Code:         uuid.NewString(),
		TourID:       tourID,
		UserID:       userID,
		Status:       models.BookingConfirmed,
		Participants: participants,
		TotalPrice:   tour.Price.Mul(decimal.NewFromInt(int64(participants))),
	})
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrBookingExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyBooked)
		}
		logger.Error("failed to create booking", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create booking: %w", op, err)
	}

	if err := s.tourRepo.AdjustParticipantsTx(ctx, tx, tourID, participants); err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrTourFull) {
			return nil, fmt.Errorf("%s: %w", op, &CapacityError{AvailableSpots: tour.AvailableSpots()})
		}
		logger.Error("failed to update participants", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update participants: %w", op, err)
	}

	event := bookingEvent{BookingID: booking.ID, Code: booking.Code, TourID: tourID, UserID: userID, Participants: participants}
	if err := writeEvent(ctx, tx, s.outbox, "booking", booking.ID, models.EventTourBooked, event); err != nil {
		rollback(tx, logger)
		logger.Error("failed to write outbox event", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to write outbox event: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	tour.CurrentParticipants += participants
	booking.Tour = tour
	logger.Info("tour booked", slog.Int64("bookingID", booking.ID), slog.Int("participants", participants))
	return booking, nil
}

func (s *tourService) ListBookings(ctx context.Context, userID int64, status models.BookingStatus) ([]*models.Booking, error) {
	const op = "service.TourService.ListBookings"
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	bookings, err := s.bookingRepo.ListBookingsByUser(ctx, userID, status)
	if err != nil {
		s.log.Error("failed to list bookings", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bookings, nil
}

// UpdateBookingStatus: владелец может только отменить запись, сотрудник - выставить любой статус.
// Отмена освобождает места ровно один раз, отменённая запись не восстанавливается.
func (s *tourService) UpdateBookingStatus(ctx context.Context, userID int64, role models.Role, bookingID int64, status models.BookingStatus) (*models.Booking, error) {
	const op = "service.TourService.UpdateBookingStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("bookingID", bookingID), slog.String("status", string(status)))

	if !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	booking, err := s.bookingRepo.LockBookingTx(ctx, tx, bookingID)
	if err != nil {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: failed to lock booking: %w", op, err)
	}

	if !role.IsStaff() && (booking.UserID != userID || status != models.BookingCancelled) {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if booking.Status == status {
		rollback(tx, logger)
		return booking, nil
	}
	if booking.Status == models.BookingCancelled {
		rollback(tx, logger)
		return nil, fmt.Errorf("%s: %w", op, ErrBookingCancelled)
	}

	if status == models.BookingCancelled {
		if err := s.tourRepo.AdjustParticipantsTx(ctx, tx, booking.TourID, -booking.Participants); err != nil {
			rollback(tx, logger)
			logger.Error("failed to release spots", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to release spots: %w", op, err)
		}
	}

	if err := s.bookingRepo.UpdateBookingStatusTx(ctx, tx, bookingID, status); err != nil {
		rollback(tx, logger)
		logger.Error("failed to update booking status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update booking status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("booking status updated", slog.String("from", string(booking.Status)))
	booking.Status = status
	return booking, nil
}

func (s *tourService) Ticket(ctx context.Context, userID int64, role models.Role, bookingID int64) ([]byte, *models.Booking, error) {
	const op = "service.TourService.Ticket"
	logger := s.log.With(slog.String("op", op), slog.Int64("bookingID", bookingID))

	booking, err := s.bookingRepo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canAccess(booking.UserID, userID, role) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if booking.Status == models.BookingCancelled {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrBookingCancelled)
	}

	tour, err := s.tourRepo.GetTour(ctx, booking.TourID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	holder := ""
	if user, err := s.userRepo.GetUserByID(ctx, booking.UserID); err == nil {
		holder = user.Name
	} else {
		logger.Warn("failed to load ticket holder", slog.Any("error", err))
	}

	pdf, err := s.tickets.Render(booking, tour, holder)
	if err != nil {
		logger.Error("failed to render ticket", slog.Any("error", err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	booking.Tour = tour
	return pdf, booking, nil
}

func (s *tourService) ListReviews(ctx context.Context, tourID int64) ([]models.Review, error) {
	const op = "service.TourService.ListReviews"
	if _, err := s.tourRepo.GetTour(ctx, tourID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reviews, err := s.reviewRepo.ListReviews(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reviews, nil
}

func (s *tourService) CreateReview(ctx context.Context, userID, tourID int64, rating int, comment string) (*models.Review, error) {
	const op = "service.TourService.CreateReview"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("tourID", tourID))

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRating)
	}
	if _, err := s.tourRepo.GetTour(ctx, tourID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	review, err := s.reviewRepo.CreateReview(ctx, &models.Review{
		UserID:  userID,
		TourID:  tourID,
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("review created", slog.Int("rating", rating))
	return review, nil
}
