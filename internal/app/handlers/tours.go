package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// TourRequest создание и изменение тура. Дата - YYYY-MM-DD или RFC3339.
type TourRequest struct {
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description"`
	Date            string          `json:"date" validate:"required"`
	Time            string          `json:"time"`
	Duration        int             `json:"duration" validate:"gte=0"`
	MaxParticipants int             `json:"maxParticipants" validate:"required,gt=0"`
	Guide           string          `json:"guide"`
	Status          string          `json:"status"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Image           string          `json:"image"`
}

func (req TourRequest) toModel() (*models.Tour, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	return &models.Tour{
		Name:            req.Name,
		Description:     req.Description,
		Date:            date,
		Time:            req.Time,
		Duration:        req.Duration,
		MaxParticipants: req.MaxParticipants,
		Guide:           req.Guide,
		Status:          models.TourStatus(strings.ToUpper(req.Status)),
		Category:        models.TourCategory(strings.ToUpper(req.Category)),
		Price:           req.Price,
		Image:           req.Image,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, service.ErrInvalidInput)
	}
	return t, nil
}

type BookingRequest struct {
	TourID       int64 `json:"tourId" validate:"required,gt=0"`
	Participants int   `json:"participants" validate:"required,gt=0"`
}

type BookingStatusRequest struct {
	BookingID int64  `json:"bookingId" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment"`
}

func tourFilter(r *http.Request) (storage.TourFilter, error) {
	filter := storage.TourFilter{
		Category: models.TourCategory(strings.ToUpper(r.URL.Query().Get("category"))),
		Status:   models.TourStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}
	date, err := queryDate(r, "date")
	if err != nil {
		return filter, err
	}
	filter.Date = date
	return filter, nil
}

// ListToursHandler запланированные туры: ?category=&date=
func ListToursHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListTours"
		logger := log.With(slog.String("op", op))

		filter, err := tourFilter(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		list, err := tours.ListAvailable(r.Context(), filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// ListAllToursHandler все туры для персонала, включая прошедшие и отменённые
func ListAllToursHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListAllTours"
		logger := log.With(slog.String("op", op))

		filter, err := tourFilter(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		list, err := tours.ListAll(r.Context(), filter)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func GetTourHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetTour"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		tour, err := tours.Get(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, tour)
	}
}

func CreateTourHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateTour"
		logger := log.With(slog.String("op", op))

		var req TourRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		tour, err := req.toModel()
		if err != nil {
			respondError(w, logger, err)
			return
		}
		created, err := tours.Create(r.Context(), tour)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func UpdateTourHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateTour"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var req TourRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		tour, err := req.toModel()
		if err != nil {
			respondError(w, logger, err)
			return
		}
		tour.ID = id

		updated, err := tours.Update(r.Context(), tour)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func DeleteTourHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteTour"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		if err := tours.Delete(r.Context(), id); err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, MessageResponse{Message: "tour deleted"})
	}
}

// RegisterTourHandler запись на тур. Пользователь берётся из токена, а не из тела.
func RegisterTourHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterTour"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req BookingRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		booking, err := tours.Register(r.Context(), userID, req.TourID, req.Participants)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, booking)
	}
}

// ListMyBookingsHandler записи пользователя: ?status=
func ListMyBookingsHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMyBookings"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		status := models.BookingStatus(strings.ToUpper(r.URL.Query().Get("status")))
		list, err := tours.ListBookings(r.Context(), userID, status)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func UpdateBookingStatusHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateBookingStatus"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		var req BookingStatusRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		booking, err := tours.UpdateBookingStatus(r.Context(), userID, role, req.BookingID,
			models.BookingStatus(strings.ToUpper(req.Status)))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, booking)
	}
}

// TicketHandler отдаёт PDF-билет
func TicketHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.Ticket"
		logger := log.With(slog.String("op", op))

		userID, role, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		pdf, booking, err := tours.Ticket(r.Context(), userID, role, id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%s.pdf"`, booking.Code))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(pdf); err != nil {
			logger.Error("failed to write ticket", slog.Any("error", err))
		}
	}
}

func ListReviewsHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListReviews"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		reviews, err := tours.ListReviews(r.Context(), id)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, reviews)
	}
}

func CreateReviewHandler(log *slog.Logger, tours service.TourService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateReview"
		logger := log.With(slog.String("op", op))

		userID, _, ok := requireUser(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		var req ReviewRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		review, err := tours.CreateReview(r.Context(), userID, id, req.Rating, req.Comment)
		if err != nil {
			respondError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, review)
	}
}

// TicketVerifier проверяет подпись QR-кода билета
type TicketVerifier interface {
	Verify(payload string) (string, error)
}

type VerifyTicketRequest struct {
	Payload string `json:"payload" validate:"required"`
}

type VerifyTicketResponse struct {
	Valid       bool   `json:"valid"`
	BookingCode string `json:"bookingCode,omitempty"`
}

// VerifyTicketHandler проверка билета на входе: поддельный QR - valid=false, а не ошибка
func VerifyTicketHandler(log *slog.Logger, verifier TicketVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyTicket"
		logger := log.With(slog.String("op", op))

		var req VerifyTicketRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}
		code, err := verifier.Verify(req.Payload)
		if err != nil {
			logger.Warn("ticket rejected", slog.Any("error", err))
			respondJSON(w, http.StatusOK, VerifyTicketResponse{Valid: false})
			return
		}
		respondJSON(w, http.StatusOK, VerifyTicketResponse{Valid: true, BookingCode: code})
	}
}
