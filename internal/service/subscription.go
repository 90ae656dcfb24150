package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// SubscriptionUpdate частичное обновление подписки, nil поля не меняются
type SubscriptionUpdate struct {
	PlanID    *string
	PlanName  *string
	Price     *decimal.Decimal
	Frequency *models.Frequency
	Status    *models.SubscriptionStatus
	Items     models.SubscriptionItems
}

type SubscriptionService interface {
	List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error)
	ListMine(ctx context.Context, userID int64) ([]*models.Subscription, error)
	Get(ctx context.Context, userID int64, role models.Role, id int64) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	Update(ctx context.Context, userID int64, role models.Role, id int64, upd SubscriptionUpdate) (*models.Subscription, error)
	Delete(ctx context.Context, userID int64, role models.Role, id int64) error
	// Renew имитирует списание: переносит дату следующей оплаты на один период
	Renew(ctx context.Context, id int64) (*models.Subscription, error)
}

type subscriptionService struct {
	log     *slog.Logger
	subRepo storage.SubscriptionStorage
	now     func() time.Time
}

func NewSubscriptionService(log *slog.Logger, subRepo storage.SubscriptionStorage) SubscriptionService {
	return &subscriptionService{
		log:     log,
		subRepo: subRepo,
		now:     time.Now,
	}
}

func (s *subscriptionService) List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error) {
	const op = "service.SubscriptionService.List"
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	subs, err := s.subRepo.ListSubscriptions(ctx, filter)
	if err != nil {
		s.log.Error("failed to list subscriptions", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

func (s *subscriptionService) ListMine(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	return s.List(ctx, storage.SubscriptionFilter{UserID: userID})
}

func (s *subscriptionService) Get(ctx context.Context, userID int64, role models.Role, id int64) (*models.Subscription, error) {
	const op = "service.SubscriptionService.Get"
	sub, err := s.subRepo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canAccess(sub.UserID, userID, role) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	return sub, nil
}

func (s *subscriptionService) Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	const op = "service.SubscriptionService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", sub.UserID))

	if sub.PlanID == "" || !sub.Frequency.Valid() || sub.Price.IsNegative() || len(sub.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = s.now().UTC()
	}
	sub.Status = models.SubscriptionActive
	sub.NextBillingDate = sub.Frequency.Next(sub.StartDate)

	created, err := s.subRepo.CreateSubscription(ctx, sub)
	if err != nil {
		logger.Error("failed to create subscription", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("subscription created", slog.Int64("subscriptionID", created.ID))
	return created, nil
}

func (s *subscriptionService) Update(ctx context.Context, userID int64, role models.Role, id int64, upd SubscriptionUpdate) (*models.Subscription, error) {
	const op = "service.SubscriptionService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("subscriptionID", id))

	sub, err := s.Get(ctx, userID, role, id)
	if err != nil {
		return nil, err
	}
	// цену назначает магазин, владелец подписки её не меняет
	if upd.Price != nil && !role.IsStaff() {
		logger.Warn("price change rejected", slog.Int64("userID", userID))
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if upd.PlanID != nil {
		sub.PlanID = *upd.PlanID
	}
	if upd.PlanName != nil {
		sub.PlanName = *upd.PlanName
	}
	if upd.Price != nil {
		if upd.Price.IsNegative() {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
		}
		sub.Price = *upd.Price
	}
	if upd.Items != nil {
		sub.Items = upd.Items
	}
	if upd.Frequency != nil && *upd.Frequency != sub.Frequency {
		if !upd.Frequency.Valid() {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
		}
		sub.Frequency = *upd.Frequency
		sub.NextBillingDate = sub.Frequency.Next(s.now().UTC())
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
		}
		if !sub.Status.CanTransitionTo(*upd.Status) {
			return nil, fmt.Errorf("%s: %s -> %s: %w", op, sub.Status, *upd.Status, ErrInvalidTransition)
		}
		sub.Status = *upd.Status
	}

	if err := s.subRepo.UpdateSubscription(ctx, sub); err != nil {
		logger.Error("failed to update subscription", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("subscription updated", slog.String("status", string(sub.Status)))
	return sub, nil
}

func (s *subscriptionService) Delete(ctx context.Context, userID int64, role models.Role, id int64) error {
	const op = "service.SubscriptionService.Delete"
	if _, err := s.Get(ctx, userID, role, id); err != nil {
		return err
	}
	if err := s.subRepo.DeleteSubscription(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription deleted", slog.String("op", op), slog.Int64("subscriptionID", id))
	return nil
}

func (s *subscriptionService) Renew(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "service.SubscriptionService.Renew"
	logger := s.log.With(slog.String("op", op), slog.Int64("subscriptionID", id))

	sub, err := s.subRepo.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status != models.SubscriptionActive {
		return nil, fmt.Errorf("%s: subscription is %s: %w", op, sub.Status, ErrInvalidTransition)
	}

	sub.NextBillingDate = sub.Frequency.Next(sub.NextBillingDate)
	if err := s.subRepo.UpdateSubscription(ctx, sub); err != nil {
		logger.Error("failed to renew subscription", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("subscription renewed", slog.Time("nextBillingDate", sub.NextBillingDate))
	return sub, nil
}
