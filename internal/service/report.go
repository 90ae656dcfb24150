package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/farm-shop/internal/documents"
	"github.com/linemk/farm-shop/internal/storage"
)

type ReportService interface {
	// Sales - оформленные заказы за период [from, to)
	Sales(ctx context.Context, from, to time.Time) ([]byte, error)
	Inventory(ctx context.Context) ([]byte, error)
}

type reportService struct {
	log         *slog.Logger
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
}

func NewReportService(log *slog.Logger, orderRepo storage.OrderStorage, productRepo storage.ProductStorage) ReportService {
	return &reportService{log: log, orderRepo: orderRepo, productRepo: productRepo}
}

func (s *reportService) Sales(ctx context.Context, from, to time.Time) ([]byte, error) {
	const op = "service.ReportService.Sales"
	logger := s.log.With(slog.String("op", op), slog.Time("from", from), slog.Time("to", to))

	if !to.After(from) {
		return nil, fmt.Errorf("%s: empty period: %w", op, ErrInvalidInput)
	}
	// пустой статус в фильтре исключает корзины (PENDING)
	orders, err := s.orderRepo.ListOrders(ctx, storage.OrderFilter{From: &from, To: &to})
	if err != nil {
		logger.Error("failed to list orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if err := documents.WriteSalesReport(&buf, orders, from, to); err != nil {
		logger.Error("failed to build report", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("sales report built", slog.Int("orders", len(orders)))
	return buf.Bytes(), nil
}

func (s *reportService) Inventory(ctx context.Context) ([]byte, error) {
	const op = "service.ReportService.Inventory"
	logger := s.log.With(slog.String("op", op))

	products, err := s.productRepo.ListProducts(ctx, storage.ProductFilter{})
	if err != nil {
		logger.Error("failed to list products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if err := documents.WriteInventoryReport(&buf, products); err != nil {
		logger.Error("failed to build report", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
