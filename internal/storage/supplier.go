package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/linemk/farm-shop/internal/domain/models"
)

type SupplierFilter struct {
	Status   models.SupplierStatus
	Category string
}

type SupplierStorage interface {
	ListSuppliers(ctx context.Context, filter SupplierFilter) ([]*models.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	CreateSupplier(ctx context.Context, s *models.Supplier) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, s *models.Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error
}

type supplierRepository struct {
	db *sql.DB
}

func NewSupplierRepository(db *sql.DB) SupplierStorage {
	return &supplierRepository{db: db}
}

const supplierColumns = "id, name, contact_name, email, phone, address, category, status, products, notes, created_at, updated_at"

func scanSupplier(row interface{ Scan(...any) error }) (*models.Supplier, error) {
	s := &models.Supplier{}
	var products pq.StringArray
	err := row.Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.Address, &s.Category, &s.Status,
		&products, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}
	s.Products = []string(products)
	if s.Products == nil {
		s.Products = []string{}
	}
	return s, nil
}

func (r *supplierRepository) ListSuppliers(ctx context.Context, filter SupplierFilter) ([]*models.Supplier, error) {
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
	query := "SELECT " + supplierColumns + " FROM suppliers"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := []*models.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *supplierRepository) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id)
	return scanSupplier(row)
}

func (r *supplierRepository) CreateSupplier(ctx context.Context, s *models.Supplier) (*models.Supplier, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO suppliers (name, contact_name, email, phone, address, category, status, products, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		s.Name, s.ContactName, s.Email, s.Phone, s.Address, s.Category, s.Status, pq.Array(s.Products), s.Notes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *supplierRepository) UpdateSupplier(ctx context.Context, s *models.Supplier) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppliers SET name = $1, contact_name = $2, email = $3, phone = $4, address = $5, category = $6,
			status = $7, products = $8, notes = $9, updated_at = NOW()
		 WHERE id = $10`,
		s.Name, s.ContactName, s.Email, s.Phone, s.Address, s.Category, s.Status, pq.Array(s.Products), s.Notes, s.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrSupplierNotFound)
}

func (r *supplierRepository) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrSupplierNotFound)
}
