package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type supplierService struct {
	pool *pgxpool.Pool
}

// NewSupplierService constructs a SupplierService backed by PostgreSQL.
func NewSupplierService(pool *pgxpool.Pool) SupplierService {
	return &supplierService{pool: pool}
}

const supplierColumns = `id, name, company_name, email, phone, address, opening_balance, current_balance, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	s := &Supplier{}
	err := row.Scan(&s.ID, &s.Name, &s.CompanyName, &s.Email, &s.Phone, &s.Address,
		&s.OpeningBalance, &s.CurrentBalance, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (s *supplierService) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	q := "SELECT " + supplierColumns + " FROM suppliers"
	if activeOnly {
		q += " WHERE is_active = true"
	}
	rows, err := s.pool.Query(ctx, q+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, *sup)
	}
	return suppliers, rows.Err()
}

func (s *supplierService) Get(ctx context.Context, id int) (*Supplier, error) {
	sup, err := scanSupplier(s.pool.QueryRow(ctx, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("supplier", id)
		}
		return nil, fmt.Errorf("failed to get supplier %d: %w", id, err)
	}
	return sup, nil
}

func (s *supplierService) Create(ctx context.Context, in SupplierInput) (*Supplier, error) {
	opening := Round2(in.OpeningBalance)
	sup, err := scanSupplier(s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, company_name, email, phone, address, opening_balance, current_balance, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		RETURNING `+supplierColumns,
		in.Name, in.CompanyName, in.Email, in.Phone, in.Address, opening, in.IsActive))
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier %q: %w", in.Name, err)
	}
	return sup, nil
}

func (s *supplierService) Update(ctx context.Context, id int, in SupplierInput) (*Supplier, error) {
	sup, err := scanSupplier(s.pool.QueryRow(ctx, `
		UPDATE suppliers
		SET name = $2, company_name = $3, email = $4, phone = $5, address = $6,
		    current_balance = current_balance + ($7 - opening_balance),
		    opening_balance = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+supplierColumns,
		id, in.Name, in.CompanyName, in.Email, in.Phone, in.Address, Round2(in.OpeningBalance), in.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("supplier", id)
		}
		return nil, fmt.Errorf("failed to update supplier %d: %w", id, err)
	}
	return sup, nil
}

func (s *supplierService) Delete(ctx context.Context, id int) error {
	var purchases int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM purchases WHERE supplier_id = $1", id,
	).Scan(&purchases); err != nil {
		return fmt.Errorf("failed to check supplier usage: %w", err)
	}
	if purchases > 0 {
		return fmt.Errorf("supplier %d has %d purchases: %w", id, purchases, ErrConflict)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("supplier %d is still referenced: %w", id, ErrConflict)
		}
		return fmt.Errorf("failed to delete supplier %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("supplier", id)
	}
	return nil
}
