package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type branchService struct {
	pool *pgxpool.Pool
}

// NewBranchService constructs a BranchService backed by PostgreSQL.
func NewBranchService(pool *pgxpool.Pool) BranchService {
	return &branchService{pool: pool}
}

const branchColumns = `id, name, code, address, phone, email, is_active, created_at, updated_at`

func scanBranch(row pgx.Row) (*Branch, error) {
	b := &Branch{}
	err := row.Scan(&b.ID, &b.Name, &b.Code, &b.Address, &b.Phone, &b.Email, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *branchService) List(ctx context.Context, activeOnly bool) ([]Branch, error) {
	q := "SELECT " + branchColumns + " FROM branches WHERE deleted_at IS NULL"
	if activeOnly {
		q += " AND is_active = true"
	}
	rows, err := s.pool.Query(ctx, q+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, *b)
	}
	return branches, rows.Err()
}

func (s *branchService) Get(ctx context.Context, id int) (*Branch, error) {
	b, err := scanBranch(s.pool.QueryRow(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE id = $1 AND deleted_at IS NULL", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("branch", id)
		}
		return nil, fmt.Errorf("failed to get branch %d: %w", id, err)
	}
	return b, nil
}

func (s *branchService) Create(ctx context.Context, in BranchInput) (*Branch, error) {
	b, err := scanBranch(s.pool.QueryRow(ctx, `
		INSERT INTO branches (name, code, address, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+branchColumns,
		in.Name, in.Code, in.Address, in.Phone, in.Email, in.IsActive))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fieldError("code", "The code has already been taken.")
		}
		return nil, fmt.Errorf("failed to create branch %q: %w", in.Code, err)
	}
	return b, nil
}

func (s *branchService) Update(ctx context.Context, id int, in BranchInput) (*Branch, error) {
	b, err := scanBranch(s.pool.QueryRow(ctx, `
		UPDATE branches
		SET name = $2, code = $3, address = $4, phone = $5, email = $6, is_active = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+branchColumns,
		id, in.Name, in.Code, in.Address, in.Phone, in.Email, in.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("branch", id)
		}
		if isUniqueViolation(err) {
			return nil, fieldError("code", "The code has already been taken.")
		}
		return nil, fmt.Errorf("failed to update branch %d: %w", id, err)
	}
	return b, nil
}

func (s *branchService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE branches SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to delete branch %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("branch", id)
	}
	return nil
}
