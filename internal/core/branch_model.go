package core

import (
	"context"
	"time"
)

// Branch is a physical shop. Soft-deleted branches are invisible to every read.
type Branch struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BranchInput is the writable part of a Branch.
type BranchInput struct {
	Name     string
	Code     string
	Address  string
	Phone    string
	Email    string
	IsActive bool
}

// BranchService manages branches.
type BranchService interface {
	List(ctx context.Context, activeOnly bool) ([]Branch, error)
	Get(ctx context.Context, id int) (*Branch, error)
	Create(ctx context.Context, in BranchInput) (*Branch, error)
	Update(ctx context.Context, id int, in BranchInput) (*Branch, error)
	Delete(ctx context.Context, id int) error
}
