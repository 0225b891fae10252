package core

import (
	"context"
	"time"
)

// Category groups products. ParentID forms a tree of arbitrary depth.
type Category struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	ParentID   *int      `json:"parent_id"`
	ParentName *string   `json:"parent_name,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryInput is the writable part of a Category. An empty Slug is derived from Name.
type CategoryInput struct {
	Name     string
	Slug     string
	ParentID *int
	IsActive bool
}

// CategoryService manages product categories.
type CategoryService interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int) (*Category, error)
	Create(ctx context.Context, in CategoryInput) (*Category, error)
	Update(ctx context.Context, id int, in CategoryInput) (*Category, error)
	// Delete fails with ErrConflict while products or child categories reference the category.
	Delete(ctx context.Context, id int) error
}
