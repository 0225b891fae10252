package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a purchase counterparty. CurrentBalance is the running payable:
// opening balance plus the due amount of every live purchase.
type Supplier struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	CompanyName    string          `json:"company_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SupplierInput is the writable part of a Supplier.
type SupplierInput struct {
	Name           string
	CompanyName    string
	Email          string
	Phone          string
	Address        string
	OpeningBalance decimal.Decimal
	IsActive       bool
}

// SupplierService manages suppliers.
type SupplierService interface {
	List(ctx context.Context, activeOnly bool) ([]Supplier, error)
	Get(ctx context.Context, id int) (*Supplier, error)
	Create(ctx context.Context, in SupplierInput) (*Supplier, error)
	// Update shifts current_balance by the change in opening_balance.
	Update(ctx context.Context, id int, in SupplierInput) (*Supplier, error)
	// Delete fails with ErrConflict while purchases reference the supplier.
	Delete(ctx context.Context, id int) error
}
