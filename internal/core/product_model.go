package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalogue item. Prices are the current list prices; sales snapshot
// purchase_price into sale_items.unit_cost at posting time.
type Product struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Barcode       *string         `json:"barcode"`
	CategoryID    *int            `json:"category_id"`
	CategoryName  *string         `json:"category_name,omitempty"`
	Unit          string          `json:"unit"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	MinimumStock  decimal.Decimal `json:"minimum_stock"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductInput is the writable part of a Product.
type ProductInput struct {
	Name          string
	SKU           string
	Barcode       *string
	CategoryID    *int
	Unit          string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	MinimumStock  decimal.Decimal
	IsActive      bool
}

// ProductFilter narrows List. Search matches name, sku or barcode.
type ProductFilter struct {
	Search     string
	CategoryID *int
	ActiveOnly bool
}

// ProductService manages the product catalogue.
type ProductService interface {
	List(ctx context.Context, f ProductFilter) ([]Product, error)
	Get(ctx context.Context, id int) (*Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	// Create and Update report duplicate sku/barcode as a *ValidationError.
	Create(ctx context.Context, in ProductInput) (*Product, error)
	Update(ctx context.Context, id int, in ProductInput) (*Product, error)
	Delete(ctx context.Context, id int) error
}
