package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// StockLevel is a branch_stocks row joined with its product and branch.
type StockLevel struct {
	BranchID     int             `json:"branch_id"`
	BranchName   string          `json:"branch_name"`
	ProductID    int             `json:"product_id"`
	ProductName  string          `json:"product_name"`
	SKU          string          `json:"sku"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	IsLow        bool            `json:"is_low"` // quantity <= minimum_stock
}

// StockFilter narrows GetStockLevels.
type StockFilter struct {
	BranchID *int
	LowOnly  bool
	Search   string
}

// InventoryService reads per-branch stock. Stock only changes through the sale and purchase
// posting paths, which call the TX-scoped helpers in inventory_service.go.
type InventoryService interface {
	GetStockLevels(ctx context.Context, f StockFilter) ([]StockLevel, error)
	// GetQuantity returns the branch's quantity of a product; a missing row is zero.
	GetQuantity(ctx context.Context, branchID, productID int) (decimal.Decimal, error)
}
