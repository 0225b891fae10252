package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a persisted purchase header with its lines.
type Purchase struct {
	ID            int             `json:"id"`
	InvoiceNo     string          `json:"invoice_no"`
	BranchID      int             `json:"branch_id"`
	BranchName    string          `json:"branch_name"`
	SupplierID    int             `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	UserID        int             `json:"user_id"`
	UserName      string          `json:"user_name"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	DueAmount     decimal.Decimal `json:"due_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []PurchaseItem  `json:"items,omitempty"`
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	ID          int             `json:"id"`
	PurchaseID  int             `json:"purchase_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// PurchaseInput drives purchase posting. Discount and tax are explicit amounts.
type PurchaseInput struct {
	BranchID     int
	SupplierID   int
	PurchaseDate time.Time
	Discount     decimal.Decimal
	Tax          decimal.Decimal
	PaidAmount   decimal.NullDecimal
	Note         string
	Items        []CartLine
}

// PurchaseUpdate changes header metadata only. A valid PaidAmount re-derives due and status
// and moves the supplier balance by the change in due.
type PurchaseUpdate struct {
	Note       *string
	PaidAmount decimal.NullDecimal
}

// PurchaseFilter narrows ListPurchases.
type PurchaseFilter struct {
	BranchID      *int
	SupplierID    *int
	From          *time.Time
	To            *time.Time
	PaymentStatus PaymentStatus
	Search        string
	Limit         int
}

// PurchaseService is the purchase side of the Transaction Poster.
type PurchaseService interface {
	// CreatePurchase writes header and lines, increments (creating when absent) branch stock,
	// and adds the due amount to the supplier balance, atomically.
	CreatePurchase(ctx context.Context, p Principal, in PurchaseInput) (*Purchase, error)
	GetPurchase(ctx context.Context, id int) (*Purchase, error)
	ListPurchases(ctx context.Context, f PurchaseFilter) ([]Purchase, error)
	UpdatePurchase(ctx context.Context, id int, in PurchaseUpdate) (*Purchase, error)
	// DeletePurchase subtracts every line from branch stock, failing as a whole with
	// *StockReversalError if any row would go negative, then reverses the supplier balance.
	DeletePurchase(ctx context.Context, id int) error
}
