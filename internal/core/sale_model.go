package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SaleKind distinguishes the plain sale endpoint from POS checkout.
type SaleKind string

const (
	SaleKindPlain SaleKind = "sale"
	SaleKindPOS   SaleKind = "pos"
)

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCard          PaymentMethod = "card"
	PaymentMobileBanking PaymentMethod = "mobile_banking"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobileBanking, PaymentBankTransfer:
		return true
	}
	return false
}

// Sale is a persisted sale header with its lines.
type Sale struct {
	ID            int                 `json:"id"`
	InvoiceNo     string              `json:"invoice_no"`
	Kind          SaleKind            `json:"kind"`
	BranchID      int                 `json:"branch_id"`
	BranchName    string              `json:"branch_name"`
	UserID        int                 `json:"user_id"`
	UserName      string              `json:"user_name"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	SaleDate      time.Time           `json:"sale_date"`
	PaymentMethod PaymentMethod       `json:"payment_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DiscountType  *DiscountType       `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	Discount      decimal.Decimal     `json:"discount"`
	TaxRate       decimal.NullDecimal `json:"tax_rate"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	DueAmount     decimal.Decimal     `json:"due_amount"`
	ChangeAmount  decimal.Decimal     `json:"change_amount"`
	PaymentStatus PaymentStatus       `json:"payment_status"`
	Note          string              `json:"note"`
	TotalProfit   decimal.Decimal     `json:"total_profit"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []SaleItem          `json:"items,omitempty"`
}

// SaleItem is one sold line. UnitCost and Profit are fixed when the sale is posted.
type SaleItem struct {
	ID           int             `json:"id"`
	SaleID       int             `json:"sale_id"`
	ProductID    int             `json:"product_id"`
	ProductName  string          `json:"product_name"`
	SKU          string          `json:"sku"`
	CategoryName *string         `json:"category_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Profit       decimal.Decimal `json:"profit"`
}

// CartLine is one requested line. A missing UnitPrice defaults to the product's list price.
type CartLine struct {
	ProductID int
	Quantity  decimal.Decimal
	UnitPrice decimal.NullDecimal
}

// SaleInput drives the plain sale endpoint: discount and tax are explicit amounts,
// paid defaults to zero.
type SaleInput struct {
	BranchID      int
	SaleDate      time.Time
	PaymentMethod PaymentMethod
	CustomerName  string
	CustomerPhone string
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	PaidAmount    decimal.NullDecimal
	Note          string
	Items         []CartLine
}

// POSInput drives POS checkout: discount is fixed or percentage, tax is a rate,
// paid defaults to the total.
type POSInput struct {
	BranchID      int
	PaymentMethod PaymentMethod
	CustomerName  string
	CustomerPhone string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	TaxRate       decimal.Decimal
	PaidAmount    decimal.NullDecimal
	Note          string
	Items         []CartLine
}

// SaleUpdate changes header metadata only. Nil fields are left as they are.
type SaleUpdate struct {
	CustomerName  *string
	CustomerPhone *string
	PaymentMethod *PaymentMethod
	Note          *string
	PaidAmount    decimal.NullDecimal
}

// SaleFilter narrows ListSales.
type SaleFilter struct {
	BranchID      *int
	UserID        *int
	From          *time.Time
	To            *time.Time
	PaymentStatus PaymentStatus
	Kind          SaleKind
	Search        string // invoice_no or customer name/phone
	Limit         int
}

// Invoice is the printable POS receipt.
type Invoice struct {
	SaleID    int              `json:"sale_id"`
	InvoiceNo string           `json:"invoice_no"`
	Date      time.Time        `json:"date"`
	Business  BusinessInfo     `json:"business"`
	Branch    InvoiceBranch    `json:"branch"`
	Customer  InvoiceCustomer  `json:"customer"`
	Salesman  InvoiceSalesman  `json:"salesman"`
	Items     []InvoiceItem    `json:"items"`
	Payment   InvoicePayment   `json:"payment"`
	Profit    InvoiceProfit    `json:"profit"`
	Note      string           `json:"note,omitempty"`
}

// BusinessInfo is the configured shop identity printed on receipts.
type BusinessInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type InvoiceBranch struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type InvoiceCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type InvoiceSalesman struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type InvoiceItem struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Category  *string         `json:"category"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type InvoicePayment struct {
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DiscountType  *DiscountType       `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	Discount      decimal.Decimal     `json:"discount_amount"`
	TaxableAmount decimal.Decimal     `json:"taxable_amount"`
	TaxRate       decimal.NullDecimal `json:"tax_rate"`
	Tax           decimal.Decimal     `json:"tax_amount"`
	Total         decimal.Decimal     `json:"total"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	ChangeAmount  decimal.Decimal     `json:"change_amount"`
	DueAmount     decimal.Decimal     `json:"due_amount"`
	PaymentMethod PaymentMethod       `json:"payment_method"`
	PaymentStatus PaymentStatus       `json:"payment_status"`
}

type InvoiceProfit struct {
	TotalProfit  decimal.Decimal `json:"total_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// SaleService is the sale side of the Transaction Poster.
type SaleService interface {
	// CreateSale posts a plain sale: locks the cart's stock rows, rejects shortages with
	// *InsufficientStockError, and writes header, lines and stock decrements atomically.
	CreateSale(ctx context.Context, p Principal, in SaleInput) (*Sale, error)
	// CheckoutPOS posts a POS sale and returns its printable invoice.
	CheckoutPOS(ctx context.Context, p Principal, in POSInput) (*Invoice, error)
	GetSale(ctx context.Context, id int) (*Sale, error)
	GetInvoice(ctx context.Context, id int) (*Invoice, error)
	ListSales(ctx context.Context, f SaleFilter) ([]Sale, error)
	UpdateSale(ctx context.Context, id int, in SaleUpdate) (*Sale, error)
	// DeleteSale returns every line's quantity to branch stock and soft-deletes the sale.
	DeleteSale(ctx context.Context, id int) error
}
