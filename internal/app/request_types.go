package app

import (
	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

// Request types double as the HTTP JSON bodies and as the source of the published
// JSON Schemas, so json and jsonschema tags are kept in step with validation.

// LoginRequest is the input for AuthenticateUser.
type LoginRequest struct {
	Email    string `json:"email" jsonschema:"required,format=email"`
	Password string `json:"password" jsonschema:"required,minLength=1"`
}

// CartItemRequest is one cart line. UnitPrice defaults to the product's list price.
type CartItemRequest struct {
	ProductID int                 `json:"product_id" jsonschema:"required,minimum=1"`
	Quantity  decimal.Decimal     `json:"quantity" jsonschema:"required"`
	UnitPrice decimal.NullDecimal `json:"unit_price,omitempty"`
}

// CreateSaleRequest is the input for a plain sale. Discount and tax are amounts.
type CreateSaleRequest struct {
	BranchID      int                 `json:"branch_id" jsonschema:"required,minimum=1"`
	SaleDate      string              `json:"sale_date,omitempty" jsonschema:"format=date"`
	PaymentMethod core.PaymentMethod  `json:"payment_method" jsonschema:"required,enum=cash,enum=card,enum=mobile_banking,enum=bank_transfer"`
	CustomerName  string              `json:"customer_name,omitempty" jsonschema:"maxLength=255"`
	CustomerPhone string              `json:"customer_phone,omitempty" jsonschema:"maxLength=32"`
	Discount      decimal.Decimal     `json:"discount,omitempty"`
	Tax           decimal.Decimal     `json:"tax,omitempty"`
	PaidAmount    decimal.NullDecimal `json:"paid_amount,omitempty"`
	Note          string              `json:"note,omitempty"`
	Items         []CartItemRequest   `json:"items" jsonschema:"required,minItems=1"`
}

// POSCheckoutRequest is the input for POS checkout. PaidAmount defaults to the total.
type POSCheckoutRequest struct {
	BranchID      int                 `json:"branch_id" jsonschema:"required,minimum=1"`
	PaymentMethod core.PaymentMethod  `json:"payment_method" jsonschema:"required,enum=cash,enum=card,enum=mobile_banking,enum=bank_transfer"`
	CustomerName  string              `json:"customer_name,omitempty" jsonschema:"maxLength=255"`
	CustomerPhone string              `json:"customer_phone,omitempty" jsonschema:"maxLength=32"`
	DiscountType  core.DiscountType   `json:"discount_type,omitempty" jsonschema:"enum=fixed,enum=percentage"`
	DiscountValue decimal.Decimal     `json:"discount_value,omitempty"`
	TaxRate       decimal.Decimal     `json:"tax_rate,omitempty"`
	PaidAmount    decimal.NullDecimal `json:"paid_amount,omitempty"`
	Note          string              `json:"note,omitempty"`
	CartItems     []CartItemRequest   `json:"cart_items" jsonschema:"required,minItems=1"`
}

// UpdateSaleRequest edits sale header metadata. Absent fields are left unchanged.
type UpdateSaleRequest struct {
	CustomerName  *string             `json:"customer_name,omitempty"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
	PaymentMethod *core.PaymentMethod `json:"payment_method,omitempty" jsonschema:"enum=cash,enum=card,enum=mobile_banking,enum=bank_transfer"`
	Note          *string             `json:"note,omitempty"`
	PaidAmount    decimal.NullDecimal `json:"paid_amount,omitempty"`
}

// PurchaseRequest is the input for recording a purchase. UnitPrice defaults to the
// product's purchase price.
type PurchaseRequest struct {
	BranchID     int                 `json:"branch_id" jsonschema:"required,minimum=1"`
	SupplierID   int                 `json:"supplier_id" jsonschema:"required,minimum=1"`
	PurchaseDate string              `json:"purchase_date,omitempty" jsonschema:"format=date"`
	Discount     decimal.Decimal     `json:"discount,omitempty"`
	Tax          decimal.Decimal     `json:"tax,omitempty"`
	PaidAmount   decimal.NullDecimal `json:"paid_amount,omitempty"`
	Note         string              `json:"note,omitempty"`
	Items        []CartItemRequest   `json:"items" jsonschema:"required,minItems=1"`
}

// UpdatePurchaseRequest edits purchase header metadata.
type UpdatePurchaseRequest struct {
	Note       *string             `json:"note,omitempty"`
	PaidAmount decimal.NullDecimal `json:"paid_amount,omitempty"`
}

type BranchRequest struct {
	Name     string `json:"name" jsonschema:"required,maxLength=255"`
	Code     string `json:"code" jsonschema:"required,maxLength=32"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty" jsonschema:"format=email"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type CategoryRequest struct {
	Name     string `json:"name" jsonschema:"required,maxLength=255"`
	Slug     string `json:"slug,omitempty" jsonschema:"pattern=^[a-z0-9]+(-[a-z0-9]+)*$"`
	ParentID *int   `json:"parent_id,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type ProductRequest struct {
	Name          string          `json:"name" jsonschema:"required,maxLength=255"`
	SKU           string          `json:"sku" jsonschema:"required,maxLength=64"`
	Barcode       *string         `json:"barcode,omitempty" jsonschema:"maxLength=64"`
	CategoryID    *int            `json:"category_id,omitempty"`
	Unit          string          `json:"unit,omitempty" jsonschema:"maxLength=16"`
	PurchasePrice decimal.Decimal `json:"purchase_price" jsonschema:"required"`
	SellingPrice  decimal.Decimal `json:"selling_price" jsonschema:"required"`
	MinimumStock  decimal.Decimal `json:"minimum_stock,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

type SupplierRequest struct {
	Name           string          `json:"name" jsonschema:"required,maxLength=255"`
	CompanyName    string          `json:"company_name,omitempty"`
	Email          string          `json:"email,omitempty" jsonschema:"format=email"`
	Phone          string          `json:"phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}

type ExpenseRequest struct {
	BranchID    int             `json:"branch_id" jsonschema:"required,minimum=1"`
	Title       string          `json:"title" jsonschema:"required,maxLength=255"`
	Amount      decimal.Decimal `json:"amount" jsonschema:"required"`
	ExpenseDate string          `json:"expense_date,omitempty" jsonschema:"format=date"`
	Category    string          `json:"category,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// UserRequest creates or updates a user. Password may be empty on update.
type UserRequest struct {
	Name     string    `json:"name" jsonschema:"required,maxLength=255"`
	Email    string    `json:"email" jsonschema:"required,format=email"`
	Password string    `json:"password,omitempty" jsonschema:"minLength=8"`
	Role     core.Role `json:"role" jsonschema:"required,enum=owner,enum=manager,enum=salesman"`
	BranchID *int      `json:"branch_id,omitempty"`
	IsActive *bool     `json:"is_active,omitempty"`
}
