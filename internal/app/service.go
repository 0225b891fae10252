package app

import (
	"context"

	"branchpos/internal/core"

	"github.com/invopop/jsonschema"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Every operation takes the
// authenticated principal explicitly; implementations enforce role and branch
// access and contain no display logic of any kind.
type ApplicationService interface {
	// AuthenticateUser verifies credentials and returns a session on success.
	// Unknown, inactive and wrong-password logins all fail with core.ErrUnauthorized.
	AuthenticateUser(ctx context.Context, req LoginRequest) (*UserSession, error)

	// CurrentUser returns the profile behind p.
	CurrentUser(ctx context.Context, p core.Principal) (*core.User, error)

	ListUsers(ctx context.Context, p core.Principal) ([]core.User, error)
	GetUser(ctx context.Context, p core.Principal, id int) (*core.User, error)
	CreateUser(ctx context.Context, p core.Principal, req UserRequest) (*core.User, error)
	UpdateUser(ctx context.Context, p core.Principal, id int, req UserRequest) (*core.User, error)
	DeactivateUser(ctx context.Context, p core.Principal, id int) error

	// ListBranches returns every live branch to owners and only their own branch to others.
	ListBranches(ctx context.Context, p core.Principal) ([]core.Branch, error)
	GetBranch(ctx context.Context, p core.Principal, id int) (*core.Branch, error)
	CreateBranch(ctx context.Context, p core.Principal, req BranchRequest) (*core.Branch, error)
	UpdateBranch(ctx context.Context, p core.Principal, id int, req BranchRequest) (*core.Branch, error)
	DeleteBranch(ctx context.Context, p core.Principal, id int) error

	ListCategories(ctx context.Context, p core.Principal) ([]core.Category, error)
	GetCategory(ctx context.Context, p core.Principal, id int) (*core.Category, error)
	CreateCategory(ctx context.Context, p core.Principal, req CategoryRequest) (*core.Category, error)
	UpdateCategory(ctx context.Context, p core.Principal, id int, req CategoryRequest) (*core.Category, error)
	DeleteCategory(ctx context.Context, p core.Principal, id int) error

	ListProducts(ctx context.Context, p core.Principal, f core.ProductFilter) ([]core.Product, error)
	GetProduct(ctx context.Context, p core.Principal, id int) (*core.Product, error)
	// GetProductByBarcode backs the POS scanner lookup.
	GetProductByBarcode(ctx context.Context, p core.Principal, barcode string) (*core.Product, error)
	CreateProduct(ctx context.Context, p core.Principal, req ProductRequest) (*core.Product, error)
	UpdateProduct(ctx context.Context, p core.Principal, id int, req ProductRequest) (*core.Product, error)
	DeleteProduct(ctx context.Context, p core.Principal, id int) error

	ListSuppliers(ctx context.Context, p core.Principal, activeOnly bool) ([]core.Supplier, error)
	GetSupplier(ctx context.Context, p core.Principal, id int) (*core.Supplier, error)
	CreateSupplier(ctx context.Context, p core.Principal, req SupplierRequest) (*core.Supplier, error)
	UpdateSupplier(ctx context.Context, p core.Principal, id int, req SupplierRequest) (*core.Supplier, error)
	DeleteSupplier(ctx context.Context, p core.Principal, id int) error

	ListExpenses(ctx context.Context, p core.Principal, f core.ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, p core.Principal, id int) (*core.Expense, error)
	CreateExpense(ctx context.Context, p core.Principal, req ExpenseRequest) (*core.Expense, error)
	UpdateExpense(ctx context.Context, p core.Principal, id int, req ExpenseRequest) (*core.Expense, error)
	DeleteExpense(ctx context.Context, p core.Principal, id int) error

	// GetStockLevels returns per-branch stock; non-owners only see their own branch.
	GetStockLevels(ctx context.Context, p core.Principal, f core.StockFilter) ([]core.StockLevel, error)

	// CreateSale posts a plain sale. Stock shortages fail with *core.InsufficientStockError.
	CreateSale(ctx context.Context, p core.Principal, req CreateSaleRequest) (*core.Sale, error)
	// CheckoutPOS posts a POS sale and returns the printable invoice.
	CheckoutPOS(ctx context.Context, p core.Principal, req POSCheckoutRequest) (*core.Invoice, error)
	GetSale(ctx context.Context, p core.Principal, id int) (*core.Sale, error)
	GetInvoice(ctx context.Context, p core.Principal, id int) (*core.Invoice, error)
	ListSales(ctx context.Context, p core.Principal, f core.SaleFilter) ([]core.Sale, error)
	// UpdateSale changes header metadata only; lines and totals are immutable.
	UpdateSale(ctx context.Context, p core.Principal, id int, req UpdateSaleRequest) (*core.Sale, error)
	// DeleteSale reverses the sale's stock effect and soft-deletes it.
	DeleteSale(ctx context.Context, p core.Principal, id int) error

	CreatePurchase(ctx context.Context, p core.Principal, req PurchaseRequest) (*core.Purchase, error)
	GetPurchase(ctx context.Context, p core.Principal, id int) (*core.Purchase, error)
	ListPurchases(ctx context.Context, p core.Principal, f core.PurchaseFilter) ([]core.Purchase, error)
	UpdatePurchase(ctx context.Context, p core.Principal, id int, req UpdatePurchaseRequest) (*core.Purchase, error)
	// DeletePurchase reverses the purchase; it fails as a whole with *core.StockReversalError
	// when any line's stock has already been sold.
	DeletePurchase(ctx context.Context, p core.Principal, id int) error

	// Report runs the named report (see ReportNames) and returns its JSON-ready payload.
	Report(ctx context.Context, p core.Principal, name string, f core.ReportFilter) (any, error)
	// ReportTable runs the named report and flattens it into rows for spreadsheet export.
	ReportTable(ctx context.Context, p core.Principal, name string, f core.ReportFilter) (*ReportTable, error)

	// Schema returns the JSON Schema of the named request body (see SchemaNames).
	Schema(name string) (*jsonschema.Schema, error)
}
