package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"branchpos/internal/core"
	"branchpos/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// CoreServices bundles the domain services the application layer orchestrates.
type CoreServices struct {
	Users      core.UserService
	Branches   core.BranchService
	Categories core.CategoryService
	Products   core.ProductService
	Suppliers  core.SupplierService
	Expenses   core.ExpenseService
	Inventory  core.InventoryService
	Sales      core.SaleService
	Purchases  core.PurchaseService
	Reports    core.ReportingService
}

// NewCoreServices wires every PostgreSQL-backed domain service to pool.
func NewCoreServices(pool *pgxpool.Pool, opts core.PostingOptions) CoreServices {
	return CoreServices{
		Users:      core.NewUserService(pool),
		Branches:   core.NewBranchService(pool),
		Categories: core.NewCategoryService(pool),
		Products:   core.NewProductService(pool),
		Suppliers:  core.NewSupplierService(pool),
		Expenses:   core.NewExpenseService(pool),
		Inventory:  core.NewInventoryService(pool),
		Sales:      core.NewSaleService(pool, opts),
		Purchases:  core.NewPurchaseService(pool, opts),
		Reports:    core.NewReportingService(pool, opts.Now),
	}
}

type appService struct {
	svc     CoreServices
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// m may be nil, in which case nothing is recorded.
func NewAppService(svc CoreServices, m *metrics.Metrics, log logrus.FieldLogger) ApplicationService {
	return &appService{svc: svc, metrics: m, log: log, now: time.Now}
}

// ── Authorization helpers ─────────────────────────────────────────────────────

func requireRole(p core.Principal, roles ...core.Role) error {
	if p.HasRole(roles...) {
		return nil
	}
	return fmt.Errorf("role %s may not perform this action: %w", p.Role, core.ErrForbidden)
}

func requireBranchAccess(p core.Principal, branchID int) error {
	if p.CanAccessBranch(branchID) {
		return nil
	}
	return fmt.Errorf("no access to branch %d: %w", branchID, core.ErrForbidden)
}

// scopeBranch narrows an optional branch filter to what p may see: owners keep the
// requested value, everyone else is pinned to their own branch.
func scopeBranch(p core.Principal, requested *int) (*int, error) {
	if p.IsOwner() {
		return requested, nil
	}
	if p.BranchID == nil {
		return nil, fmt.Errorf("user %d has no branch: %w", p.UserID, core.ErrForbidden)
	}
	if requested != nil && *requested != *p.BranchID {
		return nil, fmt.Errorf("no access to branch %d: %w", *requested, core.ErrForbidden)
	}
	own := *p.BranchID
	return &own, nil
}

// defaultBranch fills an omitted branch id from p's own branch.
func defaultBranch(p core.Principal, branchID int) int {
	if branchID == 0 && p.BranchID != nil {
		return *p.BranchID
	}
	return branchID
}

var managers = []core.Role{core.RoleOwner, core.RoleManager}

// ── Auth and users ────────────────────────────────────────────────────────────

// AuthenticateUser verifies credentials and returns a session on success.
func (s *appService) AuthenticateUser(ctx context.Context, req LoginRequest) (*UserSession, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", core.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", core.ErrUnauthorized)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user authenticated")
	return &UserSession{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, BranchID: u.BranchID}, nil
}

// CurrentUser reloads the caller's account. A token whose user has since been
// deactivated, removed, or moved to another role or branch is no longer honored here.
func (s *appService) CurrentUser(ctx context.Context, p core.Principal) (*core.User, error) {
	u, err := s.svc.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("user %d no longer exists: %w", p.UserID, core.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %d is deactivated: %w", p.UserID, core.ErrUnauthorized)
	}
	if u.Role != p.Role || !sameBranch(u.BranchID, p.BranchID) {
		return nil, fmt.Errorf("user %d access changed since sign-in: %w", p.UserID, core.ErrUnauthorized)
	}
	return u, nil
}

func sameBranch(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *appService) ListUsers(ctx context.Context, p core.Principal) ([]core.User, error) {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return nil, err
	}
	return s.svc.Users.List(ctx)
}

func (s *appService) GetUser(ctx context.Context, p core.Principal, id int) (*core.User, error) {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return nil, err
	}
	return s.svc.Users.GetByID(ctx, id)
}

func (s *appService) CreateUser(ctx context.Context, p core.Principal, req UserRequest) (*core.User, error) {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return nil, err
	}
	if err := req.validate(true); err != nil {
		return nil, err
	}
	in, err := userInput(req)
	if err != nil {
		return nil, err
	}
	return s.svc.Users.Create(ctx, in)
}

func (s *appService) UpdateUser(ctx context.Context, p core.Principal, id int, req UserRequest) (*core.User, error) {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return nil, err
	}
	if err := req.validate(false); err != nil {
		return nil, err
	}
	in, err := userInput(req)
	if err != nil {
		return nil, err
	}
	return s.svc.Users.Update(ctx, id, in)
}

func (s *appService) DeactivateUser(ctx context.Context, p core.Principal, id int) error {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return err
	}
	if id == p.UserID {
		return fmt.Errorf("users cannot deactivate themselves: %w", core.ErrConflict)
	}
	return s.svc.Users.Deactivate(ctx, id)
}

func userInput(req UserRequest) (core.UserInput, error) {
	in := core.UserInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Role:     req.Role,
		BranchID: req.BranchID,
		IsActive: boolOr(req.IsActive, true),
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return in, fmt.Errorf("failed to hash password: %w", err)
		}
		in.PasswordHash = string(hash)
	}
	return in, nil
}

// ── Branches ──────────────────────────────────────────────────────────────────

func (s *appService) ListBranches(ctx context.Context, p core.Principal) ([]core.Branch, error) {
	if p.IsOwner() {
		return s.svc.Branches.List(ctx, false)
	}
	if p.BranchID == nil {
		return nil, nil
	}
	b, err := s.svc.Branches.Get(ctx, *p.BranchID)
	if err != nil {
		return nil, err
	}
	return []core.Branch{*b}, nil
}

func (s *appService) GetBranch(ctx context.Context, p core.Principal, id int) (*core.Branch, error) {
	if err := requireBranchAccess(p, id); err != nil {
		return nil, err
	}
	return s.svc.Branches.Get(ctx, id)
}

func (s *appService) CreateBranch(ctx context.Context, p core.Principal, req BranchRequest) (*core.Branch, error) {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Branches.Create(ctx, branchInput(req))
}

func (s *appService) UpdateBranch(ctx context.Context, p core.Principal, id int, req BranchRequest) (*core.Branch, error) {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Branches.Update(ctx, id, branchInput(req))
}

func (s *appService) DeleteBranch(ctx context.Context, p core.Principal, id int) error {
	if err := requireRole(p, core.RoleOwner); err != nil {
		return err
	}
	return s.svc.Branches.Delete(ctx, id)
}

func branchInput(req BranchRequest) core.BranchInput {
	return core.BranchInput{
		Name:     strings.TrimSpace(req.Name),
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Address:  req.Address,
		Phone:    req.Phone,
		Email:    req.Email,
		IsActive: boolOr(req.IsActive, true),
	}
}

// ── Catalogue ─────────────────────────────────────────────────────────────────

func (s *appService) ListCategories(ctx context.Context, p core.Principal) ([]core.Category, error) {
	return s.svc.Categories.List(ctx)
}

func (s *appService) GetCategory(ctx context.Context, p core.Principal, id int) (*core.Category, error) {
	return s.svc.Categories.Get(ctx, id)
}

func (s *appService) CreateCategory(ctx context.Context, p core.Principal, req CategoryRequest) (*core.Category, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Categories.Create(ctx, categoryInput(req))
}

func (s *appService) UpdateCategory(ctx context.Context, p core.Principal, id int, req CategoryRequest) (*core.Category, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Categories.Update(ctx, id, categoryInput(req))
}

func (s *appService) DeleteCategory(ctx context.Context, p core.Principal, id int) error {
	if err := requireRole(p, managers...); err != nil {
		return err
	}
	return s.svc.Categories.Delete(ctx, id)
}

func categoryInput(req CategoryRequest) core.CategoryInput {
	return core.CategoryInput{
		Name:     strings.TrimSpace(req.Name),
		Slug:     req.Slug,
		ParentID: req.ParentID,
		IsActive: boolOr(req.IsActive, true),
	}
}

func (s *appService) ListProducts(ctx context.Context, p core.Principal, f core.ProductFilter) ([]core.Product, error) {
	return s.svc.Products.List(ctx, f)
}

func (s *appService) GetProduct(ctx context.Context, p core.Principal, id int) (*core.Product, error) {
	return s.svc.Products.Get(ctx, id)
}

func (s *appService) GetProductByBarcode(ctx context.Context, p core.Principal, barcode string) (*core.Product, error) {
	return s.svc.Products.GetByBarcode(ctx, strings.TrimSpace(barcode))
}

func (s *appService) CreateProduct(ctx context.Context, p core.Principal, req ProductRequest) (*core.Product, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Products.Create(ctx, productInput(req))
}

func (s *appService) UpdateProduct(ctx context.Context, p core.Principal, id int, req ProductRequest) (*core.Product, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Products.Update(ctx, id, productInput(req))
}

func (s *appService) DeleteProduct(ctx context.Context, p core.Principal, id int) error {
	if err := requireRole(p, managers...); err != nil {
		return err
	}
	return s.svc.Products.Delete(ctx, id)
}

func productInput(req ProductRequest) core.ProductInput {
	barcode := req.Barcode
	if barcode != nil && strings.TrimSpace(*barcode) == "" {
		barcode = nil
	}
	return core.ProductInput{
		Name:          strings.TrimSpace(req.Name),
		SKU:           strings.TrimSpace(req.SKU),
		Barcode:       barcode,
		CategoryID:    req.CategoryID,
		Unit:          req.Unit,
		PurchasePrice: core.Round2(req.PurchasePrice),
		SellingPrice:  core.Round2(req.SellingPrice),
		MinimumStock:  req.MinimumStock,
		IsActive:      boolOr(req.IsActive, true),
	}
}

// ── Suppliers ─────────────────────────────────────────────────────────────────

func (s *appService) ListSuppliers(ctx context.Context, p core.Principal, activeOnly bool) ([]core.Supplier, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	return s.svc.Suppliers.List(ctx, activeOnly)
}

func (s *appService) GetSupplier(ctx context.Context, p core.Principal, id int) (*core.Supplier, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	return s.svc.Suppliers.Get(ctx, id)
}

func (s *appService) CreateSupplier(ctx context.Context, p core.Principal, req SupplierRequest) (*core.Supplier, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Suppliers.Create(ctx, supplierInput(req))
}

func (s *appService) UpdateSupplier(ctx context.Context, p core.Principal, id int, req SupplierRequest) (*core.Supplier, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Suppliers.Update(ctx, id, supplierInput(req))
}

func (s *appService) DeleteSupplier(ctx context.Context, p core.Principal, id int) error {
	if err := requireRole(p, managers...); err != nil {
		return err
	}
	return s.svc.Suppliers.Delete(ctx, id)
}

func supplierInput(req SupplierRequest) core.SupplierInput {
	return core.SupplierInput{
		Name:           strings.TrimSpace(req.Name),
		CompanyName:    req.CompanyName,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		OpeningBalance: req.OpeningBalance,
		IsActive:       boolOr(req.IsActive, true),
	}
}

// ── Expenses ──────────────────────────────────────────────────────────────────

func (s *appService) ListExpenses(ctx context.Context, p core.Principal, f core.ExpenseFilter) ([]core.Expense, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	branchID, err := scopeBranch(p, f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID
	return s.svc.Expenses.List(ctx, f)
}

func (s *appService) GetExpense(ctx context.Context, p core.Principal, id int) (*core.Expense, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	e, err := s.svc.Expenses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, e.BranchID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *appService) CreateExpense(ctx context.Context, p core.Principal, req ExpenseRequest) (*core.Expense, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	req.BranchID = defaultBranch(p, req.BranchID)
	expenseDate, err := req.validate()
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, req.BranchID); err != nil {
		return nil, err
	}
	return s.svc.Expenses.Create(ctx, p, expenseInput(req, expenseDate))
}

func (s *appService) UpdateExpense(ctx context.Context, p core.Principal, id int, req ExpenseRequest) (*core.Expense, error) {
	if _, err := s.GetExpense(ctx, p, id); err != nil {
		return nil, err
	}
	req.BranchID = defaultBranch(p, req.BranchID)
	expenseDate, err := req.validate()
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, req.BranchID); err != nil {
		return nil, err
	}
	return s.svc.Expenses.Update(ctx, id, expenseInput(req, expenseDate))
}

func (s *appService) DeleteExpense(ctx context.Context, p core.Principal, id int) error {
	if _, err := s.GetExpense(ctx, p, id); err != nil {
		return err
	}
	return s.svc.Expenses.Delete(ctx, id)
}

func expenseInput(req ExpenseRequest, expenseDate time.Time) core.ExpenseInput {
	return core.ExpenseInput{
		BranchID:    req.BranchID,
		Title:       strings.TrimSpace(req.Title),
		Amount:      req.Amount,
		ExpenseDate: expenseDate,
		Category:    strings.TrimSpace(req.Category),
		Note:        req.Note,
	}
}

// ── Stock ─────────────────────────────────────────────────────────────────────

func (s *appService) GetStockLevels(ctx context.Context, p core.Principal, f core.StockFilter) ([]core.StockLevel, error) {
	branchID, err := scopeBranch(p, f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID
	return s.svc.Inventory.GetStockLevels(ctx, f)
}
