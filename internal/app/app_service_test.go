package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"branchpos/internal/core"
	"branchpos/internal/logging"
	"branchpos/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeUsers struct {
	core.UserService
	byEmail map[string]*core.User
	created []core.UserInput
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*core.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*core.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, &core.NotFoundError{Entity: "user", ID: id}
}

func (f *fakeUsers) Create(_ context.Context, in core.UserInput) (*core.User, error) {
	f.created = append(f.created, in)
	return &core.User{ID: len(f.created), Name: in.Name, Email: in.Email, Role: in.Role, BranchID: in.BranchID}, nil
}

type fakeSales struct {
	core.SaleService
	sale      *core.Sale
	gotInput  core.SaleInput
	gotPOS    core.POSInput
	gotFilter core.SaleFilter
	err       error
	deleted   []int
}

func (f *fakeSales) CreateSale(_ context.Context, _ core.Principal, in core.SaleInput) (*core.Sale, error) {
	f.gotInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.sale, nil
}

func (f *fakeSales) CheckoutPOS(_ context.Context, _ core.Principal, in core.POSInput) (*core.Invoice, error) {
	f.gotPOS = in
	if f.err != nil {
		return nil, f.err
	}
	return &core.Invoice{SaleID: f.sale.ID, InvoiceNo: f.sale.InvoiceNo, Branch: core.InvoiceBranch{ID: f.sale.BranchID}}, nil
}

func (f *fakeSales) GetSale(_ context.Context, id int) (*core.Sale, error) {
	if f.sale == nil || f.sale.ID != id {
		return nil, core.ErrNotFound
	}
	return f.sale, nil
}

func (f *fakeSales) ListSales(_ context.Context, filter core.SaleFilter) ([]core.Sale, error) {
	f.gotFilter = filter
	return nil, nil
}

func (f *fakeSales) DeleteSale(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeReports struct {
	core.ReportingService
	gotFilter core.ReportFilter
}

func (f *fakeReports) DailySales(_ context.Context, filter core.ReportFilter) ([]core.DailyTotal, error) {
	f.gotFilter = filter
	return []core.DailyTotal{{Date: "2026-03-07", Count: 2, Total: decimal.RequireFromString("1100")}}, nil
}

func intPtr(v int) *int { return &v }

var (
	ownerP    = core.Principal{UserID: 1, Role: core.RoleOwner}
	managerP  = core.Principal{UserID: 2, Role: core.RoleManager, BranchID: intPtr(1)}
	salesmanP = core.Principal{UserID: 3, Role: core.RoleSalesman, BranchID: intPtr(1)}
)

func assertCounter(t *testing.T, m *metrics.Metrics, name, help, labels string, want int) {
	t.Helper()
	full := "branchpos_" + name
	expected := fmt.Sprintf("# HELP %s %s\n# TYPE %s counter\n%s{%s} %d\n", full, help, full, full, labels, want)
	if err := testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), full); err != nil {
		t.Error(err)
	}
}

func newTestApp(svc CoreServices) (*appService, *metrics.Metrics) {
	m := metrics.New()
	return NewAppService(svc, m, logging.Discard()).(*appService), m
}

// ── Authentication ────────────────────────────────────────────────────────────

func TestAuthenticateUser(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := &fakeUsers{byEmail: map[string]*core.User{
		"rahim@example.com": {ID: 7, Name: "Rahim", Email: "rahim@example.com", PasswordHash: string(hash), Role: core.RoleManager, BranchID: intPtr(2)},
	}}
	a, _ := newTestApp(CoreServices{Users: users})
	ctx := context.Background()

	session, err := a.AuthenticateUser(ctx, LoginRequest{Email: "rahim@example.com", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if session.UserID != 7 || session.Role != core.RoleManager || *session.BranchID != 2 {
		t.Errorf("unexpected session %+v", session)
	}
	if p := session.Principal(); !p.CanAccessBranch(2) || p.CanAccessBranch(1) {
		t.Errorf("principal branch access wrong: %+v", p)
	}

	cases := []LoginRequest{
		{Email: "rahim@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "secret-pass"},
	}
	for _, req := range cases {
		if _, err := a.AuthenticateUser(ctx, req); !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("login %s: expected ErrUnauthorized, got %v", req.Email, err)
		}
	}

	_, err = a.AuthenticateUser(ctx, LoginRequest{})
	var verr *core.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors["email"]) == 0 || len(verr.Errors["password"]) == 0 {
		t.Errorf("expected email and password field errors, got %v", err)
	}
}

func TestCurrentUserRejectsStaleTokens(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*core.User{
		"active@example.com":  {ID: 2, Role: core.RoleManager, BranchID: intPtr(1), IsActive: true},
		"retired@example.com": {ID: 3, Role: core.RoleSalesman, BranchID: intPtr(1), IsActive: false},
		"owner@example.com":   {ID: 1, Role: core.RoleOwner, IsActive: true},
	}}
	a, _ := newTestApp(CoreServices{Users: users})

	tests := []struct {
		name    string
		p       core.Principal
		wantErr bool
	}{
		{"active manager", managerP, false},
		{"active owner", ownerP, false},
		{"deactivated", salesmanP, true},
		{"removed", core.Principal{UserID: 99, Role: core.RoleOwner}, true},
		{"role changed", core.Principal{UserID: 2, Role: core.RoleOwner}, true},
		{"moved branch", core.Principal{UserID: 2, Role: core.RoleManager, BranchID: intPtr(4)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := a.CurrentUser(context.Background(), tt.p)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnauthorized) {
					t.Errorf("expected ErrUnauthorized, got %v", err)
				}
				return
			}
			if err != nil || u.ID != tt.p.UserID {
				t.Errorf("CurrentUser = %+v, %v", u, err)
			}
		})
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	users := &fakeUsers{}
	a, _ := newTestApp(CoreServices{Users: users})

	req := UserRequest{Name: "Karim", Email: "karim@example.com", Password: "long-enough", Role: core.RoleSalesman, BranchID: intPtr(1)}
	if _, err := a.CreateUser(context.Background(), managerP, req); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("manager creating user: expected ErrForbidden, got %v", err)
	}
	if _, err := a.CreateUser(context.Background(), ownerP, req); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if len(users.created) != 1 {
		t.Fatalf("expected 1 created user, got %d", len(users.created))
	}
	in := users.created[0]
	if in.PasswordHash == req.Password {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(in.PasswordHash), []byte(req.Password)); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if !in.IsActive {
		t.Error("new user should default to active")
	}
}

// ── Authorization ─────────────────────────────────────────────────────────────

func TestScopeBranch(t *testing.T) {
	got, err := scopeBranch(ownerP, nil)
	if err != nil || got != nil {
		t.Errorf("owner without filter: got %v, %v", got, err)
	}
	got, err = scopeBranch(ownerP, intPtr(4))
	if err != nil || *got != 4 {
		t.Errorf("owner with filter: got %v, %v", got, err)
	}
	got, err = scopeBranch(managerP, nil)
	if err != nil || *got != 1 {
		t.Errorf("manager without filter should be pinned to branch 1, got %v, %v", got, err)
	}
	if _, err := scopeBranch(managerP, intPtr(2)); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("manager asking for another branch: expected ErrForbidden, got %v", err)
	}
	if _, err := scopeBranch(core.Principal{UserID: 9, Role: core.RoleSalesman}, nil); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("salesman without branch: expected ErrForbidden, got %v", err)
	}
}

func TestReportsRequireManager(t *testing.T) {
	reports := &fakeReports{}
	a, _ := newTestApp(CoreServices{Reports: reports})
	ctx := context.Background()

	if _, err := a.Report(ctx, salesmanP, "daily-sales", core.ReportFilter{}); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("salesman: expected ErrForbidden, got %v", err)
	}
	if _, err := a.Report(ctx, managerP, "daily-sales", core.ReportFilter{}); err != nil {
		t.Fatalf("manager report: %v", err)
	}
	if reports.gotFilter.BranchID == nil || *reports.gotFilter.BranchID != 1 {
		t.Errorf("manager report should be scoped to branch 1, got %v", reports.gotFilter.BranchID)
	}
	if _, err := a.Report(ctx, ownerP, "no-such-report", core.ReportFilter{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown report: expected ErrNotFound, got %v", err)
	}
}

func TestReportTable(t *testing.T) {
	a, _ := newTestApp(CoreServices{Reports: &fakeReports{}})
	table, err := a.ReportTable(context.Background(), ownerP, "daily-sales", core.ReportFilter{})
	if err != nil {
		t.Fatalf("ReportTable: %v", err)
	}
	if len(table.Columns) != 3 || len(table.Rows) != 1 {
		t.Fatalf("unexpected table shape: %+v", table)
	}
	if table.Rows[0][0] != "2026-03-07" || table.Rows[0][1] != 2 {
		t.Errorf("unexpected row %v", table.Rows[0])
	}

	if _, err := tabulate("dashboard", &core.DashboardReport{}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("dashboard export: expected ErrConflict, got %v", err)
	}
}

func TestTabulateMonthlyProfitAddsTotalRow(t *testing.T) {
	rep := &core.MonthlyProfitReport{
		Year: 2026, Month: 2,
		Days: []core.DailyProfitReport{
			{Date: "2026-02-01"},
			{Date: "2026-02-02"},
		},
		Totals: core.ProfitSummary{SalesCount: 3},
	}
	table, err := tabulate("monthly-profit", rep)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 2 day rows plus total, got %d", len(table.Rows))
	}
	last := table.Rows[2]
	if last[0] != "Total" || last[1] != 3 {
		t.Errorf("unexpected total row %v", last)
	}
	if len(last) != len(table.Columns) {
		t.Errorf("row has %d cells for %d columns", len(last), len(table.Columns))
	}
}

// ── Posting ───────────────────────────────────────────────────────────────────

func TestCreateSaleDefaultsBranchAndCountsMetrics(t *testing.T) {
	sales := &fakeSales{sale: &core.Sale{ID: 5, InvoiceNo: "INV-20260307-0001", Kind: core.SaleKindPlain, BranchID: 1, Total: decimal.RequireFromString("450")}}
	a, m := newTestApp(CoreServices{Sales: sales})

	req := CreateSaleRequest{
		PaymentMethod: core.PaymentCash,
		SaleDate:      "2026-03-07",
		Items:         []CartItemRequest{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
	}
	if _, err := a.CreateSale(context.Background(), salesmanP, req); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sales.gotInput.BranchID != 1 {
		t.Errorf("branch should default to the salesman's branch, got %d", sales.gotInput.BranchID)
	}
	if want := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC); !sales.gotInput.SaleDate.Equal(want) {
		t.Errorf("sale date = %v, want %v", sales.gotInput.SaleDate, want)
	}
	assertCounter(t, m, "sales_posted_total", "Sales committed, by kind (sale or pos).", `kind="sale"`, 1)

	req.BranchID = 2
	if _, err := a.CreateSale(context.Background(), salesmanP, req); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("foreign branch: expected ErrForbidden, got %v", err)
	}
}

func TestCheckoutPOSRenamesCartErrors(t *testing.T) {
	verr := core.NewValidationError()
	verr.Add("items.0.product_id", "The selected product id is invalid.")
	sales := &fakeSales{sale: &core.Sale{ID: 1}, err: verr}
	a, _ := newTestApp(CoreServices{Sales: sales})

	req := POSCheckoutRequest{
		BranchID:      1,
		PaymentMethod: core.PaymentCard,
		CartItems:     []CartItemRequest{{ProductID: 99, Quantity: decimal.NewFromInt(1)}},
	}
	_, err := a.CheckoutPOS(context.Background(), ownerP, req)
	var got *core.ValidationError
	if !errors.As(err, &got) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := got.Errors["cart_items.0.product_id"]; !ok {
		t.Errorf("expected cart_items.0.product_id key, got %v", got.Errors)
	}
}

func TestCheckoutPOSCountsStockRejections(t *testing.T) {
	short := &core.InsufficientStockError{ProductID: 1, ProductName: "Rice 5kg",
		Available: decimal.NewFromInt(1), Requested: decimal.NewFromInt(3), Shortage: decimal.NewFromInt(2)}
	sales := &fakeSales{sale: &core.Sale{ID: 1}, err: short}
	a, m := newTestApp(CoreServices{Sales: sales})

	req := POSCheckoutRequest{
		BranchID:      1,
		PaymentMethod: core.PaymentCash,
		CartItems:     []CartItemRequest{{ProductID: 1, Quantity: decimal.NewFromInt(3)}},
	}
	_, err := a.CheckoutPOS(context.Background(), ownerP, req)
	var got *core.InsufficientStockError
	if !errors.As(err, &got) || !got.Shortage.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected InsufficientStockError with shortage 2, got %v", err)
	}
	assertCounter(t, m, "stock_rejections_total", "Postings or reversals refused because stock would go negative.", `operation="pos"`, 1)
}

func TestListSalesPinsSalesmanToOwnSales(t *testing.T) {
	sales := &fakeSales{}
	a, _ := newTestApp(CoreServices{Sales: sales})
	if _, err := a.ListSales(context.Background(), salesmanP, core.SaleFilter{}); err != nil {
		t.Fatal(err)
	}
	f := sales.gotFilter
	if f.BranchID == nil || *f.BranchID != 1 || f.UserID == nil || *f.UserID != 3 {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestDeleteSaleChecksBranch(t *testing.T) {
	sales := &fakeSales{sale: &core.Sale{ID: 8, BranchID: 2}}
	a, m := newTestApp(CoreServices{Sales: sales})

	if err := a.DeleteSale(context.Background(), managerP, 8); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("manager of branch 1 deleting branch 2 sale: expected ErrForbidden, got %v", err)
	}
	if err := a.DeleteSale(context.Background(), ownerP, 8); err != nil {
		t.Fatalf("owner DeleteSale: %v", err)
	}
	if len(sales.deleted) != 1 || sales.deleted[0] != 8 {
		t.Errorf("unexpected deletions %v", sales.deleted)
	}
	assertCounter(t, m, "documents_reversed_total", "Sales and purchases deleted with their stock effect reversed.", `document="sale"`, 1)
}
