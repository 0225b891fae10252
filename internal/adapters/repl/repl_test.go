package repl

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"branchpos/internal/app"
	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

type fakeApp struct {
	app.ApplicationService

	checkout *app.POSCheckoutRequest
	stockErr bool
}

func (f *fakeApp) CheckoutPOS(_ context.Context, _ core.Principal, req app.POSCheckoutRequest) (*core.Invoice, error) {
	f.checkout = &req
	if f.stockErr {
		return nil, &core.InsufficientStockError{
			ProductID: 7, ProductName: "Water",
			Available: decimal.NewFromInt(1), Requested: decimal.NewFromInt(3), Shortage: decimal.NewFromInt(2),
		}
	}
	return &core.Invoice{
		InvoiceNo: "POS-20260314-0001",
		Date:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Business:  core.BusinessInfo{Name: "Corner Shop"},
		Items: []core.InvoiceItem{
			{ProductID: 7, Name: "Water", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(20), Subtotal: decimal.NewFromInt(60)},
		},
		Payment: core.InvoicePayment{Total: decimal.NewFromInt(60), PaidAmount: decimal.NewFromInt(100), ChangeAmount: decimal.NewFromInt(40)},
	}, nil
}

func salesmanSession() *app.UserSession {
	branch := 2
	return &app.UserSession{UserID: 3, Name: "Sam", Role: core.RoleSalesman, BranchID: &branch}
}

func run(t *testing.T, f *fakeApp, session *app.UserSession, input string) string {
	t.Helper()
	var out bytes.Buffer
	Run(context.Background(), f, session, bufio.NewReader(strings.NewReader(input)), &out)
	return out.String()
}

func TestCheckoutWizardPostsCart(t *testing.T) {
	f := &fakeApp{}
	out := run(t, f, salesmanSession(), "/checkout\n7 3\nnot a line\n9 1 15.50\ndone\n\n100\nWalk-in\n/exit\n")

	if f.checkout == nil {
		t.Fatalf("checkout not called; output:\n%s", out)
	}
	req := f.checkout
	if req.BranchID != 2 {
		t.Errorf("branch = %d, want the operator's branch 2", req.BranchID)
	}
	if req.PaymentMethod != core.PaymentCash {
		t.Errorf("payment method = %q, want cash default", req.PaymentMethod)
	}
	if len(req.CartItems) != 2 {
		t.Fatalf("cart lines = %d, want 2", len(req.CartItems))
	}
	if !req.CartItems[1].UnitPrice.Valid || !req.CartItems[1].UnitPrice.Decimal.Equal(decimal.RequireFromString("15.50")) {
		t.Errorf("price override lost: %+v", req.CartItems[1])
	}
	if !req.PaidAmount.Valid || !req.PaidAmount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("paid = %+v", req.PaidAmount)
	}
	if req.CustomerName != "Walk-in" {
		t.Errorf("customer = %q", req.CustomerName)
	}
	for _, want := range []string{"Invalid line", "POS-20260314-0001", "40.00", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckoutWizardCancel(t *testing.T) {
	f := &fakeApp{}
	out := run(t, f, salesmanSession(), "/checkout\n7 1\ncancel\n")
	if f.checkout != nil {
		t.Error("cancelled checkout must not post")
	}
	if !strings.Contains(out, "Checkout cancelled.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCheckoutOwnerMustNameBranch(t *testing.T) {
	f := &fakeApp{}
	owner := &app.UserSession{UserID: 1, Name: "Olive", Role: core.RoleOwner}
	out := run(t, f, owner, "/checkout\n")
	if f.checkout != nil {
		t.Error("owner checkout without branch must not post")
	}
	if !strings.Contains(out, "owners must name a branch") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCheckoutReportsShortage(t *testing.T) {
	f := &fakeApp{stockErr: true}
	out := run(t, f, salesmanSession(), "/checkout\n7 3\ndone\ncard\n\n\n")
	if f.checkout == nil || f.checkout.PaymentMethod != core.PaymentCard {
		t.Fatalf("checkout = %+v", f.checkout)
	}
	if !strings.Contains(out, "Insufficient stock for Water: available 1, requested 3 (short 2).") {
		t.Errorf("output:\n%s", out)
	}
}

func TestNonSlashInputIsRejected(t *testing.T) {
	out := run(t, &fakeApp{}, salesmanSession(), "sell water\n")
	if !strings.Contains(out, "Commands start with '/'") {
		t.Errorf("output:\n%s", out)
	}
}

func TestParseCartLine(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"7 2", true},
		{"7 0.5 12", true},
		{"7", false},
		{"x 2", false},
		{"7 0", false},
		{"7 -1", false},
		{"7 1 -3", false},
	}
	for _, tc := range cases {
		if _, ok := parseCartLine(tc.in); ok != tc.ok {
			t.Errorf("parseCartLine(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}
}
