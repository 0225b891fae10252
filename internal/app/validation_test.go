package app

import (
	"encoding/json"
	"errors"
	"testing"

	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *core.ValidationError, got %v", err)
	}
	return verr.Errors
}

func TestPOSCheckoutRequestValidate(t *testing.T) {
	valid := POSCheckoutRequest{
		BranchID:      1,
		PaymentMethod: core.PaymentCash,
		DiscountType:  core.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		TaxRate:       decimal.NewFromInt(5),
		CartItems:     []CartItemRequest{{ProductID: 1, Quantity: decimal.NewFromInt(2)}},
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *POSCheckoutRequest)
		field  string
	}{
		{"missing branch", func(r *POSCheckoutRequest) { r.BranchID = 0 }, "branch_id"},
		{"bad payment method", func(r *POSCheckoutRequest) { r.PaymentMethod = "cheque" }, "payment_method"},
		{"bad discount type", func(r *POSCheckoutRequest) { r.DiscountType = "coupon" }, "discount_type"},
		{"percentage over 100", func(r *POSCheckoutRequest) { r.DiscountValue = decimal.NewFromInt(101) }, "discount_value"},
		{"negative discount", func(r *POSCheckoutRequest) {
			r.DiscountType = core.DiscountFixed
			r.DiscountValue = decimal.NewFromInt(-1)
		}, "discount_value"},
		{"tax rate over 100", func(r *POSCheckoutRequest) { r.TaxRate = decimal.NewFromInt(120) }, "tax_rate"},
		{"negative paid", func(r *POSCheckoutRequest) { r.PaidAmount = decimal.NewNullDecimal(decimal.NewFromInt(-5)) }, "paid_amount"},
		{"empty cart", func(r *POSCheckoutRequest) { r.CartItems = nil }, "cart_items"},
		{"zero quantity", func(r *POSCheckoutRequest) { r.CartItems[0].Quantity = decimal.Zero }, "cart_items.0.quantity"},
		{"missing product", func(r *POSCheckoutRequest) { r.CartItems[0].ProductID = 0 }, "cart_items.0.product_id"},
		{"quantity finer than a thousandth", func(r *POSCheckoutRequest) {
			r.CartItems[0].Quantity = decimal.RequireFromString("0.0004")
		}, "cart_items.0.quantity"},
		{"unit price finer than a cent", func(r *POSCheckoutRequest) {
			r.CartItems[0].UnitPrice = decimal.NewNullDecimal(decimal.RequireFromString("1.005"))
		}, "cart_items.0.unit_price"},
		{"discount value with three places", func(r *POSCheckoutRequest) { r.DiscountValue = decimal.RequireFromString("9.999") }, "discount_value"},
		{"tax rate with three places", func(r *POSCheckoutRequest) { r.TaxRate = decimal.RequireFromString("7.125") }, "tax_rate"},
		{"paid finer than a cent", func(r *POSCheckoutRequest) {
			r.PaidAmount = decimal.NewNullDecimal(decimal.RequireFromString("10.001"))
		}, "paid_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.CartItems = append([]CartItemRequest(nil), valid.CartItems...)
			tt.mutate(&r)
			errs := fieldErrors(t, r.validate())
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestCreateSaleRequestParsesDate(t *testing.T) {
	r := CreateSaleRequest{
		BranchID:      1,
		PaymentMethod: core.PaymentCard,
		SaleDate:      "2026-02-29",
		Items:         []CartItemRequest{{ProductID: 1, Quantity: decimal.NewFromInt(1)}},
	}
	_, err := r.validate()
	if _, ok := fieldErrors(t, err)["sale_date"]; !ok {
		t.Error("2026-02-29 is not a real date and should be rejected")
	}

	r.SaleDate = ""
	d, err := r.validate()
	if err != nil {
		t.Fatalf("empty date rejected: %v", err)
	}
	if !d.IsZero() {
		t.Errorf("empty date should parse to zero time, got %v", d)
	}
}

func TestUserRequestValidate(t *testing.T) {
	r := UserRequest{Name: "Nadia", Email: "not-an-email", Role: "admin"}
	errs := fieldErrors(t, r.validate(true))
	for _, f := range []string{"email", "password", "role"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected error on %s, got %v", f, errs)
		}
	}

	r = UserRequest{Name: "Nadia", Email: "nadia@example.com", Role: core.RoleManager, BranchID: intPtr(1)}
	if err := r.validate(false); err != nil {
		t.Errorf("update without password should pass: %v", err)
	}
}

func TestRenameCartErrors(t *testing.T) {
	verr := core.NewValidationError()
	verr.Add("items", "At least one item is required.")
	verr.Add("items.2.quantity", "The quantity must be greater than 0.")
	verr.Add("branch_id", "The selected branch id is invalid.")

	errs := fieldErrors(t, renameCartErrors(verr, "cart_items"))
	for _, f := range []string{"cart_items", "cart_items.2.quantity", "branch_id"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected key %s, got %v", f, errs)
		}
	}
	if _, ok := errs["items.2.quantity"]; ok {
		t.Error("old key should be gone")
	}

	plain := errors.New("boom")
	if got := renameCartErrors(plain, "cart_items"); got != plain {
		t.Errorf("non-validation errors must pass through, got %v", got)
	}
}

func TestCartItemRequestAcceptsStringDecimals(t *testing.T) {
	var it CartItemRequest
	if err := json.Unmarshal([]byte(`{"product_id":3,"quantity":"1.5","unit_price":"99.90"}`), &it); err != nil {
		t.Fatal(err)
	}
	if !it.Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("quantity = %s", it.Quantity)
	}
	if !it.UnitPrice.Valid || !it.UnitPrice.Decimal.Equal(decimal.RequireFromString("99.9")) {
		t.Errorf("unit_price = %+v", it.UnitPrice)
	}

	if err := json.Unmarshal([]byte(`{"product_id":3,"quantity":2}`), &it); err != nil {
		t.Fatal(err)
	}
}

func TestSchema(t *testing.T) {
	for _, name := range SchemaNames() {
		s, err := reflectSchema(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if s.Properties == nil || s.Properties.Len() == 0 {
			t.Errorf("%s: schema has no properties", name)
		}
	}

	s, err := reflectSchema("pos-checkout")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"branch_id", "payment_method", "cart_items"} {
		if !contains(doc.Required, f) {
			t.Errorf("%s should be required, got %v", f, doc.Required)
		}
	}
	var taxRate struct {
		OneOf []map[string]any `json:"oneOf"`
	}
	if err := json.Unmarshal(doc.Properties["tax_rate"], &taxRate); err != nil {
		t.Fatal(err)
	}
	if len(taxRate.OneOf) != 2 {
		t.Errorf("tax_rate should accept number or string, got %s", doc.Properties["tax_rate"])
	}

	if _, err := reflectSchema("nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
