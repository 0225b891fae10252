package core_test

import (
	"errors"
	"testing"

	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func TestComputeTotals_POSPercentageDiscountAndTax(t *testing.T) {
	lines := []core.LineAmount{
		{Quantity: dec("2"), UnitPrice: dec("100")},
		{Quantity: dec("1"), UnitPrice: dec("50")},
	}
	got, err := core.ComputeTotals(lines, core.Pricing{
		DiscountType:        core.DiscountPercentage,
		DiscountValue:       dec("10"),
		TaxRate:             nullDec("5"),
		PaidDefaultsToTotal: true,
	})
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"subtotal", got.Subtotal, "250"},
		{"discount", got.Discount, "25"},
		{"taxable", got.Taxable, "225"},
		{"tax", got.Tax, "11.25"},
		{"total", got.Total, "236.25"},
		{"paid", got.Paid, "236.25"},
		{"due", got.Due, "0"},
		{"change", got.Change, "0"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
	if got.PaymentStatus != core.PaymentPaid {
		t.Errorf("expected paid, got %s", got.PaymentStatus)
	}
}

func TestComputeTotals_PlainSaleDefaultsToUnpaid(t *testing.T) {
	got, err := core.ComputeTotals([]core.LineAmount{{Quantity: dec("1"), UnitPrice: dec("100")}}, core.Pricing{})
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if got.PaymentStatus != core.PaymentUnpaid {
		t.Errorf("expected unpaid, got %s", got.PaymentStatus)
	}
	if !got.Due.Equal(dec("100")) {
		t.Errorf("expected due 100, got %s", got.Due)
	}
}

func TestComputeTotals_OverpaymentGivesChangeAndZeroDue(t *testing.T) {
	got, err := core.ComputeTotals([]core.LineAmount{{Quantity: dec("1"), UnitPrice: dec("100")}}, core.Pricing{
		PaidAmount: nullDec("150"),
	})
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if !got.Change.Equal(dec("50")) {
		t.Errorf("expected change 50, got %s", got.Change)
	}
	if !got.Due.IsZero() {
		t.Errorf("expected due floored at 0, got %s", got.Due)
	}
	if got.PaymentStatus != core.PaymentPaid {
		t.Errorf("expected paid, got %s", got.PaymentStatus)
	}
}

func TestComputeTotals_ExplicitDiscountAndTax(t *testing.T) {
	got, err := core.ComputeTotals([]core.LineAmount{{Quantity: dec("3"), UnitPrice: dec("19.99")}}, core.Pricing{
		DiscountValue: dec("4.97"),
		TaxAmount:     dec("2.50"),
		PaidAmount:    nullDec("20"),
	})
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if !got.Total.Equal(dec("57.50")) {
		t.Errorf("expected total 57.50, got %s", got.Total)
	}
	if !got.Due.Equal(dec("37.50")) {
		t.Errorf("expected due 37.50, got %s", got.Due)
	}
	if got.PaymentStatus != core.PaymentPartial {
		t.Errorf("expected partial, got %s", got.PaymentStatus)
	}
}

func TestComputeTotals_RejectsBadAdjustments(t *testing.T) {
	lines := []core.LineAmount{{Quantity: dec("1"), UnitPrice: dec("10")}}
	tests := []struct {
		name  string
		p     core.Pricing
		field string
	}{
		{"discount above subtotal", core.Pricing{DiscountValue: dec("11")}, "discount"},
		{"percentage above 100", core.Pricing{DiscountType: core.DiscountPercentage, DiscountValue: dec("101")}, "discount_value"},
		{"negative discount", core.Pricing{DiscountValue: dec("-1")}, "discount"},
		{"tax rate above 100", core.Pricing{TaxRate: nullDec("150")}, "tax_rate"},
		{"negative tax", core.Pricing{TaxAmount: dec("-2")}, "tax"},
		{"negative paid", core.Pricing{PaidAmount: nullDec("-5")}, "paid_amount"},
		{"discount amount below a cent", core.Pricing{DiscountValue: dec("0.005")}, "discount"},
		{"percentage with three places", core.Pricing{DiscountType: core.DiscountPercentage, DiscountValue: dec("12.345")}, "discount_value"},
		{"tax rate with three places", core.Pricing{TaxRate: nullDec("7.125")}, "tax_rate"},
		{"tax amount below a cent", core.Pricing{TaxAmount: dec("0.001")}, "tax"},
		{"paid below a cent", core.Pricing{PaidAmount: nullDec("5.001")}, "paid_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.ComputeTotals(lines, tt.p)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Errors[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, verr.Errors)
			}
		})
	}
}

// total == round(S − d + (S − d)·t/100, 2) for a spread of carts.
func TestComputeTotals_TotalArithmetic(t *testing.T) {
	carts := []struct {
		lines    []core.LineAmount
		discount string
		rate     string
	}{
		{[]core.LineAmount{{Quantity: dec("3"), UnitPrice: dec("33.33")}}, "0.99", "7.5"},
		{[]core.LineAmount{{Quantity: dec("1.5"), UnitPrice: dec("12.40")}, {Quantity: dec("4"), UnitPrice: dec("0.99")}}, "2", "13"},
		{[]core.LineAmount{{Quantity: dec("10"), UnitPrice: dec("0.01")}}, "0", "100"},
	}
	for i, c := range carts {
		got, err := core.ComputeTotals(c.lines, core.Pricing{
			DiscountType:  core.DiscountFixed,
			DiscountValue: dec(c.discount),
			TaxRate:       nullDec(c.rate),
		})
		if err != nil {
			t.Fatalf("cart %d: ComputeTotals failed: %v", i, err)
		}
		taxable := got.Subtotal.Sub(dec(c.discount))
		want := taxable.Add(taxable.Mul(dec(c.rate)).Div(decimal.NewFromInt(100))).Round(2)
		if !got.Total.Equal(want) {
			t.Errorf("cart %d: expected total %s, got %s", i, want, got.Total)
		}
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		total, paid string
		want        core.PaymentStatus
	}{
		{"100", "0", core.PaymentUnpaid},
		{"100", "0.01", core.PaymentPartial},
		{"100", "99.99", core.PaymentPartial},
		{"100", "100", core.PaymentPaid},
		{"100", "150", core.PaymentPaid},
		{"0", "0", core.PaymentPaid},
	}
	for _, tt := range tests {
		if got := core.DerivePaymentStatus(dec(tt.total), dec(tt.paid)); got != tt.want {
			t.Errorf("total=%s paid=%s: expected %s, got %s", tt.total, tt.paid, tt.want, got)
		}
	}
}

func TestLineProfitAndMargin(t *testing.T) {
	if got := core.LineProfit(dec("3"), dec("15"), dec("10.50")); !got.Equal(dec("13.50")) {
		t.Errorf("expected profit 13.50, got %s", got)
	}
	if got := core.Margin(dec("25"), dec("200")); !got.Equal(dec("12.5")) {
		t.Errorf("expected margin 12.5, got %s", got)
	}
	if got := core.Margin(dec("25"), decimal.Zero); !got.IsZero() {
		t.Errorf("expected zero margin on zero revenue, got %s", got)
	}
	if got := core.Growth(dec("150"), dec("100")); !got.Equal(dec("50")) {
		t.Errorf("expected growth 50, got %s", got)
	}
}

func TestExceedsPlaces(t *testing.T) {
	tests := []struct {
		in     string
		places int32
		want   bool
	}{
		{"1.005", core.MoneyPlaces, true},
		{"1.00", core.MoneyPlaces, false},
		{"1.500", core.MoneyPlaces, false},
		{"-0.001", core.MoneyPlaces, true},
		{"0.0004", core.QuantityPlaces, true},
		{"0.125", core.QuantityPlaces, false},
		{"42", core.QuantityPlaces, false},
	}
	for _, tt := range tests {
		if got := core.ExceedsPlaces(dec(tt.in), tt.places); got != tt.want {
			t.Errorf("ExceedsPlaces(%s, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}
