package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from paid vs total, never set directly.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

// DiscountType selects how Pricing.DiscountValue is applied.
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

var hundred = decimal.NewFromInt(100)

// Stored scale of money and quantity columns (NUMERIC(14,2) and NUMERIC(14,3)).
// Inputs finer than this are rejected so stored rows reproduce their totals.
const (
	MoneyPlaces    int32 = 2
	QuantityPlaces int32 = 3
)

// ExceedsPlaces reports whether d has non-zero digits beyond places decimals.
func ExceedsPlaces(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

func checkPlaces(verr *ValidationError, field string, d decimal.Decimal, places int32) {
	if ExceedsPlaces(d, places) {
		verr.Add(field, fmt.Sprintf("The %s may not have more than %d decimal places.", strings.ReplaceAll(lastSegment(field), "_", " "), places))
	}
}

func lastSegment(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[i+1:]
	}
	return field
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DerivePaymentStatus: paid >= total is paid, paid > 0 is partial, otherwise unpaid.
func DerivePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// LineAmount is the priced part of a cart line.
type LineAmount struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Subtotal is quantity × unit price rounded to cents.
func (l LineAmount) Subtotal() decimal.Decimal {
	return Round2(l.Quantity.Mul(l.UnitPrice))
}

// Pricing holds the header-level adjustments applied to a cart.
//
// DiscountType percentage applies DiscountValue% of the subtotal; fixed or none treats
// DiscountValue as an amount. When TaxRate is valid, tax is TaxRate% of the taxable amount,
// otherwise TaxAmount is used as given. When PaidAmount is not valid the paid amount is
// zero, or the total if PaidDefaultsToTotal is set.
type Pricing struct {
	DiscountType        DiscountType
	DiscountValue       decimal.Decimal
	TaxRate             decimal.NullDecimal
	TaxAmount           decimal.Decimal
	PaidAmount          decimal.NullDecimal
	PaidDefaultsToTotal bool
}

// Totals is the computed money breakdown of one sale or purchase.
type Totals struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Taxable       decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Paid          decimal.Decimal
	Due           decimal.Decimal
	Change        decimal.Decimal
	PaymentStatus PaymentStatus
}

// ComputeTotals applies subtotal, discount, tax, total, paid, due/change and status in that order.
// It rejects negative adjustments, percentages above 100 and a discount larger than the subtotal.
func ComputeTotals(lines []LineAmount, p Pricing) (Totals, error) {
	verr := NewValidationError()

	var t Totals
	t.Subtotal = decimal.Zero
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal())
	}

	if p.DiscountValue.IsNegative() {
		verr.Add("discount", "The discount must be at least 0.")
	}
	discountField := "discount_value"
	if p.DiscountType == DiscountNone {
		discountField = "discount"
	}
	checkPlaces(verr, discountField, p.DiscountValue, MoneyPlaces)
	checkPlaces(verr, "tax", p.TaxAmount, MoneyPlaces)
	if p.TaxRate.Valid {
		checkPlaces(verr, "tax_rate", p.TaxRate.Decimal, MoneyPlaces)
	}
	if p.PaidAmount.Valid {
		checkPlaces(verr, "paid_amount", p.PaidAmount.Decimal, MoneyPlaces)
	}
	switch p.DiscountType {
	case DiscountPercentage:
		if p.DiscountValue.GreaterThan(hundred) {
			verr.Add("discount_value", "The discount percentage may not be greater than 100.")
		}
		t.Discount = Round2(t.Subtotal.Mul(p.DiscountValue).Div(hundred))
	default:
		t.Discount = Round2(p.DiscountValue)
	}
	if t.Discount.GreaterThan(t.Subtotal) {
		verr.Add("discount", "The discount may not be greater than the subtotal.")
	}

	t.Taxable = t.Subtotal.Sub(t.Discount)
	if p.TaxRate.Valid {
		if p.TaxRate.Decimal.IsNegative() || p.TaxRate.Decimal.GreaterThan(hundred) {
			verr.Add("tax_rate", "The tax rate must be between 0 and 100.")
		}
		t.Tax = Round2(t.Taxable.Mul(p.TaxRate.Decimal).Div(hundred))
	} else {
		if p.TaxAmount.IsNegative() {
			verr.Add("tax", "The tax must be at least 0.")
		}
		t.Tax = Round2(p.TaxAmount)
	}

	if err := verr.OrNil(); err != nil {
		return Totals{}, err
	}

	t.Total = t.Taxable.Add(t.Tax)

	switch {
	case p.PaidAmount.Valid:
		if p.PaidAmount.Decimal.IsNegative() {
			return Totals{}, fieldError("paid_amount", "The paid amount must be at least 0.")
		}
		t.Paid = Round2(p.PaidAmount.Decimal)
	case p.PaidDefaultsToTotal:
		t.Paid = t.Total
	default:
		t.Paid = decimal.Zero
	}

	t.Due, t.Change = settle(t.Total, t.Paid)
	t.PaymentStatus = DerivePaymentStatus(t.Total, t.Paid)
	return t, nil
}

// settle returns (due, change) for a payment against total; both are floored at zero.
func settle(total, paid decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	diff := total.Sub(paid)
	if diff.IsNegative() {
		return decimal.Zero, diff.Neg()
	}
	return diff, decimal.Zero
}

// LineProfit is (unit price − unit cost) × quantity, rounded to cents.
func LineProfit(qty, unitPrice, unitCost decimal.Decimal) decimal.Decimal {
	return Round2(unitPrice.Sub(unitCost).Mul(qty))
}

// Margin returns profit / revenue × 100 rounded to cents, or zero when revenue is zero.
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return Round2(profit.Div(revenue).Mul(hundred))
}

// Growth returns (current − previous) / previous × 100, or zero when previous is zero.
func Growth(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return Round2(current.Sub(previous).Div(previous).Mul(hundred))
}
