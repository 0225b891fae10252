package app

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// validator wraps core.ValidationError with the checks request validation needs.
type validator struct {
	*core.ValidationError
}

func newValidator() validator {
	return validator{core.NewValidationError()}
}

func (v validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, fmt.Sprintf("The %s field is required.", humanize(field)))
	}
}

func (v validator) maxLen(field, value string, n int) {
	if len(value) > n {
		v.Add(field, fmt.Sprintf("The %s may not be greater than %d characters.", humanize(field), n))
	}
}

func (v validator) positiveID(field string, id int) {
	if id <= 0 {
		v.Add(field, fmt.Sprintf("The %s field is required.", humanize(field)))
	}
}

func (v validator) nonNegative(field string, d decimal.Decimal) {
	if d.IsNegative() {
		v.Add(field, fmt.Sprintf("The %s must be at least 0.", humanize(field)))
	}
}

// money and quantity reject values finer than the column they are stored in.
func (v validator) money(field string, d decimal.Decimal) {
	v.places(field, d, core.MoneyPlaces)
}

func (v validator) quantity(field string, d decimal.Decimal) {
	v.places(field, d, core.QuantityPlaces)
}

func (v validator) places(field string, d decimal.Decimal, n int32) {
	if core.ExceedsPlaces(d, n) {
		v.Add(field, fmt.Sprintf("The %s may not have more than %d decimal places.", humanize(field), n))
	}
}

func (v validator) email(field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, fmt.Sprintf("The %s must be a valid email address.", humanize(field)))
	}
}

// date parses an optional YYYY-MM-DD value; the zero time means "not supplied".
func (v validator) date(field, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		v.Add(field, fmt.Sprintf("The %s does not match the format Y-m-d.", humanize(field)))
	}
	return t
}

func (v validator) paymentMethod(field string, m core.PaymentMethod) {
	if !m.Valid() {
		v.Add(field, fmt.Sprintf("The selected %s is invalid.", humanize(field)))
	}
}

func (v validator) cart(prefix string, items []CartItemRequest) {
	if len(items) == 0 {
		v.Add(prefix, fmt.Sprintf("The %s field is required.", humanize(prefix)))
		return
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			v.Add(fmt.Sprintf("%s.%d.product_id", prefix, i), "The product id field is required.")
		}
		if !it.Quantity.IsPositive() {
			v.Add(fmt.Sprintf("%s.%d.quantity", prefix, i), "The quantity must be greater than 0.")
		}
		v.quantity(fmt.Sprintf("%s.%d.quantity", prefix, i), it.Quantity)
		if it.UnitPrice.Valid {
			if it.UnitPrice.Decimal.IsNegative() {
				v.Add(fmt.Sprintf("%s.%d.unit_price", prefix, i), "The unit price must be at least 0.")
			}
			v.money(fmt.Sprintf("%s.%d.unit_price", prefix, i), it.UnitPrice.Decimal)
		}
	}
}

func humanize(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return strings.ReplaceAll(field, "_", " ")
}

func cartLines(items []CartItemRequest) []core.CartLine {
	lines := make([]core.CartLine, len(items))
	for i, it := range items {
		lines[i] = core.CartLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return lines
}

// renameCartErrors re-keys "items.N.field" errors from the poster to the request's own field name.
func renameCartErrors(err error, field string) error {
	var verr *core.ValidationError
	if !errors.As(err, &verr) || field == "items" {
		return err
	}
	out := core.NewValidationError()
	for k, msgs := range verr.Errors {
		if k == "items" || strings.HasPrefix(k, "items.") {
			k = field + strings.TrimPrefix(k, "items")
		}
		for _, m := range msgs {
			out.Add(k, m)
		}
	}
	return out
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (r CreateSaleRequest) validate() (time.Time, error) {
	v := newValidator()
	v.positiveID("branch_id", r.BranchID)
	saleDate := v.date("sale_date", r.SaleDate)
	v.paymentMethod("payment_method", r.PaymentMethod)
	v.maxLen("customer_name", r.CustomerName, 255)
	v.maxLen("customer_phone", r.CustomerPhone, 32)
	v.nonNegative("discount", r.Discount)
	v.money("discount", r.Discount)
	v.nonNegative("tax", r.Tax)
	v.money("tax", r.Tax)
	if r.PaidAmount.Valid {
		v.nonNegative("paid_amount", r.PaidAmount.Decimal)
		v.money("paid_amount", r.PaidAmount.Decimal)
	}
	v.cart("items", r.Items)
	return saleDate, v.OrNil()
}

func (r POSCheckoutRequest) validate() error {
	v := newValidator()
	v.positiveID("branch_id", r.BranchID)
	v.paymentMethod("payment_method", r.PaymentMethod)
	v.maxLen("customer_name", r.CustomerName, 255)
	v.maxLen("customer_phone", r.CustomerPhone, 32)
	switch r.DiscountType {
	case core.DiscountNone, core.DiscountFixed:
	case core.DiscountPercentage:
		if r.DiscountValue.GreaterThan(hundred) {
			v.Add("discount_value", "The discount value may not be greater than 100.")
		}
	default:
		v.Add("discount_type", "The selected discount type is invalid.")
	}
	v.nonNegative("discount_value", r.DiscountValue)
	v.money("discount_value", r.DiscountValue)
	if r.TaxRate.IsNegative() || r.TaxRate.GreaterThan(hundred) {
		v.Add("tax_rate", "The tax rate must be between 0 and 100.")
	}
	v.money("tax_rate", r.TaxRate)
	if r.PaidAmount.Valid {
		v.nonNegative("paid_amount", r.PaidAmount.Decimal)
		v.money("paid_amount", r.PaidAmount.Decimal)
	}
	v.cart("cart_items", r.CartItems)
	return v.OrNil()
}

func (r UpdateSaleRequest) validate() error {
	v := newValidator()
	if r.PaymentMethod != nil {
		v.paymentMethod("payment_method", *r.PaymentMethod)
	}
	if r.CustomerName != nil {
		v.maxLen("customer_name", *r.CustomerName, 255)
	}
	if r.PaidAmount.Valid {
		v.nonNegative("paid_amount", r.PaidAmount.Decimal)
		v.money("paid_amount", r.PaidAmount.Decimal)
	}
	return v.OrNil()
}

func (r PurchaseRequest) validate() (time.Time, error) {
	v := newValidator()
	v.positiveID("branch_id", r.BranchID)
	v.positiveID("supplier_id", r.SupplierID)
	purchaseDate := v.date("purchase_date", r.PurchaseDate)
	v.nonNegative("discount", r.Discount)
	v.money("discount", r.Discount)
	v.nonNegative("tax", r.Tax)
	v.money("tax", r.Tax)
	if r.PaidAmount.Valid {
		v.nonNegative("paid_amount", r.PaidAmount.Decimal)
		v.money("paid_amount", r.PaidAmount.Decimal)
	}
	v.cart("items", r.Items)
	return purchaseDate, v.OrNil()
}

func (r UpdatePurchaseRequest) validate() error {
	v := newValidator()
	if r.PaidAmount.Valid {
		v.nonNegative("paid_amount", r.PaidAmount.Decimal)
		v.money("paid_amount", r.PaidAmount.Decimal)
	}
	return v.OrNil()
}

func (r BranchRequest) validate() error {
	v := newValidator()
	v.required("name", r.Name)
	v.maxLen("name", r.Name, 255)
	v.required("code", r.Code)
	v.maxLen("code", r.Code, 32)
	v.email("email", r.Email)
	return v.OrNil()
}

func (r CategoryRequest) validate() error {
	v := newValidator()
	v.required("name", r.Name)
	v.maxLen("name", r.Name, 255)
	if r.Slug != "" && core.Slugify(r.Slug) != r.Slug {
		v.Add("slug", "The slug may only contain lowercase letters, numbers and dashes.")
	}
	return v.OrNil()
}

func (r ProductRequest) validate() error {
	v := newValidator()
	v.required("name", r.Name)
	v.maxLen("name", r.Name, 255)
	v.required("sku", r.SKU)
	v.maxLen("sku", r.SKU, 64)
	if r.Barcode != nil {
		v.maxLen("barcode", *r.Barcode, 64)
	}
	v.maxLen("unit", r.Unit, 16)
	v.nonNegative("purchase_price", r.PurchasePrice)
	v.money("purchase_price", r.PurchasePrice)
	v.nonNegative("selling_price", r.SellingPrice)
	v.money("selling_price", r.SellingPrice)
	v.nonNegative("minimum_stock", r.MinimumStock)
	v.quantity("minimum_stock", r.MinimumStock)
	return v.OrNil()
}

func (r SupplierRequest) validate() error {
	v := newValidator()
	v.required("name", r.Name)
	v.maxLen("name", r.Name, 255)
	v.email("email", r.Email)
	v.nonNegative("opening_balance", r.OpeningBalance)
	v.money("opening_balance", r.OpeningBalance)
	return v.OrNil()
}

func (r ExpenseRequest) validate() (time.Time, error) {
	v := newValidator()
	v.positiveID("branch_id", r.BranchID)
	v.required("title", r.Title)
	v.maxLen("title", r.Title, 255)
	if !r.Amount.IsPositive() {
		v.Add("amount", "The amount must be greater than 0.")
	}
	v.money("amount", r.Amount)
	expenseDate := v.date("expense_date", r.ExpenseDate)
	return expenseDate, v.OrNil()
}

func (r UserRequest) validate(creating bool) error {
	v := newValidator()
	v.required("name", r.Name)
	v.required("email", r.Email)
	v.email("email", r.Email)
	if creating || r.Password != "" {
		if len(r.Password) < 8 {
			v.Add("password", "The password must be at least 8 characters.")
		}
	}
	if !r.Role.Valid() {
		v.Add("role", "The selected role is invalid.")
	}
	return v.OrNil()
}

func (r LoginRequest) validate() error {
	v := newValidator()
	v.required("email", r.Email)
	v.required("password", r.Password)
	return v.OrNil()
}
