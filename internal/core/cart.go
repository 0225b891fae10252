package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// cartProduct is the product snapshot a posting transaction reads once per cart.
type cartProduct struct {
	ID            int
	Name          string
	SKU           string
	CategoryName  *string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	IsActive      bool
}

// resolvedLine is a cart line with its product loaded and its price settled.
type resolvedLine struct {
	product   cartProduct
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
}

func (l resolvedLine) amount() LineAmount {
	return LineAmount{Quantity: l.quantity, UnitPrice: l.unitPrice}
}

func lineAmounts(lines []resolvedLine) []LineAmount {
	out := make([]LineAmount, len(lines))
	for i, l := range lines {
		out[i] = l.amount()
	}
	return out
}

// branchRow is the subset of a branch a poster needs.
type branchRow struct {
	ID      int
	Name    string
	Code    string
	Address string
	Phone   string
}

// requireBranch loads a live, active branch or returns a branch_id field error.
func requireBranch(ctx context.Context, q pgxQuerier, branchID int) (*branchRow, error) {
	b := &branchRow{ID: branchID}
	var active bool
	err := q.QueryRow(ctx, `
		SELECT name, code, address, phone, is_active
		FROM branches
		WHERE id = $1 AND deleted_at IS NULL`, branchID,
	).Scan(&b.Name, &b.Code, &b.Address, &b.Phone, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fieldError("branch_id", "The selected branch id is invalid.")
		}
		return nil, fmt.Errorf("failed to load branch %d: %w", branchID, err)
	}
	if !active {
		return nil, fieldError("branch_id", "The selected branch is inactive.")
	}
	return b, nil
}

// loadCartProducts reads every product referenced by lines in one query.
func loadCartProducts(ctx context.Context, q pgxQuerier, lines []CartLine) (map[int]cartProduct, error) {
	ids := make([]int, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	rows, err := q.Query(ctx, `
		SELECT p.id, p.name, p.sku, c.name, p.purchase_price, p.selling_price, p.is_active
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1) AND p.deleted_at IS NULL`, distinctSorted(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	defer rows.Close()

	products := make(map[int]cartProduct, len(ids))
	for rows.Next() {
		var p cartProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.CategoryName, &p.PurchasePrice, &p.SellingPrice, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan cart product: %w", err)
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

// resolveCart pairs each line with its product, in submitted order. Missing or inactive
// products, non-positive quantities and values finer than their column scale are field
// errors keyed by line index. defaultPrice
// picks the product price used when a line carries none.
func resolveCart(lines []CartLine, products map[int]cartProduct, defaultPrice func(cartProduct) decimal.Decimal) ([]resolvedLine, error) {
	verr := NewValidationError()
	if len(lines) == 0 {
		verr.Add("items", "At least one item is required.")
		return nil, verr
	}

	out := make([]resolvedLine, 0, len(lines))
	for i, l := range lines {
		p, ok := products[l.ProductID]
		switch {
		case !ok:
			verr.Add(fmt.Sprintf("items.%d.product_id", i), "The selected product id is invalid.")
			continue
		case !p.IsActive:
			verr.Add(fmt.Sprintf("items.%d.product_id", i), fmt.Sprintf("Product %s is inactive.", p.Name))
			continue
		}
		if !l.Quantity.IsPositive() {
			verr.Add(fmt.Sprintf("items.%d.quantity", i), "The quantity must be greater than 0.")
		}
		checkPlaces(verr, fmt.Sprintf("items.%d.quantity", i), l.Quantity, QuantityPlaces)
		price := defaultPrice(p)
		if l.UnitPrice.Valid {
			price = l.UnitPrice.Decimal
		}
		if price.IsNegative() {
			verr.Add(fmt.Sprintf("items.%d.unit_price", i), "The unit price must be at least 0.")
		}
		checkPlaces(verr, fmt.Sprintf("items.%d.unit_price", i), price, MoneyPlaces)
		out = append(out, resolvedLine{product: p, quantity: l.Quantity, unitPrice: price})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// checkAvailability walks lines in submitted order against the locked quantities, consuming
// stock as it goes so repeated products are checked cumulatively. It reports the first line
// the branch cannot cover.
func checkAvailability(lines []resolvedLine, locked map[int]decimal.Decimal) error {
	remaining := make(map[int]decimal.Decimal, len(locked))
	for pid, qty := range locked {
		remaining[pid] = qty
	}
	for _, l := range lines {
		avail := remaining[l.product.ID]
		if avail.LessThan(l.quantity) {
			return &InsufficientStockError{
				ProductID:   l.product.ID,
				ProductName: l.product.Name,
				Available:   avail,
				Requested:   l.quantity,
				Shortage:    l.quantity.Sub(avail),
			}
		}
		remaining[l.product.ID] = avail.Sub(l.quantity)
	}
	return nil
}
