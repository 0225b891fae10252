package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) GetStockLevels(ctx context.Context, f StockFilter) ([]StockLevel, error) {
	var w whereBuilder
	w.add("b.deleted_at IS NULL")
	w.add("p.deleted_at IS NULL")
	if f.BranchID != nil {
		w.add("bs.branch_id = ?", *f.BranchID)
	}
	if f.LowOnly {
		w.add("bs.quantity <= p.minimum_stock")
	}
	if f.Search != "" {
		w.add("(p.name ILIKE ? OR p.sku ILIKE ?)", "%"+f.Search+"%", "%"+f.Search+"%")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT bs.branch_id, b.name, p.id, p.name, p.sku, p.unit,
		       bs.quantity, p.minimum_stock
		FROM branch_stocks bs
		JOIN branches b ON b.id = bs.branch_id
		JOIN products p ON p.id = bs.product_id`+w.sql()+`
		ORDER BY b.name, p.name`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(&sl.BranchID, &sl.BranchName, &sl.ProductID, &sl.ProductName, &sl.SKU, &sl.Unit,
			&sl.Quantity, &sl.MinimumStock); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		sl.IsLow = sl.Quantity.LessThanOrEqual(sl.MinimumStock)
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

func (s *inventoryService) GetQuantity(ctx context.Context, branchID, productID int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := s.pool.QueryRow(ctx,
		"SELECT quantity FROM branch_stocks WHERE branch_id = $1 AND product_id = $2",
		branchID, productID,
	).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read stock: %w", err)
	}
	return qty, nil
}

// ── TX-scoped helpers used by the sale and purchase posters ───────────────────

// distinctSorted returns the unique ids in ascending order. Every multi-row lock in this
// package is taken in this order so two carts touching the same products cannot deadlock.
func distinctSorted(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// lockStockTx takes FOR UPDATE locks on the branch's stock rows for productIDs and returns
// their quantities. Products without a row are absent from the map.
func lockStockTx(ctx context.Context, tx pgx.Tx, branchID int, productIDs []int) (map[int]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity
		FROM branch_stocks
		WHERE branch_id = $1 AND product_id = ANY($2)
		ORDER BY product_id
		FOR UPDATE`,
		branchID, distinctSorted(productIDs))
	if err != nil {
		return nil, mapPostingError(err, "failed to lock stock rows")
	}
	defer rows.Close()

	stock := make(map[int]decimal.Decimal, len(productIDs))
	for rows.Next() {
		var pid int
		var qty decimal.Decimal
		if err := rows.Scan(&pid, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan locked stock row: %w", err)
		}
		stock[pid] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostingError(err, "failed to lock stock rows")
	}
	return stock, nil
}

// decrementStockTx subtracts qty from a row the caller has already locked and verified.
// A missing row or a negative result is an invariant violation.
func decrementStockTx(ctx context.Context, tx pgx.Tx, branchID, productID int, qty decimal.Decimal) error {
	var after decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE branch_stocks
		SET quantity = quantity - $3, updated_at = now()
		WHERE branch_id = $1 AND product_id = $2
		RETURNING quantity`,
		branchID, productID, qty,
	).Scan(&after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product %d has no stock row in branch %d: %w", productID, branchID, ErrStockInvariant)
		}
		return mapPostingError(err, "failed to decrement stock")
	}
	if after.IsNegative() {
		return fmt.Errorf("product %d in branch %d would drop to %s: %w", productID, branchID, after, ErrStockInvariant)
	}
	return nil
}

// incrementStockTx adds qty, creating the row at zero first when it does not exist.
func incrementStockTx(ctx context.Context, tx pgx.Tx, branchID, productID int, qty decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO branch_stocks (branch_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (branch_id, product_id)
		DO UPDATE SET quantity = branch_stocks.quantity + EXCLUDED.quantity, updated_at = now()`,
		branchID, productID, qty)
	if err != nil {
		return mapPostingError(err, "failed to increment stock")
	}
	return nil
}

// quantityByProduct sums line quantities per product, returning ids in ascending order.
func quantityByProduct(lines []resolvedLine) ([]int, map[int]decimal.Decimal) {
	totals := make(map[int]decimal.Decimal)
	ids := make([]int, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.product.ID)
		totals[l.product.ID] = totals[l.product.ID].Add(l.quantity)
	}
	return distinctSorted(ids), totals
}
