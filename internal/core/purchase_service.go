package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type purchaseService struct {
	pool *pgxpool.Pool
	opts PostingOptions
}

func NewPurchaseService(pool *pgxpool.Pool, opts PostingOptions) PurchaseService {
	return &purchaseService{pool: pool, opts: opts}
}

// requireSupplier checks that a supplier exists and is active, returning a supplier_id field error otherwise.
func requireSupplier(ctx context.Context, q pgxQuerier, supplierID int) error {
	var active bool
	err := q.QueryRow(ctx, "SELECT is_active FROM suppliers WHERE id = $1", supplierID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fieldError("supplier_id", "The selected supplier id is invalid.")
		}
		return fmt.Errorf("failed to load supplier %d: %w", supplierID, err)
	}
	if !active {
		return fieldError("supplier_id", "The selected supplier is inactive.")
	}
	return nil
}

func (s *purchaseService) CreatePurchase(ctx context.Context, p Principal, in PurchaseInput) (*Purchase, error) {
	purchaseDate := in.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = s.opts.now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := setLockTimeout(ctx, tx, s.opts.LockTimeout); err != nil {
		return nil, err
	}

	if _, err := requireBranch(ctx, tx, in.BranchID); err != nil {
		return nil, err
	}
	if err := requireSupplier(ctx, tx, in.SupplierID); err != nil {
		return nil, err
	}

	products, err := loadCartProducts(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}
	lines, err := resolveCart(in.Items, products, func(cp cartProduct) decimal.Decimal { return cp.PurchasePrice })
	if err != nil {
		return nil, err
	}

	totals, err := ComputeTotals(lineAmounts(lines), Pricing{
		DiscountValue: in.Discount,
		TaxAmount:     in.Tax,
		PaidAmount:    in.PaidAmount,
	})
	if err != nil {
		return nil, err
	}

	invoiceNo, err := nextInvoiceNoTx(ctx, tx, PurchaseSeries, s.opts.now())
	if err != nil {
		return nil, mapPostingError(err, "failed to assign invoice number")
	}

	var purchaseID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchases (invoice_no, branch_id, supplier_id, user_id, purchase_date,
		                       subtotal, discount, tax, total, paid_amount, due_amount, payment_status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		invoiceNo, in.BranchID, in.SupplierID, p.UserID, dateOnly(purchaseDate),
		totals.Subtotal, totals.Discount, totals.Tax, totals.Total, totals.Paid, totals.Due,
		string(totals.PaymentStatus), in.Note,
	).Scan(&purchaseID)
	if err != nil {
		return nil, mapPostingError(err, "failed to insert purchase")
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)`,
			purchaseID, l.product.ID, l.quantity, l.unitPrice, l.amount().Subtotal(),
		); err != nil {
			return nil, fmt.Errorf("failed to insert purchase item for product %d: %w", l.product.ID, err)
		}
	}

	ids, qty := quantityByProduct(lines)
	for _, pid := range ids {
		if err := incrementStockTx(ctx, tx, in.BranchID, pid, qty[pid]); err != nil {
			return nil, err
		}
	}

	if err := adjustSupplierBalanceTx(ctx, tx, in.SupplierID, totals.Due); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPostingError(err, "failed to commit purchase")
	}
	return s.GetPurchase(ctx, purchaseID)
}

func adjustSupplierBalanceTx(ctx context.Context, tx pgx.Tx, supplierID int, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE suppliers
		SET current_balance = current_balance + $2, updated_at = now()
		WHERE id = $1`, supplierID, delta,
	); err != nil {
		return mapPostingError(err, "failed to adjust supplier balance")
	}
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

const purchaseColumns = `
	pu.id, pu.invoice_no, pu.branch_id, b.name, pu.supplier_id, su.name, pu.user_id, u.name,
	pu.purchase_date, pu.subtotal, pu.discount, pu.tax, pu.total,
	pu.paid_amount, pu.due_amount, pu.payment_status, pu.note, pu.created_at, pu.updated_at`

const purchaseJoins = `
	FROM purchases pu
	JOIN branches b   ON b.id  = pu.branch_id
	JOIN suppliers su ON su.id = pu.supplier_id
	JOIN users u      ON u.id  = pu.user_id`

func scanPurchase(row pgx.Row) (*Purchase, error) {
	var pu Purchase
	err := row.Scan(
		&pu.ID, &pu.InvoiceNo, &pu.BranchID, &pu.BranchName, &pu.SupplierID, &pu.SupplierName,
		&pu.UserID, &pu.UserName, &pu.PurchaseDate, &pu.Subtotal, &pu.Discount, &pu.Tax, &pu.Total,
		&pu.PaidAmount, &pu.DueAmount, &pu.PaymentStatus, &pu.Note, &pu.CreatedAt, &pu.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pu, nil
}

func (s *purchaseService) GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	pu, err := scanPurchase(s.pool.QueryRow(ctx,
		"SELECT "+purchaseColumns+purchaseJoins+" WHERE pu.id = $1 AND pu.deleted_at IS NULL", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase", id)
		}
		return nil, fmt.Errorf("failed to get purchase %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pi.id, pi.purchase_id, pi.product_id, p.name, p.sku, pi.quantity, pi.unit_price, pi.subtotal
		FROM purchase_items pi
		JOIN products p ON p.id = pi.product_id
		WHERE pi.purchase_id = $1
		ORDER BY pi.id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for purchase %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &it.ProductName, &it.SKU,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan purchase item: %w", err)
		}
		pu.Items = append(pu.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read purchase items: %w", err)
	}
	return pu, nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, f PurchaseFilter) ([]Purchase, error) {
	var w whereBuilder
	w.add("pu.deleted_at IS NULL")
	if f.BranchID != nil {
		w.add("pu.branch_id = ?", *f.BranchID)
	}
	if f.SupplierID != nil {
		w.add("pu.supplier_id = ?", *f.SupplierID)
	}
	if f.From != nil {
		w.add("pu.purchase_date >= ?", dateOnly(*f.From))
	}
	if f.To != nil {
		w.add("pu.purchase_date <= ?", dateOnly(*f.To))
	}
	if f.PaymentStatus != "" {
		w.add("pu.payment_status = ?", string(f.PaymentStatus))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		w.add("(pu.invoice_no ILIKE ? OR su.name ILIKE ?)", pattern, pattern)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	w.args = append(w.args, limit)

	rows, err := s.pool.Query(ctx, "SELECT "+purchaseColumns+purchaseJoins+w.sql()+fmt.Sprintf(`
		ORDER BY pu.created_at DESC, pu.id DESC
		LIMIT $%d`, len(w.args)), w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		pu, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, *pu)
	}
	return purchases, rows.Err()
}

// ── Header update ─────────────────────────────────────────────────────────────

func (s *purchaseService) UpdatePurchase(ctx context.Context, id int, in PurchaseUpdate) (*Purchase, error) {
	if in.PaidAmount.Valid && in.PaidAmount.Decimal.IsNegative() {
		return nil, fieldError("paid_amount", "The paid amount must be at least 0.")
	}
	if in.PaidAmount.Valid {
		verr := NewValidationError()
		checkPlaces(verr, "paid_amount", in.PaidAmount.Decimal, MoneyPlaces)
		if err := verr.OrNil(); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var supplierID int
	var total, paid, due decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT supplier_id, total, paid_amount, due_amount
		FROM purchases
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, id,
	).Scan(&supplierID, &total, &paid, &due); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase", id)
		}
		return nil, fmt.Errorf("failed to lock purchase %d: %w", id, err)
	}

	newPaid, newDue := paid, due
	if in.PaidAmount.Valid {
		newPaid = Round2(in.PaidAmount.Decimal)
		newDue, _ = settle(total, newPaid)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchases
		SET note           = COALESCE($2, note),
		    paid_amount    = $3,
		    due_amount     = $4,
		    payment_status = $5,
		    updated_at     = now()
		WHERE id = $1`,
		id, in.Note, newPaid, newDue, string(DerivePaymentStatus(total, newPaid)),
	); err != nil {
		return nil, fmt.Errorf("failed to update purchase %d: %w", id, err)
	}

	if err := adjustSupplierBalanceTx(ctx, tx, supplierID, newDue.Sub(due)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase update: %w", err)
	}
	return s.GetPurchase(ctx, id)
}

// ── Reversal ──────────────────────────────────────────────────────────────────

func (s *purchaseService) DeletePurchase(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := setLockTimeout(ctx, tx, s.opts.LockTimeout); err != nil {
		return err
	}

	var branchID, supplierID int
	var due decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT branch_id, supplier_id, due_amount
		FROM purchases
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, id,
	).Scan(&branchID, &supplierID, &due); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("purchase", id)
		}
		return mapPostingError(err, "failed to lock purchase")
	}

	ids, qty, err := itemQuantities(ctx, tx, "purchase_items", "purchase_id", id)
	if err != nil {
		return err
	}
	locked, err := lockStockTx(ctx, tx, branchID, ids)
	if err != nil {
		return err
	}

	// Check every product before touching any row so the reversal is all-or-nothing.
	for _, pid := range ids {
		avail := locked[pid]
		if avail.LessThan(qty[pid]) {
			var name string
			if err := tx.QueryRow(ctx, "SELECT name FROM products WHERE id = $1", pid).Scan(&name); err != nil {
				return fmt.Errorf("failed to load product %d: %w", pid, err)
			}
			return &StockReversalError{
				ProductID:   pid,
				ProductName: name,
				Available:   avail,
				Requested:   qty[pid],
				Shortage:    qty[pid].Sub(avail),
			}
		}
	}
	for _, pid := range ids {
		if err := decrementStockTx(ctx, tx, branchID, pid, qty[pid]); err != nil {
			return err
		}
	}

	if err := adjustSupplierBalanceTx(ctx, tx, supplierID, due.Neg()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE purchases SET deleted_at = now(), updated_at = now() WHERE id = $1", id,
	); err != nil {
		return fmt.Errorf("failed to delete purchase %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPostingError(err, "failed to commit purchase reversal")
	}
	return nil
}
