package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostingOptions configure the sale and purchase posters.
type PostingOptions struct {
	// LockTimeout bounds how long a posting waits on locked stock rows. Zero means no bound.
	LockTimeout time.Duration
	// Business is printed on POS invoices.
	Business BusinessInfo
	// Now stamps invoice numbers and default document dates. Defaults to time.Now.
	Now func() time.Time
}

func (o PostingOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

type saleService struct {
	pool *pgxpool.Pool
	opts PostingOptions
}

func NewSaleService(pool *pgxpool.Pool, opts PostingOptions) SaleService {
	return &saleService{pool: pool, opts: opts}
}

// saleDraft is the normalized input shared by CreateSale and CheckoutPOS.
type saleDraft struct {
	kind          SaleKind
	series        InvoiceSeries
	branchID      int
	saleDate      time.Time
	method        PaymentMethod
	customerName  string
	customerPhone string
	note          string
	discountType  *DiscountType
	discountValue decimal.Decimal
	taxRate       decimal.NullDecimal
	pricing       Pricing
	items         []CartLine
}

func (s *saleService) CreateSale(ctx context.Context, p Principal, in SaleInput) (*Sale, error) {
	saleDate := in.SaleDate
	if saleDate.IsZero() {
		saleDate = s.opts.now()
	}
	id, err := s.post(ctx, p, saleDraft{
		kind:          SaleKindPlain,
		series:        SaleSeries,
		branchID:      in.BranchID,
		saleDate:      saleDate,
		method:        in.PaymentMethod,
		customerName:  in.CustomerName,
		customerPhone: in.CustomerPhone,
		note:          in.Note,
		discountValue: in.Discount,
		pricing: Pricing{
			DiscountValue: in.Discount,
			TaxAmount:     in.Tax,
			PaidAmount:    in.PaidAmount,
		},
		items: in.Items,
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

func (s *saleService) CheckoutPOS(ctx context.Context, p Principal, in POSInput) (*Invoice, error) {
	dt := in.DiscountType
	if dt == DiscountNone {
		dt = DiscountFixed
	}
	id, err := s.post(ctx, p, saleDraft{
		kind:          SaleKindPOS,
		series:        POSSeries,
		branchID:      in.BranchID,
		saleDate:      s.opts.now(),
		method:        in.PaymentMethod,
		customerName:  in.CustomerName,
		customerPhone: in.CustomerPhone,
		note:          in.Note,
		discountType:  &dt,
		discountValue: in.DiscountValue,
		taxRate:       decimal.NewNullDecimal(in.TaxRate),
		pricing: Pricing{
			DiscountType:        dt,
			DiscountValue:       in.DiscountValue,
			TaxRate:             decimal.NewNullDecimal(in.TaxRate),
			PaidAmount:          in.PaidAmount,
			PaidDefaultsToTotal: true,
		},
		items: in.Items,
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

// post runs the whole sale posting in one transaction and returns the new sale id.
// Order: branch and products, stock locks, availability, totals, invoice number, writes.
func (s *saleService) post(ctx context.Context, p Principal, d saleDraft) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := setLockTimeout(ctx, tx, s.opts.LockTimeout); err != nil {
		return 0, err
	}

	if _, err := requireBranch(ctx, tx, d.branchID); err != nil {
		return 0, err
	}

	products, err := loadCartProducts(ctx, tx, d.items)
	if err != nil {
		return 0, err
	}
	lines, err := resolveCart(d.items, products, func(cp cartProduct) decimal.Decimal { return cp.SellingPrice })
	if err != nil {
		return 0, err
	}

	productIDs, _ := quantityByProduct(lines)
	locked, err := lockStockTx(ctx, tx, d.branchID, productIDs)
	if err != nil {
		return 0, err
	}
	if err := checkAvailability(lines, locked); err != nil {
		return 0, err
	}

	totals, err := ComputeTotals(lineAmounts(lines), d.pricing)
	if err != nil {
		return 0, err
	}

	invoiceNo, err := nextInvoiceNoTx(ctx, tx, d.series, s.opts.now())
	if err != nil {
		return 0, mapPostingError(err, "failed to assign invoice number")
	}

	var saleID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (invoice_no, kind, branch_id, user_id, customer_name, customer_phone,
		                   sale_date, payment_method, subtotal, discount_type, discount_value, discount,
		                   tax_rate, tax, total, paid_amount, due_amount, change_amount, payment_status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`,
		invoiceNo, string(d.kind), d.branchID, p.UserID, d.customerName, d.customerPhone,
		dateOnly(d.saleDate), string(d.method), totals.Subtotal, discountTypeArg(d.discountType), d.discountValue, totals.Discount,
		d.taxRate, totals.Tax, totals.Total, totals.Paid, totals.Due, totals.Change, string(totals.PaymentStatus), d.note,
	).Scan(&saleID)
	if err != nil {
		return 0, mapPostingError(err, "failed to insert sale")
	}

	for _, l := range lines {
		unitCost := l.product.PurchasePrice
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, unit_cost, subtotal, profit)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			saleID, l.product.ID, l.quantity, l.unitPrice, unitCost,
			l.amount().Subtotal(), LineProfit(l.quantity, l.unitPrice, unitCost),
		); err != nil {
			return 0, fmt.Errorf("failed to insert sale item for product %d: %w", l.product.ID, err)
		}
		if err := decrementStockTx(ctx, tx, d.branchID, l.product.ID, l.quantity); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, mapPostingError(err, "failed to commit sale")
	}
	return saleID, nil
}

func discountTypeArg(dt *DiscountType) *string {
	if dt == nil {
		return nil
	}
	s := string(*dt)
	return &s
}

// ── Reads ─────────────────────────────────────────────────────────────────────

const saleColumns = `
	s.id, s.invoice_no, s.kind, s.branch_id, b.name, s.user_id, u.name,
	s.customer_name, s.customer_phone, s.sale_date, s.payment_method,
	s.subtotal, s.discount_type, s.discount_value, s.discount, s.tax_rate, s.tax, s.total,
	s.paid_amount, s.due_amount, s.change_amount, s.payment_status, s.note,
	COALESCE((SELECT SUM(si.profit) FROM sale_items si WHERE si.sale_id = s.id), 0),
	s.created_at, s.updated_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var sale Sale
	var discountType *string
	err := row.Scan(
		&sale.ID, &sale.InvoiceNo, &sale.Kind, &sale.BranchID, &sale.BranchName, &sale.UserID, &sale.UserName,
		&sale.CustomerName, &sale.CustomerPhone, &sale.SaleDate, &sale.PaymentMethod,
		&sale.Subtotal, &discountType, &sale.DiscountValue, &sale.Discount, &sale.TaxRate, &sale.Tax, &sale.Total,
		&sale.PaidAmount, &sale.DueAmount, &sale.ChangeAmount, &sale.PaymentStatus, &sale.Note,
		&sale.TotalProfit, &sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discountType != nil {
		dt := DiscountType(*discountType)
		sale.DiscountType = &dt
	}
	return &sale, nil
}

func (s *saleService) GetSale(ctx context.Context, id int) (*Sale, error) {
	sale, err := scanSale(s.pool.QueryRow(ctx, `
		SELECT `+saleColumns+`
		FROM sales s
		JOIN branches b ON b.id = s.branch_id
		JOIN users u    ON u.id = s.user_id
		WHERE s.id = $1 AND s.deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("sale", id)
		}
		return nil, fmt.Errorf("failed to get sale %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT si.id, si.sale_id, si.product_id, p.name, p.sku, c.name,
		       si.quantity, si.unit_price, si.unit_cost, si.subtotal, si.profit
		FROM sale_items si
		JOIN products p        ON p.id = si.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE si.sale_id = $1
		ORDER BY si.id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for sale %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.SKU, &it.CategoryName,
			&it.Quantity, &it.UnitPrice, &it.UnitCost, &it.Subtotal, &it.Profit); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		sale.Items = append(sale.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sale items: %w", err)
	}
	return sale, nil
}

func (s *saleService) GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	branch, err := requireBranchAny(ctx, s.pool, sale.BranchID)
	if err != nil {
		return nil, err
	}
	return newInvoice(sale, branch, s.opts.Business), nil
}

// newInvoice renders a stored sale as a receipt. The margin is measured against the
// sale total, the same revenue figure the profit reports use.
func newInvoice(sale *Sale, branch *branchRow, business BusinessInfo) *Invoice {
	inv := &Invoice{
		SaleID:    sale.ID,
		InvoiceNo: sale.InvoiceNo,
		Date:      sale.CreatedAt,
		Business:  business,
		Branch: InvoiceBranch{
			ID: branch.ID, Name: branch.Name, Code: branch.Code, Address: branch.Address, Phone: branch.Phone,
		},
		Customer: InvoiceCustomer{Name: sale.CustomerName, Phone: sale.CustomerPhone},
		Salesman: InvoiceSalesman{ID: sale.UserID, Name: sale.UserName},
		Payment: InvoicePayment{
			Subtotal:      sale.Subtotal,
			DiscountType:  sale.DiscountType,
			DiscountValue: sale.DiscountValue,
			Discount:      sale.Discount,
			TaxableAmount: sale.Subtotal.Sub(sale.Discount),
			TaxRate:       sale.TaxRate,
			Tax:           sale.Tax,
			Total:         sale.Total,
			PaidAmount:    sale.PaidAmount,
			ChangeAmount:  sale.ChangeAmount,
			DueAmount:     sale.DueAmount,
			PaymentMethod: sale.PaymentMethod,
			PaymentStatus: sale.PaymentStatus,
		},
		Profit: InvoiceProfit{
			TotalProfit:  sale.TotalProfit,
			ProfitMargin: Margin(sale.TotalProfit, sale.Total),
		},
		Note: sale.Note,
	}
	for _, it := range sale.Items {
		inv.Items = append(inv.Items, InvoiceItem{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			SKU:       it.SKU,
			Category:  it.CategoryName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return inv
}

// requireBranchAny loads a branch for display, ignoring its active flag and tombstone so
// invoices of closed branches still render.
func requireBranchAny(ctx context.Context, q pgxQuerier, branchID int) (*branchRow, error) {
	b := &branchRow{ID: branchID}
	err := q.QueryRow(ctx,
		"SELECT name, code, address, phone FROM branches WHERE id = $1", branchID,
	).Scan(&b.Name, &b.Code, &b.Address, &b.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("branch", branchID)
		}
		return nil, fmt.Errorf("failed to load branch %d: %w", branchID, err)
	}
	return b, nil
}

func (s *saleService) ListSales(ctx context.Context, f SaleFilter) ([]Sale, error) {
	var w whereBuilder
	w.add("s.deleted_at IS NULL")
	if f.BranchID != nil {
		w.add("s.branch_id = ?", *f.BranchID)
	}
	if f.UserID != nil {
		w.add("s.user_id = ?", *f.UserID)
	}
	if f.From != nil {
		w.add("s.sale_date >= ?", dateOnly(*f.From))
	}
	if f.To != nil {
		w.add("s.sale_date <= ?", dateOnly(*f.To))
	}
	if f.PaymentStatus != "" {
		w.add("s.payment_status = ?", string(f.PaymentStatus))
	}
	if f.Kind != "" {
		w.add("s.kind = ?", string(f.Kind))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		w.add("(s.invoice_no ILIKE ? OR s.customer_name ILIKE ? OR s.customer_phone ILIKE ?)", pattern, pattern, pattern)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	w.args = append(w.args, limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales s
		JOIN branches b ON b.id = s.branch_id
		JOIN users u    ON u.id = s.user_id`+w.sql()+fmt.Sprintf(`
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $%d`, len(w.args)), w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

// ── Header update ─────────────────────────────────────────────────────────────

func (s *saleService) UpdateSale(ctx context.Context, id int, in SaleUpdate) (*Sale, error) {
	var method *string
	if in.PaymentMethod != nil {
		m := string(*in.PaymentMethod)
		method = &m
	}

	if !in.PaidAmount.Valid {
		tag, err := s.pool.Exec(ctx, `
			UPDATE sales
			SET customer_name  = COALESCE($2, customer_name),
			    customer_phone = COALESCE($3, customer_phone),
			    payment_method = COALESCE($4, payment_method),
			    note           = COALESCE($5, note),
			    updated_at     = now()
			WHERE id = $1 AND deleted_at IS NULL`,
			id, in.CustomerName, in.CustomerPhone, method, in.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to update sale %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, notFound("sale", id)
		}
		return s.GetSale(ctx, id)
	}

	if in.PaidAmount.Decimal.IsNegative() {
		return nil, fieldError("paid_amount", "The paid amount must be at least 0.")
	}
	verr := NewValidationError()
	checkPlaces(verr, "paid_amount", in.PaidAmount.Decimal, MoneyPlaces)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	paid := in.PaidAmount.Decimal

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT total FROM sales WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", id,
	).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("sale", id)
		}
		return nil, fmt.Errorf("failed to lock sale %d: %w", id, err)
	}

	due, change := settle(total, paid)
	if _, err := tx.Exec(ctx, `
		UPDATE sales
		SET customer_name  = COALESCE($2, customer_name),
		    customer_phone = COALESCE($3, customer_phone),
		    payment_method = COALESCE($4, payment_method),
		    note           = COALESCE($5, note),
		    paid_amount    = $6,
		    due_amount     = $7,
		    change_amount  = $8,
		    payment_status = $9,
		    updated_at     = now()
		WHERE id = $1`,
		id, in.CustomerName, in.CustomerPhone, method, in.Note,
		paid, due, change, string(DerivePaymentStatus(total, paid)),
	); err != nil {
		return nil, fmt.Errorf("failed to update sale %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale update: %w", err)
	}
	return s.GetSale(ctx, id)
}

// ── Reversal ──────────────────────────────────────────────────────────────────

func (s *saleService) DeleteSale(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := setLockTimeout(ctx, tx, s.opts.LockTimeout); err != nil {
		return err
	}

	var branchID int
	if err := tx.QueryRow(ctx,
		"SELECT branch_id FROM sales WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", id,
	).Scan(&branchID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("sale", id)
		}
		return mapPostingError(err, "failed to lock sale")
	}

	ids, qty, err := itemQuantities(ctx, tx, "sale_items", "sale_id", id)
	if err != nil {
		return err
	}
	for _, pid := range ids {
		if err := incrementStockTx(ctx, tx, branchID, pid, qty[pid]); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE sales SET deleted_at = now(), updated_at = now() WHERE id = $1", id,
	); err != nil {
		return fmt.Errorf("failed to delete sale %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPostingError(err, "failed to commit sale reversal")
	}
	return nil
}

// itemQuantities sums a document's line quantities per product, ids ascending.
// table and fkColumn are package constants, never user input.
func itemQuantities(ctx context.Context, tx pgx.Tx, table, fkColumn string, docID int) ([]int, map[int]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT product_id, SUM(quantity)
		FROM %s
		WHERE %s = $1
		GROUP BY product_id
		ORDER BY product_id`, table, fkColumn), docID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	var ids []int
	qty := make(map[int]decimal.Decimal)
	for rows.Next() {
		var pid int
		var q decimal.Decimal
		if err := rows.Scan(&pid, &q); err != nil {
			return nil, nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		ids = append(ids, pid)
		qty[pid] = q
	}
	return ids, qty, rows.Err()
}
