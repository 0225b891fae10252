package core_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"branchpos/internal/core"
	"branchpos/internal/db"
	"branchpos/internal/logging"
	"branchpos/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var postingDay = time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC)

// Seeded ids; RESTART IDENTITY makes them stable across runs.
const (
	mainBranch  = 1
	northBranch = 2
	ownerID     = 1
	riceID      = 1 // purchase 400, selling 450
	soapID      = 2 // purchase 30, selling 40
	supplierID  = 1
)

var owner = core.Principal{UserID: ownerID, Role: core.RoleOwner}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database; these tests truncate every table.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, migrations.FS, logging.Discard()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE sale_items, sales, purchase_items, purchases, expenses, branch_stocks,
		               products, categories, suppliers, users, branches, invoice_sequences
		RESTART IDENTITY CASCADE;

		INSERT INTO branches (name, code, address, phone) VALUES
		('Main Branch',  'MAIN',  '12 Market Road', '+880-1700000001'),
		('North Branch', 'NORTH', '4 Lake View',    '+880-1700000002');

		INSERT INTO users (name, email, password_hash, role, branch_id) VALUES
		('Olivia Owner', 'owner@example.com', 'x', 'owner', NULL);

		INSERT INTO categories (name, slug) VALUES ('Groceries', 'groceries');

		INSERT INTO products (name, sku, barcode, category_id, unit, purchase_price, selling_price, minimum_stock) VALUES
		('Rice 5kg', 'RICE-5', '8901000000011', 1, 'bag', 400, 450, 2),
		('Soap',     'SOAP-1', NULL,            1, 'pcs', 30,  40,  5);

		INSERT INTO suppliers (name, company_name, opening_balance, current_balance) VALUES
		('Karim Traders', 'Karim Traders Ltd', 1000, 1000);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}
	return pool
}

func postingServices(pool *pgxpool.Pool) (core.SaleService, core.PurchaseService, core.InventoryService) {
	opts := core.PostingOptions{
		LockTimeout: 5 * time.Second,
		Business:    core.BusinessInfo{Name: "Test Shop", Address: "Dhaka", Phone: "+880-1700000000"},
		Now:         func() time.Time { return postingDay },
	}
	return core.NewSaleService(pool, opts), core.NewPurchaseService(pool, opts), core.NewInventoryService(pool)
}

func setStock(t *testing.T, pool *pgxpool.Pool, branchID, productID int, qty string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO branch_stocks (branch_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (branch_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		branchID, productID, dec(qty))
	if err != nil {
		t.Fatalf("Failed to set stock: %v", err)
	}
}

func stockOf(t *testing.T, inv core.InventoryService, branchID, productID int) decimal.Decimal {
	t.Helper()
	qty, err := inv.GetQuantity(context.Background(), branchID, productID)
	if err != nil {
		t.Fatalf("GetQuantity failed: %v", err)
	}
	return qty
}

func supplierBalance(t *testing.T, pool *pgxpool.Pool) decimal.Decimal {
	t.Helper()
	var bal decimal.Decimal
	if err := pool.QueryRow(context.Background(),
		"SELECT current_balance FROM suppliers WHERE id = $1", supplierID).Scan(&bal); err != nil {
		t.Fatalf("Failed to read supplier balance: %v", err)
	}
	return bal
}

func cashSale(branchID int, lines ...core.CartLine) core.SaleInput {
	return core.SaleInput{BranchID: branchID, PaymentMethod: core.PaymentCash, Items: lines}
}

func line(productID int, qty string) core.CartLine {
	return core.CartLine{ProductID: productID, Quantity: dec(qty)}
}

func pricedLine(productID int, qty, price string) core.CartLine {
	return core.CartLine{ProductID: productID, Quantity: dec(qty), UnitPrice: nullDec(price)}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestSale_RejectsOversell(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, inv := postingServices(pool)
	ctx := context.Background()
	setStock(t, pool, mainBranch, riceID, "10")

	if _, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "10"))); err != nil {
		t.Fatalf("CreateSale for the full stock failed: %v", err)
	}

	_, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "1")))
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected *InsufficientStockError, got %v", err)
	}
	if !stockErr.Available.IsZero() || !stockErr.Shortage.Equal(dec("1")) || stockErr.ProductName != "Rice 5kg" {
		t.Errorf("unexpected shortage detail: %+v", stockErr)
	}
	if got := stockOf(t, inv, mainBranch, riceID); !got.IsZero() {
		t.Errorf("expected stock 0, got %s", got)
	}

	var count int
	_ = pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales").Scan(&count)
	if count != 1 {
		t.Errorf("the rejected sale must leave no header, found %d sales", count)
	}
}

func TestSale_FailedLineRollsBackWholeCart(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, inv := postingServices(pool)
	setStock(t, pool, mainBranch, riceID, "5")
	setStock(t, pool, mainBranch, soapID, "1")

	_, err := sales.CreateSale(context.Background(), owner,
		cashSale(mainBranch, line(riceID, "2"), line(soapID, "3")))
	var stockErr *core.InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.ProductID != soapID {
		t.Fatalf("expected shortage on soap, got %v", err)
	}
	if got := stockOf(t, inv, mainBranch, riceID); !got.Equal(dec("5")) {
		t.Errorf("rice stock must be untouched, got %s", got)
	}
}

func TestSale_ConcurrentNoOversell(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, inv := postingServices(pool)
	setStock(t, pool, mainBranch, soapID, "5")

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		other     []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sales.CreateSale(context.Background(), owner, cashSale(mainBranch, line(soapID, "1")))
			mu.Lock()
			defer mu.Unlock()
			var stockErr *core.InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if succeeded != 5 || rejected != attempts-5 {
		t.Errorf("expected 5 sales and %d rejections, got %d and %d", attempts-5, succeeded, rejected)
	}
	if got := stockOf(t, inv, mainBranch, soapID); !got.IsZero() {
		t.Errorf("expected stock 0, got %s", got)
	}
}

func TestPOS_TotalsAndInvoice(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, _ := postingServices(pool)
	setStock(t, pool, mainBranch, riceID, "10")
	setStock(t, pool, mainBranch, soapID, "10")

	inv, err := sales.CheckoutPOS(context.Background(), owner, core.POSInput{
		BranchID:      mainBranch,
		PaymentMethod: core.PaymentCard,
		CustomerName:  "Rahim",
		DiscountType:  core.DiscountPercentage,
		DiscountValue: dec("10"),
		TaxRate:       dec("5"),
		Items: []core.CartLine{
			pricedLine(riceID, "2", "100"),
			pricedLine(soapID, "1", "50"),
		},
	})
	if err != nil {
		t.Fatalf("CheckoutPOS failed: %v", err)
	}

	p := inv.Payment
	for name, c := range map[string]struct{ got, want string }{
		"subtotal": {p.Subtotal.String(), "250"},
		"discount": {p.Discount.String(), "25"},
		"taxable":  {p.TaxableAmount.String(), "225"},
		"tax":      {p.Tax.String(), "11.25"},
		"total":    {p.Total.String(), "236.25"},
		"paid":     {p.PaidAmount.String(), "236.25"},
		"due":      {p.DueAmount.String(), "0"},
	} {
		if !dec(c.got).Equal(dec(c.want)) {
			t.Errorf("%s: expected %s, got %s", name, c.want, c.got)
		}
	}
	if p.PaymentStatus != core.PaymentPaid {
		t.Errorf("expected paid, got %s", p.PaymentStatus)
	}
	if inv.InvoiceNo != "POS-20260307-00001" {
		t.Errorf("unexpected invoice number %s", inv.InvoiceNo)
	}
	if inv.Business.Name != "Test Shop" || inv.Branch.Code != "MAIN" || inv.Salesman.ID != ownerID {
		t.Errorf("invoice header not populated: %+v", inv)
	}
	if len(inv.Items) != 2 || inv.Items[0].Category == nil || *inv.Items[0].Category != "Groceries" {
		t.Errorf("expected two items with category names, got %+v", inv.Items)
	}
	// (100-400)*2 + (50-30)*1 = -580
	if !inv.Profit.TotalProfit.Equal(dec("-580")) {
		t.Errorf("expected profit -580, got %s", inv.Profit.TotalProfit)
	}
}

func TestSale_PaymentStatusAndChange(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, _ := postingServices(pool)
	ctx := context.Background()
	setStock(t, pool, mainBranch, soapID, "10")

	in := cashSale(mainBranch, pricedLine(soapID, "1", "100"))
	in.PaidAmount = nullDec("0")
	sale, err := sales.CreateSale(ctx, owner, in)
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if sale.PaymentStatus != core.PaymentUnpaid || !sale.DueAmount.Equal(dec("100")) {
		t.Errorf("expected unpaid with due 100, got %s due %s", sale.PaymentStatus, sale.DueAmount)
	}
	if !strings.HasPrefix(sale.InvoiceNo, "SALE-20260307-") {
		t.Errorf("unexpected invoice number %s", sale.InvoiceNo)
	}

	inv, err := sales.CheckoutPOS(ctx, owner, core.POSInput{
		BranchID:      mainBranch,
		PaymentMethod: core.PaymentCash,
		PaidAmount:    nullDec("150"),
		Items:         []core.CartLine{pricedLine(soapID, "1", "100")},
	})
	if err != nil {
		t.Fatalf("CheckoutPOS failed: %v", err)
	}
	if !inv.Payment.ChangeAmount.Equal(dec("50")) || !inv.Payment.DueAmount.IsZero() {
		t.Errorf("expected change 50 and due 0, got change %s due %s", inv.Payment.ChangeAmount, inv.Payment.DueAmount)
	}
}

func TestSale_DeleteRestoresStock(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, inv := postingServices(pool)
	ctx := context.Background()
	setStock(t, pool, mainBranch, riceID, "7")
	setStock(t, pool, mainBranch, soapID, "3")

	sale, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "4"), line(soapID, "3"), line(riceID, "1.5")))
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if err := sales.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("DeleteSale failed: %v", err)
	}
	if got := stockOf(t, inv, mainBranch, riceID); !got.Equal(dec("7")) {
		t.Errorf("expected rice stock 7, got %s", got)
	}
	if got := stockOf(t, inv, mainBranch, soapID); !got.Equal(dec("3")) {
		t.Errorf("expected soap stock 3, got %s", got)
	}
	if _, err := sales.GetSale(ctx, sale.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted sale should be not found, got %v", err)
	}
	if err := sales.DeleteSale(ctx, sale.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestSale_ProfitSnapshotSurvivesPriceChange(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, _ := postingServices(pool)
	ctx := context.Background()
	setStock(t, pool, mainBranch, riceID, "5")

	sale, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "2")))
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if !sale.Items[0].Profit.Equal(dec("100")) || !sale.Items[0].UnitCost.Equal(dec("400")) {
		t.Fatalf("expected profit 100 at cost 400, got %s at %s", sale.Items[0].Profit, sale.Items[0].UnitCost)
	}

	if _, err := pool.Exec(ctx, "UPDATE products SET purchase_price = 440 WHERE id = $1", riceID); err != nil {
		t.Fatalf("Failed to change price: %v", err)
	}
	again, err := sales.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetSale failed: %v", err)
	}
	if !again.Items[0].Profit.Equal(dec("100")) || !again.TotalProfit.Equal(dec("100")) {
		t.Errorf("profit changed after price update: %s", again.Items[0].Profit)
	}
}

func TestSale_InvoiceNumbersAreUnique(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, _ := postingServices(pool)
	setStock(t, pool, mainBranch, soapID, "100")

	const n = 8
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := sales.CreateSale(context.Background(), owner, cashSale(mainBranch, line(soapID, "1")))
			if err != nil {
				t.Errorf("CreateSale failed: %v", err)
				return
			}
			numbers <- sale.InvoiceNo
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for no := range numbers {
		if seen[no] {
			t.Errorf("duplicate invoice number %s", no)
		}
		seen[no] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d invoice numbers, got %d", n, len(seen))
	}
}

func TestPurchase_CreateAndReverse(t *testing.T) {
	pool := setupTestDB(t)
	_, purchases, inv := postingServices(pool)
	ctx := context.Background()

	pur, err := purchases.CreatePurchase(ctx, owner, core.PurchaseInput{
		BranchID:   mainBranch,
		SupplierID: supplierID,
		PaidAmount: nullDec("500"),
		Items:      []core.CartLine{pricedLine(riceID, "5", "380")},
	})
	if err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}
	if pur.InvoiceNo != "PUR-20260307-0001" || pur.PaymentStatus != core.PaymentPartial || !pur.DueAmount.Equal(dec("1400")) {
		t.Errorf("unexpected purchase header: %s %s due %s", pur.InvoiceNo, pur.PaymentStatus, pur.DueAmount)
	}
	if got := stockOf(t, inv, mainBranch, riceID); !got.Equal(dec("5")) {
		t.Errorf("expected the purchase to create stock 5, got %s", got)
	}
	if got := supplierBalance(t, pool); !got.Equal(dec("2400")) {
		t.Errorf("expected supplier balance 2400, got %s", got)
	}

	if err := purchases.DeletePurchase(ctx, pur.ID); err != nil {
		t.Fatalf("DeletePurchase failed: %v", err)
	}
	if got := stockOf(t, inv, mainBranch, riceID); !got.IsZero() {
		t.Errorf("expected stock 0 after reversal, got %s", got)
	}
	if got := supplierBalance(t, pool); !got.Equal(dec("1000")) {
		t.Errorf("expected supplier balance back at 1000, got %s", got)
	}

	if err := purchases.DeletePurchase(ctx, pur.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestPurchase_ReversalBlockedAfterResale(t *testing.T) {
	pool := setupTestDB(t)
	sales, purchases, inv := postingServices(pool)
	ctx := context.Background()

	pur, err := purchases.CreatePurchase(ctx, owner, core.PurchaseInput{
		BranchID:   mainBranch,
		SupplierID: supplierID,
		Items:      []core.CartLine{line(riceID, "5")},
	})
	if err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}
	if _, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "3"))); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	balanceBefore := supplierBalance(t, pool)

	err = purchases.DeletePurchase(ctx, pur.ID)
	var revErr *core.StockReversalError
	if !errors.As(err, &revErr) {
		t.Fatalf("expected *StockReversalError, got %v", err)
	}
	if !revErr.Available.Equal(dec("2")) || !revErr.Shortage.Equal(dec("3")) {
		t.Errorf("expected available 2 shortage 3, got %+v", revErr)
	}

	if got := stockOf(t, inv, mainBranch, riceID); !got.Equal(dec("2")) {
		t.Errorf("stock must be unchanged, got %s", got)
	}
	if got := supplierBalance(t, pool); !got.Equal(balanceBefore) {
		t.Errorf("supplier balance must be unchanged, got %s want %s", got, balanceBefore)
	}
	if _, err := purchases.GetPurchase(ctx, pur.ID); err != nil {
		t.Errorf("purchase must still exist: %v", err)
	}
}

func TestPurchase_UpdatePaidMovesSupplierBalance(t *testing.T) {
	pool := setupTestDB(t)
	_, purchases, _ := postingServices(pool)
	ctx := context.Background()

	pur, err := purchases.CreatePurchase(ctx, owner, core.PurchaseInput{
		BranchID:   mainBranch,
		SupplierID: supplierID,
		Items:      []core.CartLine{pricedLine(soapID, "10", "30")},
	})
	if err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}
	updated, err := purchases.UpdatePurchase(ctx, pur.ID, core.PurchaseUpdate{PaidAmount: nullDec("300")})
	if err != nil {
		t.Fatalf("UpdatePurchase failed: %v", err)
	}
	if updated.PaymentStatus != core.PaymentPaid || !updated.DueAmount.IsZero() {
		t.Errorf("expected paid with due 0, got %s due %s", updated.PaymentStatus, updated.DueAmount)
	}
	if got := supplierBalance(t, pool); !got.Equal(dec("1000")) {
		t.Errorf("expected supplier balance 1000, got %s", got)
	}
}

func TestSale_UnknownBranchIsFieldError(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, _ := postingServices(pool)

	_, err := sales.CreateSale(context.Background(), owner, cashSale(99, line(soapID, "1")))
	var verr *core.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors["branch_id"]) == 0 {
		t.Fatalf("expected branch_id validation error, got %v", err)
	}
}
