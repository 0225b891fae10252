// restore-seed is a one-shot tool that seeds an owner login, the main branch and
// a small demo catalogue with opening stock. It is idempotent: rerunning it
// restores the seed rows without duplicating them.
//
// Usage: SEED_OWNER_EMAIL=owner@example.com SEED_OWNER_PASSWORD=... go run ./cmd/restore-seed
package main

import (
	"context"
	"os"

	"branchpos/internal/db"
	"branchpos/internal/logging"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const minSeedPasswordLen = 8

func main() {
	_ = godotenv.Load()

	log, err := logging.New("info", os.Getenv("LOG_FORMAT"), os.Stderr)
	if err != nil {
		log = logging.Discard()
		log.SetOutput(os.Stderr)
	}

	email := os.Getenv("SEED_OWNER_EMAIL")
	if email == "" {
		email = "owner@branchpos.local"
	}
	password := os.Getenv("SEED_OWNER_PASSWORD")
	if len(password) < minSeedPasswordLen {
		log.Fatalf("SEED_OWNER_PASSWORD must be at least %d characters", minSeedPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Info("Restoring main branch...")
	var branchID int
	err = tx.QueryRow(ctx, `
		INSERT INTO branches (name, code, address)
		VALUES ('Main Branch', 'MAIN', 'Head office')
		ON CONFLICT (code) DO UPDATE
		  SET deleted_at = NULL,
		      is_active  = true,
		      updated_at = now()
		RETURNING id
	`).Scan(&branchID)
	if err != nil {
		log.Fatalf("Failed to restore branch: %v", err)
	}

	log.WithField("email", email).Info("Restoring owner...")
	_, err = tx.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role, branch_id)
		VALUES ('Owner', $1, $2, 'owner', NULL)
		ON CONFLICT (email) DO UPDATE
		  SET password_hash = EXCLUDED.password_hash,
		      role          = 'owner',
		      branch_id     = NULL,
		      is_active     = true,
		      updated_at    = now()
	`, email, string(hash))
	if err != nil {
		log.Fatalf("Failed to restore owner: %v", err)
	}

	log.Info("Restoring categories...")
	_, err = tx.Exec(ctx, `
		INSERT INTO categories (name, slug)
		VALUES
		  ('Beverages', 'beverages'),
		  ('Snacks',    'snacks'),
		  ('Household', 'household')
		ON CONFLICT (slug) DO UPDATE
		  SET name = EXCLUDED.name,
		      is_active = true
	`)
	if err != nil {
		log.Fatalf("Failed to restore categories: %v", err)
	}

	log.Info("Restoring products...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (name, sku, barcode, category_id, unit, purchase_price, selling_price, minimum_stock)
		SELECT p.name, p.sku, p.barcode, c.id, p.unit, p.purchase_price, p.selling_price, p.minimum_stock
		FROM (VALUES
		    ('Mineral Water 500ml', 'BEV-001', '8900000000011', 'beverages', 'pcs', 12.00, 20.00, 24),
		    ('Orange Juice 1L',     'BEV-002', '8900000000028', 'beverages', 'pcs', 60.00, 85.00, 10),
		    ('Salted Chips 50g',    'SNK-001', '8900000000035', 'snacks',    'pcs', 15.00, 25.00, 20),
		    ('Rice 5kg',            'HOU-001', NULL,            'household', 'bag', 310.00, 375.00, 5),
		    ('Dish Soap 750ml',     'HOU-002', '8900000000042', 'household', 'pcs', 55.00, 79.50, 6)
		) AS p(name, sku, barcode, slug, unit, purchase_price, selling_price, minimum_stock)
		JOIN categories c ON c.slug = p.slug
		ON CONFLICT (sku) DO UPDATE
		  SET name           = EXCLUDED.name,
		      category_id    = EXCLUDED.category_id,
		      purchase_price = EXCLUDED.purchase_price,
		      selling_price  = EXCLUDED.selling_price,
		      minimum_stock  = EXCLUDED.minimum_stock,
		      deleted_at     = NULL,
		      is_active      = true,
		      updated_at     = now()
	`)
	if err != nil {
		log.Fatalf("Failed to restore products: %v", err)
	}

	log.Info("Restoring opening stock...")
	_, err = tx.Exec(ctx, `
		INSERT INTO branch_stocks (branch_id, product_id, quantity)
		SELECT $1, p.id, s.quantity
		FROM (VALUES
		    ('BEV-001', 120),
		    ('BEV-002', 40),
		    ('SNK-001', 80),
		    ('HOU-001', 15),
		    ('HOU-002', 30)
		) AS s(sku, quantity)
		JOIN products p ON p.sku = s.sku
		ON CONFLICT (branch_id, product_id) DO NOTHING
	`, branchID)
	if err != nil {
		log.Fatalf("Failed to restore opening stock: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.WithField("branch_id", branchID).Info("Seed data restored successfully.")
}
