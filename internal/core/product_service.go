package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productService struct {
	pool *pgxpool.Pool
}

// NewProductService constructs a ProductService backed by PostgreSQL.
func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

const productSelect = `
	SELECT p.id, p.name, p.sku, p.barcode, p.category_id, c.name, p.unit,
	       p.purchase_price, p.selling_price, p.minimum_stock, p.is_active, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Barcode, &p.CategoryID, &p.CategoryName, &p.Unit,
		&p.PurchasePrice, &p.SellingPrice, &p.MinimumStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *productService) List(ctx context.Context, f ProductFilter) ([]Product, error) {
	w := &whereBuilder{}
	w.add("p.deleted_at IS NULL")
	if f.ActiveOnly {
		w.add("p.is_active = true")
	}
	if f.CategoryID != nil {
		w.add("p.category_id = ?", *f.CategoryID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		w.add("(p.name ILIKE ? OR p.sku ILIKE ? OR p.barcode ILIKE ?)", like, like, like)
	}

	rows, err := s.pool.Query(ctx, productSelect+w.sql()+" ORDER BY p.name", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *productService) Get(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, productSelect+" WHERE p.id = $1 AND p.deleted_at IS NULL", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product", id)
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

func (s *productService) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		productSelect+" WHERE p.barcode = $1 AND p.deleted_at IS NULL", barcode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product with barcode %q: %w", barcode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by barcode %q: %w", barcode, err)
	}
	return p, nil
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, sku, barcode, category_id, unit, purchase_price, selling_price, minimum_stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		in.Name, in.SKU, in.Barcode, in.CategoryID, productUnit(in.Unit),
		in.PurchasePrice, in.SellingPrice, in.MinimumStock, in.IsActive,
	).Scan(&id)
	if err != nil {
		return nil, productWriteError(err, "create product "+in.SKU)
	}
	return s.Get(ctx, id)
}

func (s *productService) Update(ctx context.Context, id int, in ProductInput) (*Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, sku = $3, barcode = $4, category_id = $5, unit = $6,
		    purchase_price = $7, selling_price = $8, minimum_stock = $9, is_active = $10, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, in.Name, in.SKU, in.Barcode, in.CategoryID, productUnit(in.Unit),
		in.PurchasePrice, in.SellingPrice, in.MinimumStock, in.IsActive)
	if err != nil {
		return nil, productWriteError(err, fmt.Sprintf("update product %d", id))
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("product", id)
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the product and frees its sku and barcode for reuse.
func (s *productService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET deleted_at = now(), updated_at = now(),
		    sku = sku || '#deleted-' || id, barcode = NULL
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("product", id)
	}
	return nil
}

func productUnit(u string) string {
	if u == "" {
		return "pcs"
	}
	return u
}

func validateProductInput(in ProductInput) error {
	verr := NewValidationError()
	if in.PurchasePrice.IsNegative() {
		verr.Add("purchase_price", "The purchase price must be at least 0.")
	}
	if in.SellingPrice.IsNegative() {
		verr.Add("selling_price", "The selling price must be at least 0.")
	}
	if in.MinimumStock.IsNegative() {
		verr.Add("minimum_stock", "The minimum stock must be at least 0.")
	}
	return verr.OrNil()
}

func productWriteError(err error, op string) error {
	code, constraint := pgErrorCode(err)
	switch {
	case code == pgUniqueViolation && strings.Contains(constraint, "barcode"):
		return fieldError("barcode", "The barcode has already been taken.")
	case code == pgUniqueViolation:
		return fieldError("sku", "The sku has already been taken.")
	case code == pgForeignKeyViolation:
		return fieldError("category_id", "The selected category id is invalid.")
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
