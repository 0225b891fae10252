package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type categoryService struct {
	pool *pgxpool.Pool
}

// NewCategoryService constructs a CategoryService backed by PostgreSQL.
func NewCategoryService(pool *pgxpool.Pool) CategoryService {
	return &categoryService{pool: pool}
}

// Slugify lowercases s and joins its letter/digit runs with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}

const categorySelect = `
	SELECT c.id, c.name, c.slug, c.parent_id, p.name, c.is_active, c.created_at, c.updated_at
	FROM categories c
	LEFT JOIN categories p ON p.id = c.parent_id`

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.ParentName, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *categoryService) List(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, categorySelect+" ORDER BY c.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *categoryService) Get(ctx context.Context, id int) (*Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx, categorySelect+" WHERE c.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("category", id)
		}
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return c, nil
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*Category, error) {
	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if in.ParentID != nil {
		if err := s.requireParent(ctx, *in.ParentID); err != nil {
			return nil, err
		}
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, parent_id, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, in.Name, slug, in.ParentID, in.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fieldError("slug", "The slug has already been taken.")
		}
		return nil, fmt.Errorf("failed to create category %q: %w", in.Name, err)
	}
	return s.Get(ctx, id)
}

func (s *categoryService) Update(ctx context.Context, id int, in CategoryInput) (*Category, error) {
	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if in.ParentID != nil {
		if err := s.requireParent(ctx, *in.ParentID); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE categories
		SET name = $2, slug = $3, parent_id = $4, is_active = $5, updated_at = now()
		WHERE id = $1`, id, in.Name, slug, in.ParentID, in.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fieldError("slug", "The slug has already been taken.")
		}
		return nil, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("category", id)
	}
	return s.Get(ctx, id)
}

func (s *categoryService) requireParent(ctx context.Context, parentID int) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)", parentID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check parent category: %w", err)
	}
	if !exists {
		return fieldError("parent_id", "The selected parent id is invalid.")
	}
	return nil
}

// checkNoCycle rejects a parent that is the category itself or one of its descendants.
func (s *categoryService) checkNoCycle(ctx context.Context, id, parentID int) error {
	var cyclic bool
	err := s.pool.QueryRow(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM categories WHERE id = $2
			UNION
			SELECT c.id, c.parent_id FROM categories c JOIN ancestors a ON c.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $1)`, id, parentID,
	).Scan(&cyclic)
	if err != nil {
		return fmt.Errorf("failed to check category ancestry: %w", err)
	}
	if cyclic {
		return fieldError("parent_id", "A category cannot be nested under itself or its descendants.")
	}
	return nil
}

func (s *categoryService) Delete(ctx context.Context, id int) error {
	var products, children int
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM products   WHERE category_id = $1 AND deleted_at IS NULL),
		       (SELECT COUNT(*) FROM categories WHERE parent_id = $1)`, id,
	).Scan(&products, &children)
	if err != nil {
		return fmt.Errorf("failed to check category usage: %w", err)
	}
	if products > 0 || children > 0 {
		return fmt.Errorf("category %d has %d products and %d subcategories: %w", id, products, children, ErrConflict)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("category %d is still referenced: %w", id, ErrConflict)
		}
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("category", id)
	}
	return nil
}
