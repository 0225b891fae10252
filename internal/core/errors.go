package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks requests that collide with current state: a duplicate invoice number,
	// a lock wait timeout, or deleting a row that is still referenced.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks a principal acting outside its role or branch.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized marks failed credential checks.
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrStockInvariant is returned when a stock row would be left negative after a decrement
	// inside a posting transaction. The transaction is always rolled back.
	ErrStockInvariant = errors.New("stock invariant violated")
)

// NotFoundError reports a missing (or soft-deleted) row addressed by id.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(entity string, id int) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError carries per-field messages, keyed by JSON field path (e.g. "items.0.quantity").
type ValidationError struct {
	Errors map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Errors: map[string][]string{}}
}

// Add appends msg to field.
func (e *ValidationError) Add(field, msg string) {
	e.Errors[field] = append(e.Errors[field], msg)
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// OrNil returns e when it holds errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Errors[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) error {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

// InsufficientStockError identifies the first cart line that the branch cannot cover.
type InsufficientStockError struct {
	ProductID   int
	ProductName string
	Available   decimal.Decimal
	Requested   decimal.Decimal
	Shortage    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		e.ProductName, e.Available.String(), e.Requested.String())
}

// StockReversalError is returned when deleting a purchase would drive a stock row negative
// because some of its units were already sold.
type StockReversalError struct {
	ProductID   int
	ProductName string
	Available   decimal.Decimal
	Requested   decimal.Decimal
	Shortage    decimal.Decimal
}

func (e *StockReversalError) Error() string {
	return fmt.Sprintf("cannot reverse purchase: stock of %s would become negative (available %s, required %s)",
		e.ProductName, e.Available.String(), e.Requested.String())
}

// Postgres error codes mapped by this package.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgLockNotAvailable    = "55P03"
)

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgForeignKeyViolation
}

// mapPostingError converts lock timeouts and invoice collisions into ErrConflict.
func mapPostingError(err error, op string) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case pgLockNotAvailable:
		return fmt.Errorf("%s: stock rows are locked by another transaction, retry: %w", op, ErrConflict)
	case pgUniqueViolation:
		return fmt.Errorf("%s: duplicate value violates %s: %w", op, constraint, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
