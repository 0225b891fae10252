package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type expenseService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewExpenseService constructs an ExpenseService backed by PostgreSQL.
func NewExpenseService(pool *pgxpool.Pool) ExpenseService {
	return &expenseService{pool: pool, now: time.Now}
}

const expenseSelect = `
	SELECT e.id, e.branch_id, b.name, e.user_id, u.name, e.title, e.amount, e.expense_date,
	       e.category, e.note, e.created_at, e.updated_at
	FROM expenses e
	JOIN branches b ON b.id = e.branch_id
	JOIN users u    ON u.id = e.user_id`

func scanExpense(row pgx.Row) (*Expense, error) {
	e := &Expense{}
	err := row.Scan(&e.ID, &e.BranchID, &e.BranchName, &e.UserID, &e.UserName, &e.Title, &e.Amount,
		&e.ExpenseDate, &e.Category, &e.Note, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *expenseService) List(ctx context.Context, f ExpenseFilter) ([]Expense, error) {
	w := &whereBuilder{}
	w.add("e.deleted_at IS NULL")
	if f.BranchID != nil {
		w.add("e.branch_id = ?", *f.BranchID)
	}
	if f.From != nil {
		w.add("e.expense_date >= ?", dateOnly(*f.From))
	}
	if f.To != nil {
		w.add("e.expense_date <= ?", dateOnly(*f.To))
	}
	if f.Category != "" {
		w.add("e.category = ?", f.Category)
	}

	rows, err := s.pool.Query(ctx, expenseSelect+w.sql()+" ORDER BY e.expense_date DESC, e.id DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *expenseService) Get(ctx context.Context, id int) (*Expense, error) {
	e, err := scanExpense(s.pool.QueryRow(ctx, expenseSelect+" WHERE e.id = $1 AND e.deleted_at IS NULL", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("expense", id)
		}
		return nil, fmt.Errorf("failed to get expense %d: %w", id, err)
	}
	return e, nil
}

func (s *expenseService) Create(ctx context.Context, p Principal, in ExpenseInput) (*Expense, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO expenses (branch_id, user_id, title, amount, expense_date, category, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.BranchID, p.UserID, in.Title, Round2(in.Amount), s.expenseDate(in), in.Category, in.Note,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense %q: %w", in.Title, err)
	}
	return s.Get(ctx, id)
}

func (s *expenseService) Update(ctx context.Context, id int, in ExpenseInput) (*Expense, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE expenses
		SET branch_id = $2, title = $3, amount = $4, expense_date = $5, category = $6, note = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, in.BranchID, in.Title, Round2(in.Amount), s.expenseDate(in), in.Category, in.Note)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("expense", id)
	}
	return s.Get(ctx, id)
}

func (s *expenseService) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE expenses SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("expense", id)
	}
	return nil
}

func (s *expenseService) validate(ctx context.Context, in ExpenseInput) error {
	if !in.Amount.IsPositive() {
		return fieldError("amount", "The amount must be greater than 0.")
	}
	_, err := requireBranch(ctx, s.pool, in.BranchID)
	return err
}

func (s *expenseService) expenseDate(in ExpenseInput) time.Time {
	if in.ExpenseDate.IsZero() {
		return dateOnly(s.now())
	}
	return dateOnly(in.ExpenseDate)
}
