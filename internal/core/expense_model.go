package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a branch operating cost, subtracted from gross profit in reports.
type Expense struct {
	ID          int             `json:"id"`
	BranchID    int             `json:"branch_id"`
	BranchName  string          `json:"branch_name"`
	UserID      int             `json:"user_id"`
	UserName    string          `json:"user_name"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	Category    string          `json:"category"`
	Note        string          `json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpenseInput is the writable part of an Expense.
type ExpenseInput struct {
	BranchID    int
	Title       string
	Amount      decimal.Decimal
	ExpenseDate time.Time
	Category    string
	Note        string
}

// ExpenseFilter narrows List. Zero values mean "no bound".
type ExpenseFilter struct {
	BranchID *int
	From     *time.Time
	To       *time.Time
	Category string
}

// ExpenseService manages expenses.
type ExpenseService interface {
	List(ctx context.Context, f ExpenseFilter) ([]Expense, error)
	Get(ctx context.Context, id int) (*Expense, error)
	Create(ctx context.Context, p Principal, in ExpenseInput) (*Expense, error)
	Update(ctx context.Context, id int, in ExpenseInput) (*Expense, error)
	Delete(ctx context.Context, id int) error
}
