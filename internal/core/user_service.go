package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userSelect = `
	SELECT u.id, u.name, u.email, u.password_hash, u.role, u.branch_id, b.name, u.is_active, u.created_at, u.updated_at
	FROM users u
	LEFT JOIN branches b ON b.id = u.branch_id`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.BranchID, &u.BranchName,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		userSelect+" WHERE lower(u.email) = lower($1) AND u.is_active = true LIMIT 1",
		strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %q: %w", email, err)
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, userSelect+" WHERE u.id = $1", userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", userID)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return u, nil
}

func (s *userService) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, userSelect+" ORDER BY u.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *userService) Create(ctx context.Context, in UserInput) (*User, error) {
	if err := validateUserInput(in, true); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, branch_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		in.Name, strings.ToLower(strings.TrimSpace(in.Email)), in.PasswordHash, in.Role, in.BranchID, in.IsActive,
	).Scan(&id)
	if err != nil {
		return nil, userWriteError(err, "create user "+in.Email)
	}
	return s.GetByID(ctx, id)
}

func (s *userService) Update(ctx context.Context, userID int, in UserInput) (*User, error) {
	if err := validateUserInput(in, false); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = COALESCE(NULLIF($4, ''), password_hash),
		    role = $5, branch_id = $6, is_active = $7, updated_at = now()
		WHERE id = $1`,
		userID, in.Name, strings.ToLower(strings.TrimSpace(in.Email)), in.PasswordHash, in.Role, in.BranchID, in.IsActive)
	if err != nil {
		return nil, userWriteError(err, fmt.Sprintf("update user %d", userID))
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("user", userID)
	}
	return s.GetByID(ctx, userID)
}

func (s *userService) Deactivate(ctx context.Context, userID int) error {
	tag, err := s.pool.Exec(ctx, "UPDATE users SET is_active = false, updated_at = now() WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("user", userID)
	}
	return nil
}

// validateUserInput enforces that owners carry no branch and everyone else carries one.
func validateUserInput(in UserInput, creating bool) error {
	verr := NewValidationError()
	if !in.Role.Valid() {
		verr.Add("role", "The selected role is invalid.")
	}
	switch {
	case in.Role == RoleOwner && in.BranchID != nil:
		verr.Add("branch_id", "Owners are not assigned to a branch.")
	case in.Role != RoleOwner && in.BranchID == nil:
		verr.Add("branch_id", "The branch id field is required for this role.")
	}
	if creating && in.PasswordHash == "" {
		verr.Add("password", "The password field is required.")
	}
	return verr.OrNil()
}

func userWriteError(err error, op string) error {
	code, _ := pgErrorCode(err)
	switch code {
	case pgUniqueViolation:
		return fieldError("email", "The email has already been taken.")
	case pgForeignKeyViolation:
		return fieldError("branch_id", "The selected branch id is invalid.")
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
