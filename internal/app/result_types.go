package app

import "branchpos/internal/core"

// UserSession is returned by AuthenticateUser. The web adapter signs it into a bearer token.
type UserSession struct {
	UserID   int       `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     core.Role `json:"role"`
	BranchID *int      `json:"branch_id"`
}

// Principal returns the authorization view of the session.
func (s *UserSession) Principal() core.Principal {
	return core.Principal{UserID: s.UserID, Role: s.Role, BranchID: s.BranchID}
}

// ReportTable is a report flattened for spreadsheet export. Cells hold strings,
// ints or decimals; decimals are written as numbers.
type ReportTable struct {
	Title   string
	Columns []string
	Rows    [][]any
}
