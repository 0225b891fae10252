package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"branchpos/internal/app"
	"branchpos/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

type authClaimsKey struct{}

// AuthClaims is the caller identity carried by a verified bearer token.
type AuthClaims struct {
	UserID   int
	Role     core.Role
	BranchID *int
}

// Principal converts the claims into the value the application layer authorizes against.
func (c *AuthClaims) Principal() core.Principal {
	return core.Principal{UserID: c.UserID, Role: c.Role, BranchID: c.BranchID}
}

// authFromContext is nil outside RequireAuth.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// principal returns the caller's principal. Only valid behind RequireAuth.
func principal(r *http.Request) core.Principal {
	if c := authFromContext(r.Context()); c != nil {
		return c.Principal()
	}
	return core.Principal{}
}

// jwtClaims is the signed token payload.
type jwtClaims struct {
	UserID   int    `json:"user_id"`
	Role     string `json:"role"`
	BranchID *int   `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

func (h *Handler) signToken(session *app.UserSession, now time.Time) (string, error) {
	claims := &jwtClaims{
		UserID:   session.UserID,
		Role:     string(session.Role),
		BranchID: session.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(session.UserID),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.jwtTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}

func (h *Handler) parseToken(raw string) (*jwtClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireAuth is chi middleware that validates the Authorization: Bearer token and
// injects AuthClaims into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, r, "Unauthenticated.", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		claims, err := h.parseToken(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		role := core.Role(claims.Role)
		if !role.Valid() {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, &AuthClaims{
			UserID:   claims.UserID,
			Role:     role,
			BranchID: claims.BranchID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a route group to the given roles.
func RequireRole(roles ...core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !principal(r).HasRole(roles...) {
				writeError(w, r, "You do not have permission to perform this action.", "FORBIDDEN", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type loginResponse struct {
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	ExpiresIn int64            `json:"expires_in"`
	User      *app.UserSession `json:"user"`
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req app.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.AuthenticateUser(r.Context(), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}

	signed, err := h.signToken(session, time.Now())
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(h.jwtTTL.Seconds()),
		User:      session,
	})
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), principal(r))
	if errors.Is(err, core.ErrUnauthorized) {
		writeError(w, r, "Session is no longer valid. Sign in again.", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
