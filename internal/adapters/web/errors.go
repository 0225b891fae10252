package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Message   string              `json:"message"`
	Code      string              `json:"code,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// stockErrorResponse is the plain-sale shortage body.
type stockErrorResponse struct {
	Message           string          `json:"message"`
	Product           string          `json:"product"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Shortage          decimal.Decimal `json:"shortage"`
	RequestID         string          `json:"request_id,omitempty"`
}

type stockErrorDetail struct {
	ProductID         int             `json:"product_id"`
	ProductName       string          `json:"product_name"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Shortage          decimal.Decimal `json:"shortage"`
}

// posErrorResponse is the POS envelope used for shortages at checkout.
type posErrorResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Error     stockErrorDetail `json:"error"`
	RequestID string           `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeJSON(w, status, errorResponse{
		Message:   message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeValidationError writes the 422 field-error body.
func writeValidationError(w http.ResponseWriter, r *http.Request, verr *core.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Message:   "Validation error",
		Code:      "VALIDATION_ERROR",
		Errors:    verr.Errors,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorStyle int

const (
	plainErrors errorStyle = iota
	posErrors
)

// writeAppError maps an application error onto its HTTP status and body.
// Unrecognised errors are logged and reported as a generic 500.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error, style errorStyle) {
	reqID := requestIDFromContext(r.Context())

	var verr *core.ValidationError
	var short *core.InsufficientStockError
	var rev *core.StockReversalError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, r, verr)
	case errors.As(err, &short):
		msg := "Insufficient stock for " + short.ProductName
		if style == posErrors {
			writeJSON(w, http.StatusUnprocessableEntity, posErrorResponse{
				Success: false,
				Message: msg,
				Error: stockErrorDetail{
					ProductID:         short.ProductID,
					ProductName:       short.ProductName,
					AvailableQuantity: short.Available,
					RequestedQuantity: short.Requested,
					Shortage:          short.Shortage,
				},
				RequestID: reqID,
			})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, stockErrorResponse{
			Message:           msg,
			Product:           short.ProductName,
			AvailableQuantity: short.Available,
			RequestedQuantity: short.Requested,
			Shortage:          short.Shortage,
			RequestID:         reqID,
		})
	case errors.As(err, &rev):
		writeJSON(w, http.StatusConflict, stockErrorResponse{
			Message:           rev.Error(),
			Product:           rev.ProductName,
			AvailableQuantity: rev.Available,
			RequestedQuantity: rev.Requested,
			Shortage:          rev.Shortage,
			RequestID:         reqID,
		})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, r, "You do not have access to this resource.", "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, r, "invalid email or password", "UNAUTHORIZED", http.StatusUnauthorized)
	default:
		h.log.WithError(err).WithField("request_id", reqID).Error("request failed")
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
