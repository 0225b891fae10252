package web

import (
	"net/http"

	"branchpos/internal/app"
	"branchpos/internal/core"
)

type saleResponse struct {
	Message string     `json:"message"`
	Sale    *core.Sale `json:"sale"`
}

type posResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Invoice *core.Invoice `json:"invoice"`
}

type purchaseResponse struct {
	Message  string         `json:"message"`
	Purchase *core.Purchase `json:"purchase"`
}

// ── Sales ─────────────────────────────────────────────────────────────────────

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	f, err := parseSaleFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	sales, err := h.svc.ListSales(r.Context(), principal(r), f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: sales})
}

// createSale handles POST /api/sales.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sale, err := h.svc.CreateSale(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, saleResponse{Message: "Sale created successfully", Sale: sale})
}

// checkoutPOS handles POST /api/sales/pos. Failures use the POS error envelope.
func (h *Handler) checkoutPOS(w http.ResponseWriter, r *http.Request) {
	var req app.POSCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.CheckoutPOS(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, posErrors)
		return
	}
	writeJSON(w, http.StatusCreated, posResponse{Success: true, Message: "Sale completed successfully", Invoice: inv})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, posResponse{Success: true, Invoice: inv})
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sale, err := h.svc.UpdateSale(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, saleResponse{Message: "Sale updated successfully", Sale: sale})
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Sale deleted successfully"})
}

// ── Purchases ─────────────────────────────────────────────────────────────────

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	f, err := parsePurchaseFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	purchases, err := h.svc.ListPurchases(r.Context(), principal(r), f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: purchases})
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req app.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pur, err := h.svc.CreatePurchase(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, purchaseResponse{Message: "Purchase created successfully", Purchase: pur})
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	pur, err := h.svc.GetPurchase(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, pur)
}

func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdatePurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pur, err := h.svc.UpdatePurchase(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, purchaseResponse{Message: "Purchase updated successfully", Purchase: pur})
}

// deletePurchase reverses a purchase. A reversal that would drive stock negative is 409.
func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePurchase(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Purchase deleted successfully"})
}
