package web

import (
	"net/http"

	"branchpos/internal/app"

	"github.com/go-chi/chi/v5"
)

// ── Branches ──────────────────────────────────────────────────────────────────

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.svc.ListBranches(r.Context(), principal(r))
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: branches})
}

func (h *Handler) getBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.svc.GetBranch(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	var req app.BranchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.CreateBranch(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) updateBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.BranchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.UpdateBranch(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteBranch(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Branch deleted successfully"})
}

// ── Categories ────────────────────────────────────────────────────────────────

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context(), principal(r))
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: cats})
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCategory(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCategory(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Category deleted successfully"})
}

// ── Products ──────────────────────────────────────────────────────────────────

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseProductFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	products, err := h.svc.ListProducts(r.Context(), principal(r), f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: products})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) getProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProductByBarcode(r.Context(), principal(r), chi.URLParam(r, "barcode"))
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req app.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	f, err := parseStockFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	levels, err := h.svc.GetStockLevels(r.Context(), principal(r), f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: levels})
}

// ── Suppliers ─────────────────────────────────────────────────────────────────

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	activeOnly := newQueryParser(r.URL.Query()).boolean("active_only")
	suppliers, err := h.svc.ListSuppliers(r.Context(), principal(r), activeOnly)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: suppliers})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSupplier(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req app.SupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.CreateSupplier(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.SupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.svc.UpdateSupplier(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSupplier(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Supplier deleted successfully"})
}

// ── Expenses ──────────────────────────────────────────────────────────────────

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseExpenseFilter(r.URL.Query())
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	expenses, err := h.svc.ListExpenses(r.Context(), principal(r), f)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: expenses})
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.GetExpense(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.CreateExpense(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.UpdateExpense(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense deleted successfully"})
}

// ── Users ─────────────────────────────────────────────────────────────────────

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), principal(r))
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.GetUser(r.Context(), principal(r), id)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req app.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), principal(r), req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), principal(r), id, req)
	if err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeactivateUser(r.Context(), principal(r), id); err != nil {
		h.writeAppError(w, r, err, plainErrors)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deactivated successfully"})
}
