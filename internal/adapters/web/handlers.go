package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"branchpos/internal/app"
	"branchpos/internal/core"
	"branchpos/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Options configures NewHandler.
type Options struct {
	AllowedOrigins   string
	JWTSecret        string
	JWTTTL           time.Duration
	RequestBodyLimit int64
	// Metrics is optional. When set, requests are instrumented and /metrics is served.
	Metrics *metrics.Metrics
	// Ping reports database health for /api/health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// Handler holds the ApplicationService and the router configuration.
type Handler struct {
	svc       app.ApplicationService
	log       logrus.FieldLogger
	jwtSecret string
	jwtTTL    time.Duration
	ping      func(ctx context.Context) error
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log logrus.FieldLogger, opts Options) http.Handler {
	h := &Handler{
		svc:       svc,
		log:       log,
		jwtSecret: opts.JWTSecret,
		jwtTTL:    opts.JWTTTL,
		ping:      opts.Ping,
	}
	if h.jwtTTL <= 0 {
		h.jwtTTL = 12 * time.Hour
	}
	bodyLimit := opts.RequestBodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	if opts.Metrics != nil {
		r.Use(Instrument(opts.Metrics))
	}
	r.Use(CORS(opts.AllowedOrigins))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, "route not found", "NOT_FOUND", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, "method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RequestBodyLimit(bodyLimit))

		// ── Public ────────────────────────────────────────────────────────────
		r.Get("/health", h.health)
		r.Post("/auth/login", h.login)
		r.Get("/schemas", h.listSchemas)
		r.Get("/schemas/{name}", h.getSchema)

		// ── Authenticated ─────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Use(BranchAccess)

			r.Get("/auth/me", h.me)

			// Catalogue reads are open to every role; the POS needs them.
			r.Get("/branches", h.listBranches)
			r.Get("/branches/{id}", h.getBranch)
			r.Get("/categories", h.listCategories)
			r.Get("/categories/{id}", h.getCategory)
			r.Get("/products", h.listProducts)
			r.Get("/products/barcode/{barcode}", h.getProductByBarcode)
			r.Get("/products/{id}", h.getProduct)
			r.Get("/stock", h.listStock)

			// Sales and POS
			r.Get("/sales", h.listSales)
			r.Post("/sales", h.createSale)
			r.Post("/sales/pos", h.checkoutPOS)
			r.Get("/sales/{id}", h.getSale)
			r.Get("/sales/{id}/invoice", h.getInvoice)
			r.Put("/sales/{id}", h.updateSale)
			r.Delete("/sales/{id}", h.deleteSale)

			// ── Owner and manager ─────────────────────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(core.RoleOwner, core.RoleManager))

				r.Post("/categories", h.createCategory)
				r.Put("/categories/{id}", h.updateCategory)
				r.Delete("/categories/{id}", h.deleteCategory)

				r.Post("/products", h.createProduct)
				r.Put("/products/{id}", h.updateProduct)
				r.Delete("/products/{id}", h.deleteProduct)

				r.Get("/suppliers", h.listSuppliers)
				r.Post("/suppliers", h.createSupplier)
				r.Get("/suppliers/{id}", h.getSupplier)
				r.Put("/suppliers/{id}", h.updateSupplier)
				r.Delete("/suppliers/{id}", h.deleteSupplier)

				r.Get("/purchases", h.listPurchases)
				r.Post("/purchases", h.createPurchase)
				r.Get("/purchases/{id}", h.getPurchase)
				r.Put("/purchases/{id}", h.updatePurchase)
				r.Delete("/purchases/{id}", h.deletePurchase)

				r.Get("/expenses", h.listExpenses)
				r.Post("/expenses", h.createExpense)
				r.Get("/expenses/{id}", h.getExpense)
				r.Put("/expenses/{id}", h.updateExpense)
				r.Delete("/expenses/{id}", h.deleteExpense)

				r.Get("/reports", h.listReports)
				r.Get("/reports/{name}", h.getReport)
				r.Get("/reports/{name}/export", h.exportReport)
			})

			// ── Owner only ────────────────────────────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(core.RoleOwner))

				r.Post("/branches", h.createBranch)
				r.Put("/branches/{id}", h.updateBranch)
				r.Delete("/branches/{id}", h.deleteBranch)

				r.Get("/users", h.listUsers)
				r.Post("/users", h.createUser)
				r.Get("/users/{id}", h.getUser)
				r.Put("/users/{id}", h.updateUser)
				r.Delete("/users/{id}", h.deactivateUser)
			})
		})
	})

	return r
}

// health reports liveness and database reachability.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.WithError(err).Warn("health check: database unreachable")
			writeJSON(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Database: "ok"})
}

// decodeJSON reads the body into v. On failure the error response is already written:
// unreadable or syntactically broken bodies are 400, well-formed bodies with a value of
// the wrong shape are 422 field errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.As(err, &syntaxErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		writeBodyError(w, r, err, "invalid JSON body: "+err.Error())
	case errors.As(err, &typeErr):
		writeValidationError(w, r, typeMismatch(typeErr))
	default:
		// A field's own decoder (decimal amounts and quantities) refused its value.
		verr := core.NewValidationError()
		verr.Add("body", "A field has an invalid value: "+err.Error())
		writeValidationError(w, r, verr)
	}
	return false
}

// typeMismatch keys a decoder type error by the JSON path of the offending field.
func typeMismatch(e *json.UnmarshalTypeError) *core.ValidationError {
	field := e.Field
	if field == "" {
		field = "body"
	}
	name := field
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	verr := core.NewValidationError()
	verr.Add(field, fmt.Sprintf("The %s must be %s.", strings.ReplaceAll(name, "_", " "), expectedKind(e.Type)))
	return verr
}

func expectedKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "true or false"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Struct, reflect.Map:
		return "an object"
	case reflect.Pointer:
		return expectedKind(t.Elem())
	}
	return "a valid value"
}

// pathID parses the {id} URL parameter; a malformed id is reported as 404.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "resource not found", "NOT_FOUND", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

type messageResponse struct {
	Message string `json:"message"`
}

type listResponse struct {
	Data any `json:"data"`
}
