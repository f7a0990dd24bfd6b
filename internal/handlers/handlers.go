// Package handlers exposes the invoicing JSON API. Every request is scoped to
// the workspace found by auth.Middleware.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/invoice-totals/auth"
	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/internal/export"
	"github.com/diewo77/invoice-totals/internal/logging"
	"github.com/diewo77/invoice-totals/internal/services"
	"github.com/diewo77/invoice-totals/validation"
)

// Options wires a Handler.
type Options struct {
	Invoices    *services.InvoiceService
	CreditNotes *services.CreditNoteService
	Clients     *services.ClientService
	Logger      logrus.FieldLogger
	// Currency is the ISO code used to format amounts, EUR when empty.
	Currency string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	invoices *services.InvoiceService
	credits  *services.CreditNoteService
	clients  *services.ClientService
	log      logrus.FieldLogger
	currency string
	now      func() time.Time
}

func New(opts Options) *Handler {
	h := &Handler{
		invoices: opts.Invoices,
		credits:  opts.CreditNotes,
		clients:  opts.Clients,
		log:      opts.Logger,
		currency: opts.Currency,
		now:      opts.Now,
	}
	if h.currency == "" {
		h.currency = "EUR"
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	return h
}

// Router returns the API routes. Callers mount it behind
// auth.RequireWorkspace.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/totals", h.PreviewTotals)

	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.ListInvoices)
		r.Post("/", h.CreateInvoice)
		r.Get("/export", h.ExportInvoices)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetInvoice)
			r.Put("/", h.UpdateInvoice)
			r.Delete("/", h.DeleteInvoice)
			r.Post("/finalize", h.FinalizeInvoice)
			r.Post("/pay", h.PayInvoice)
			r.Post("/cancel", h.CancelInvoice)
			r.Get("/credit-notes", h.ListCreditNotes)
			r.Post("/credit-notes", h.CreateCreditNote)
			r.Get("/balance", h.Balance)
		})
	})

	r.Get("/credit-notes/{id}", h.GetCreditNote)
	r.Delete("/credit-notes/{id}", h.DeleteCreditNote)

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.ListClients)
		r.Post("/", h.CreateClient)
		r.Get("/{id}", h.GetClient)
		r.Put("/{id}", h.UpdateClient)
		r.Delete("/{id}", h.DeleteClient)
	})

	r.Get("/dashboard/revenue", h.Revenue)
	return r
}

func workspace(r *http.Request) uint {
	ws, _ := auth.WorkspaceIDFromContext(r.Context())
	return ws
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input gives the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) invalid(w http.ResponseWriter, r *http.Request, v validation.Violations) {
	httpx.Fail(w, r, http.StatusUnprocessableEntity, "validation_failed", v)
}

// fail maps service errors to HTTP answers. Unknown errors are logged and
// reported as 500 without details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		httpx.Fail(w, r, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrNotEditable):
		httpx.Fail(w, r, http.StatusConflict, "not_editable", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.Fail(w, r, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, services.ErrNotCreditable):
		httpx.Fail(w, r, http.StatusConflict, "not_creditable", err.Error())
	case errors.Is(err, services.ErrClientInUse):
		httpx.Fail(w, r, http.StatusConflict, "client_in_use", nil)
	case errors.Is(err, services.ErrEmptyInvoice):
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "empty_invoice", nil)
	case errors.Is(err, services.ErrCreditExceedsInvoice):
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "credit_exceeds_invoice", err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "invalid", err.Error())
	case errors.Is(err, export.ErrNothingToExport):
		httpx.Fail(w, r, http.StatusNotFound, "nothing_to_export", nil)
	default:
		logging.LogError(h.log, "handlers", r.Method+" "+r.URL.Path, err, logrus.Fields{
			"request_id":   middleware.GetReqID(r.Context()),
			"workspace_id": workspace(r),
		})
		httpx.Fail(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}
