package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/i18n"
	"github.com/diewo77/invoice-totals/internal/export"
	"github.com/diewo77/invoice-totals/internal/models"
	"github.com/diewo77/invoice-totals/internal/services"
	"github.com/diewo77/invoice-totals/internal/totals"
	"github.com/diewo77/invoice-totals/validation"
)

// PreviewTotals computes the totals of an unsaved invoice. It backs the live
// form and never rejects malformed numbers.
func (h *Handler) PreviewTotals(w http.ResponseWriter, r *http.Request) {
	var in totals.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, totals.Calculate(in).Round(2))
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.ListFilter{
		Query: q.Get("q"),
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}

	v := validation.Violations{}
	if s := strings.ToUpper(q.Get("status")); s != "" {
		f.Status = models.InvoiceStatus(s)
		if !f.Status.Valid() && f.Status != models.InvoiceStatusOverdue {
			v["status"] = "invalid"
		}
	}
	if from, err := parseDate(q.Get("from")); err != nil {
		v["from"] = "invalid_date"
	} else if !from.IsZero() {
		f.From = &from
	}
	if to, err := parseDate(q.Get("to")); err != nil {
		v["to"] = "invalid_date"
	} else if !to.IsZero() {
		f.To = &to
	}
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}

	res, err := h.invoices.List(r.Context(), workspace(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	now := h.now()
	out := make([]invoiceResponse, len(res.Invoices))
	for i := range res.Invoices {
		out[i] = h.invoiceResponse(lang, &res.Invoices[i], now)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices": out,
		"total":    res.Total,
		"page":     res.Page,
		"limit":    res.Limit,
	})
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, v := req.toModel()
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.invoices.Create(r.Context(), workspace(r), inv); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/invoices/"+idString(inv.ID))
	httpx.JSON(w, http.StatusCreated, h.invoiceResponse(i18n.LangFromContext(r.Context()), inv, h.now()))
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	inv, err := h.invoices.Get(r.Context(), workspace(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceResponse(i18n.LangFromContext(r.Context()), inv, h.now()))
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	patch, v := req.toModel()
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	inv, err := h.invoices.Update(r.Context(), workspace(r), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceResponse(i18n.LangFromContext(r.Context()), inv, h.now()))
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.invoices.Delete(r.Context(), workspace(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FinalizeInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.invoices.Finalize)
}

func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.invoices.MarkPaid)
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.invoices.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uint, uint) (*models.Invoice, error)) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	inv, err := apply(r.Context(), workspace(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceResponse(i18n.LangFromContext(r.Context()), inv, h.now()))
}

// ExportInvoices streams the issued invoices of a period as CSV, XLSX or FEC.
func (h *Handler) ExportInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		v["format"] = "invalid_format"
	}
	var rng export.DateRange
	if rng.From, err = parseDate(q.Get("from")); err != nil {
		v["from"] = "invalid_date"
	}
	if rng.To, err = parseDate(q.Get("to")); err != nil {
		v["to"] = "invalid_date"
	}
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}

	invoices, err := h.invoices.ListForExport(r.Context(), workspace(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	invoices = export.FilterByDateRange(invoices, rng)

	var buf bytes.Buffer
	switch format {
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, invoices)
	case export.FormatFEC:
		err = export.WriteFEC(&buf, invoices)
	default:
		err = export.WriteCSV(&buf, invoices)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Attachment(w, format.ContentType(), export.Filename(format, rng, h.now()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
