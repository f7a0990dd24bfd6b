package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/i18n"
)

func (h *Handler) ListCreditNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	notes, err := h.credits.ListByInvoice(r.Context(), workspace(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	out := make([]creditNoteResponse, len(notes))
	for i := range notes {
		out[i] = newCreditNoteResponse(lang, &notes[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

// CreateCreditNote issues an avoir against the invoice in the path.
func (h *Handler) CreateCreditNote(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req creditNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	note, v := req.toModel()
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.credits.Create(r.Context(), workspace(r), invoiceID, note); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/credit-notes/"+idString(note.ID))
	httpx.JSON(w, http.StatusCreated, newCreditNoteResponse(i18n.LangFromContext(r.Context()), note))
}

func (h *Handler) GetCreditNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	note, err := h.credits.Get(r.Context(), workspace(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newCreditNoteResponse(i18n.LangFromContext(r.Context()), note))
}

func (h *Handler) DeleteCreditNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.credits.Delete(r.Context(), workspace(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Balance reconciles an invoice with its credit notes.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	rec, err := h.credits.Balance(r.Context(), workspace(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balance":          rec,
		"remaining_to_pay": h.money(lang, rec.RemainingToPay),
	})
}
