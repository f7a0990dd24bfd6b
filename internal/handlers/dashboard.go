package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/i18n"
)

// Revenue reports the workspace's collected revenue, formatted for the
// request language.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	rev, err := h.invoices.Revenue(r.Context(), workspace(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"currency":      h.currency,
		"invoice_count": rev.InvoiceCount,
		"invoiced":      h.money(lang, rev.Invoiced),
		"credited":      h.money(lang, rev.Credited),
		"net":           h.money(lang, rev.Net),
	})
}
