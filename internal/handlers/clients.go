package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/i18n"
	"github.com/diewo77/invoice-totals/internal/models"
)

type clientResponse struct {
	*models.Client
	TypeLabel   string `json:"type_label"`
	FullAddress string `json:"full_address"`
}

func newClientResponse(lang string, c *models.Client) clientResponse {
	return clientResponse{
		Client:      c,
		TypeLabel:   i18n.ClientTypeLabel(lang, string(c.Type)),
		FullAddress: c.FullAddress(),
	}
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page")
	if page < 1 {
		page = 1
	}
	clients, total, err := h.clients.List(r.Context(), workspace(r), r.URL.Query().Get("q"), page, queryInt(r, "limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	out := make([]clientResponse, len(clients))
	for i := range clients {
		out[i] = newClientResponse(lang, &clients[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"clients": out,
		"total":   total,
		"page":    page,
	})
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	c, v := req.toModel()
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.clients.Create(r.Context(), workspace(r), c); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/clients/"+idString(c.ID))
	httpx.JSON(w, http.StatusCreated, newClientResponse(i18n.LangFromContext(r.Context()), c))
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	c, err := h.clients.Get(r.Context(), workspace(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newClientResponse(i18n.LangFromContext(r.Context()), c))
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	patch, v := req.toModel()
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	c, err := h.clients.Update(r.Context(), workspace(r), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newClientResponse(i18n.LangFromContext(r.Context()), c))
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.clients.Delete(r.Context(), workspace(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
