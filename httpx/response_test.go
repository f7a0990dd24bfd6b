package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoice-totals/i18n"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())

	rec = httptest.NewRecorder()
	JSON(rec, http.StatusOK, nil)
	assert.Equal(t, "null", rec.Body.String())
}

func TestJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]any{"bad": func() {}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "encode_error")
}

func TestFailTranslates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(i18n.WithLang(req.Context(), "en"))
	rec := httptest.NewRecorder()

	Fail(rec, req, http.StatusNotFound, "not_found", nil)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body.Error)
	assert.Equal(t, "Not found", body.Message)
}

func TestJSONErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusUnprocessableEntity, "validation_failed", "", map[string]string{"items": "required"})
	assert.JSONEq(t, `{"error":"validation_failed","details":{"items":"required"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	JSONError(rec, http.StatusConflict, "locked", "Invoice is locked", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"locked","message":"Invoice is locked"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ACME"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "ACME", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Error(t, DecodeJSON(req, &dst))
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "text/csv; charset=utf-8", "factures.csv")
	assert.Equal(t, `attachment; filename="factures.csv"`, rec.Header().Get("Content-Disposition"))
}
