package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/auth"
	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/internal/cache"
	"github.com/diewo77/invoice-totals/internal/config"
	"github.com/diewo77/invoice-totals/internal/db"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, RateLimit: 100},
		App:    config.AppConfig{Env: "test", Dev: true, Currency: "EUR"},
		Auth:   config.AuthConfig{Secret: "test-secret"},
	}
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewApp(cfg, gdb, cache.New(nil, time.Minute), log)
}

func TestHealthz(t *testing.T) {
	app := newApp(t, testConfig())
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPIRequiresWorkspace(t *testing.T) {
	app := newApp(t, testConfig())

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error)
	assert.Equal(t, "Authentification requise", body.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+auth.New("test-secret").Sign(3))
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWorkspaceAllowlist(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Workspaces = []uint{3}
	app := newApp(t, cfg)
	signer := auth.New("test-secret")

	get := func(ws uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
		req.Header.Set("Authorization", "Bearer "+signer.Sign(ws))
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusOK, get(3).Code)
	assert.Equal(t, http.StatusUnauthorized, get(4).Code)
}

func TestLanguagePreference(t *testing.T) {
	app := newApp(t, testConfig())
	message := func(req *http.Request) (string, *httptest.ResponseRecorder) {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		var body httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Message, rec
	}

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	msg, _ := message(req)
	assert.Equal(t, "Authentication required", msg)

	req = httptest.NewRequest(http.MethodGet, "/api/invoices?lang=en", nil)
	msg, rec := message(req)
	assert.Equal(t, "Authentication required", msg)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lang", cookies[0].Name)
	assert.Equal(t, "en", cookies[0].Value)

	// the cookie wins over the header
	req = httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Accept-Language", "en")
	req.AddCookie(&http.Cookie{Name: "lang", Value: "fr"})
	msg, _ = message(req)
	assert.Equal(t, "Authentification requise", msg)
}

func TestDevSession(t *testing.T) {
	app := newApp(t, testConfig())

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"workspace_id":7}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/revenue", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg := testConfig()
	cfg.App.Dev = false
	rec = httptest.NewRecorder()
	newApp(t, cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"workspace_id":7}`)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 2
	app := newApp(t, cfg)

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRunStopsOnCancel(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, srv, time.Second, log) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
