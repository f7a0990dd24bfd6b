package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"
	"github.com/unrolled/secure"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-totals/auth"
	"github.com/diewo77/invoice-totals/httpx"
	"github.com/diewo77/invoice-totals/i18n"
	"github.com/diewo77/invoice-totals/internal/cache"
	"github.com/diewo77/invoice-totals/internal/config"
	"github.com/diewo77/invoice-totals/internal/handlers"
	"github.com/diewo77/invoice-totals/internal/logging"
	"github.com/diewo77/invoice-totals/internal/services"
)

// App is the main application handler that sets up all routes.
type App struct {
	router chi.Router
	db     *gorm.DB
	auth   *auth.Authenticator
	cfg    *config.Config
	log    logrus.FieldLogger
}

// NewApp creates a new application with all routes configured.
func NewApp(cfg *config.Config, db *gorm.DB, store *cache.Cache, log logrus.FieldLogger) *App {
	invoices := services.NewInvoiceService(db, store, log)
	h := handlers.New(handlers.Options{
		Invoices:    invoices,
		CreditNotes: services.NewCreditNoteService(db, invoices),
		Clients:     services.NewClientService(db),
		Logger:      log,
		Currency:    cfg.App.Currency,
	})

	app := &App{
		router: chi.NewRouter(),
		db:     db,
		auth:   auth.New(cfg.Auth.Secret),
		cfg:    cfg,
		log:    log,
	}
	if len(cfg.Auth.Workspaces) > 0 {
		app.auth.SetVerifier(func(_ context.Context, ws uint) bool { return cfg.Auth.Allows(ws) })
	}
	app.setupRoutes(h)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) setupRoutes(h *handlers.Handler) {
	r := a.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(a.log))
	r.Use(middleware.Recoverer)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        a.cfg.App.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      a.cfg.App.Dev,
	}).Handler)
	r.Use(withPreferences)
	if n := a.cfg.Server.RateLimit; n > 0 {
		r.Use(httprate.Limit(n, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Fail(w, r, http.StatusTooManyRequests, "rate_limited", nil)
			}),
		))
	}
	if d := a.cfg.Server.RequestTimeout; d > 0 {
		r.Use(middleware.Timeout(d))
	}
	r.Use(a.auth.Middleware)

	r.Get("/healthz", a.health)

	// Session endpoints only exist for local development; deployments issue
	// tokens out of band with auth.Sign.
	if a.cfg.App.Dev && !a.cfg.App.IsProduction() {
		r.Post("/session", a.openSession)
	}
	r.Delete("/session", func(w http.ResponseWriter, r *http.Request) {
		auth.ClearSession(w)
		w.WriteHeader(http.StatusNoContent)
	})

	r.With(a.auth.RequireWorkspace).Mount("/api", h.Router())
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.WithError(err).Warn("health check failed")
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) openSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID uint `json:"workspace_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.WorkspaceID == 0 {
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"workspace_id": "required"})
		return
	}
	a.auth.SetSession(w, req.WorkspaceID)
	httpx.JSON(w, http.StatusOK, map[string]string{"token": a.auth.Sign(req.WorkspaceID)})
}

// withPreferences picks the response language: ?lang= (remembered in a
// cookie), then the lang cookie, then Accept-Language.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = i18n.Normalize(c.Value)
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.Normalize(q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}
