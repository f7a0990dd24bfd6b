// Package auth signs and checks workspace tokens. A token is
// "<workspaceID>.<base64url(HMAC-SHA256(workspaceID))>" and is accepted from
// an Authorization: Bearer header or the session cookie.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/invoice-totals/httpx"
)

type ctxKey string

const (
	sessionCookieName = "session"
	workspaceCtxKey   = ctxKey("workspaceID")
	sessionTTL        = 14 * 24 * time.Hour
)

// WorkspaceVerifier optionally confirms that a workspace still exists.
type WorkspaceVerifier func(ctx context.Context, workspaceID uint) bool

type Authenticator struct {
	secret   []byte
	verifier WorkspaceVerifier
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// SetVerifier configures the check run by RequireWorkspace.
func (a *Authenticator) SetVerifier(v WorkspaceVerifier) { a.verifier = v }

func (a *Authenticator) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Sign returns the token of a workspace.
func (a *Authenticator) Sign(workspaceID uint) string {
	id := strconv.FormatUint(uint64(workspaceID), 10)
	return id + "." + a.sign(id)
}

// Parse validates token and returns its workspace id.
func (a *Authenticator) Parse(token string) (uint, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" || sig == "" {
		return 0, false
	}
	if !hmac.Equal([]byte(sig), []byte(a.sign(id))) {
		return 0, false
	}
	id64, err := strconv.ParseUint(id, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// SetSession stores the workspace token in the session cookie.
func (a *Authenticator) SetSession(w http.ResponseWriter, workspaceID uint) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.Sign(workspaceID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func WithWorkspaceID(ctx context.Context, workspaceID uint) context.Context {
	return context.WithValue(ctx, workspaceCtxKey, workspaceID)
}

func WorkspaceIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(workspaceCtxKey).(uint)
	return id, ok && id != 0
}

// Middleware attaches the workspace id to the request context when the
// request carries a valid token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ws, ok := a.Parse(tokenFromRequest(r)); ok {
			r = r.WithContext(WithWorkspaceID(r.Context(), ws))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireWorkspace answers 401 JSON unless Middleware found a valid token.
func (a *Authenticator) RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := WorkspaceIDFromContext(r.Context())
		if ok && a.verifier != nil && !a.verifier(r.Context(), ws) {
			ClearSession(w)
			ok = false
		}
		if !ok {
			httpx.Fail(w, r, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
