package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/rollcall/internal/auth"
	"github.com/dukerupert/rollcall/internal/database"
	"github.com/dukerupert/rollcall/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupGate(t *testing.T) *auth.Gate {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	g := auth.NewGate(store.NewSettingsStore(db), store.NewAdminTokenStore(db), time.Hour, discard)
	if err := g.EnsureSecret("secret"); err != nil {
		t.Fatalf("ensure secret: %v", err)
	}
	return g
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAdminNoCookieAPI(t *testing.T) {
	handler := RequireAdmin(setupGate(t), discard)(unreachable(t))

	req := httptest.NewRequest("GET", "/api/members", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["login"] != "/login" {
		t.Errorf("login = %q, want /login", body["login"])
	}
}

func TestRequireAdminNoCookiePage(t *testing.T) {
	handler := RequireAdmin(setupGate(t), discard)(unreachable(t))

	req := httptest.NewRequest("GET", "/admin", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireAdminHTMXRedirect(t *testing.T) {
	handler := RequireAdmin(setupGate(t), discard)(unreachable(t))

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if hx := rec.Header().Get("HX-Redirect"); hx != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", hx)
	}
}

func TestRequireAdminInvalidToken(t *testing.T) {
	handler := RequireAdmin(setupGate(t), discard)(unreachable(t))

	req := httptest.NewRequest("POST", "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminValidToken(t *testing.T) {
	g := setupGate(t)
	tok, err := g.Login("secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var got auth.AuthContext
	handler := RequireAdmin(g, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		got = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok.Value})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.TokenID != tok.ID {
		t.Errorf("TokenID = %d, want %d", got.TokenID, tok.ID)
	}
}
