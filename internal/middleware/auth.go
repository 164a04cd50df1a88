package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rollcall/internal/auth"
)

// RequireAdmin validates the trust token cookie and populates AuthContext.
// API callers get a 401 naming the login route; page requests are sent to
// /login, with HX-Redirect for HTMX requests.
func RequireAdmin(gate *auth.Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var value string
			if cookie, err := r.Cookie(auth.CookieName); err == nil {
				value = cookie.Value
			}

			tok, err := gate.Check(value)
			if errors.Is(err, auth.ErrUnauthorized) {
				rejectUnauthorized(w, r)
				return
			}
			if err != nil {
				logger.Error("check admin token", "error", err)
				http.Error(w, "Internal error", http.StatusInternalServerError)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{TokenID: tok.ID, ExpiresAt: tok.ExpiresAt})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "login": "/login"})
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
