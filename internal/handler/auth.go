package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/rollcall/internal/auth"
)

type AuthHandler struct {
	gate         *auth.Gate
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(g *auth.Gate, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: g, secureCookie: secureCookie, logger: logger}
}

// Login exchanges the admin password for a trust token cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	tok, err := h.gate.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			h.logger.Warn("failed admin login")
		}
		writeError(w, h.logger, "login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tok.Value,
		Path:     "/",
		MaxAge:   int(h.gate.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "expires_at": tok.ExpiresAt})
}

// Logout revokes the presented token, if any, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil && cookie.Value != "" {
		if err := h.gate.Logout(cookie.Value); err != nil {
			h.logger.Error("logout", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports whether the request carries a valid trust token. It sits
// behind RequireAdmin, so reaching it means yes.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "expires_at": ac.ExpiresAt})
}
