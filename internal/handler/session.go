package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/rollcall/internal/attendance"
)

type SessionHandler struct {
	engine *attendance.Engine
	logger *slog.Logger
}

func NewSessionHandler(e *attendance.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{engine: e, logger: logger}
}

// Create schedules a new session, replacing the active one.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date    string   `json:"date"`
		Time    string   `json:"time"`
		Members []string `json:"members"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.engine.CreateSession(req.Date, req.Time, req.Members)
	if err != nil {
		writeError(w, h.logger, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.ActiveSession()
	if err != nil {
		writeError(w, h.logger, "get active session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Remove is the admin correction: it drops a member from the active session
// whether or not they checked in themselves.
func (h *SessionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.engine.AdminRemove(req.Name)
	if err != nil {
		writeError(w, h.logger, "remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Rollover(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Rollover()
	if err != nil {
		writeError(w, h.logger, "rollover", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) LateTallies(w http.ResponseWriter, r *http.Request) {
	tallies, err := h.engine.LateTallies()
	if err != nil {
		writeError(w, h.logger, "list late tallies", err)
		return
	}
	writeJSON(w, http.StatusOK, tallies)
}

// Public serves the session behind a QR link. No credential is needed.
func (h *SessionHandler) Public(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// CheckIn is the public self check-in. Repeats and unknown names succeed
// without changing anything.
func (h *SessionHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.engine.CheckIn(r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, h.logger, "check in", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
