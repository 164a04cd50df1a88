package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/rollcall/internal/attendance"
)

type RosterHandler struct {
	engine *attendance.Engine
	logger *slog.Logger
}

func NewRosterHandler(e *attendance.Engine, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{engine: e, logger: logger}
}

func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.engine.Roster()
	if err != nil {
		writeError(w, h.logger, "list roster", err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *RosterHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Members []string `json:"members"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	names, err := h.engine.ReplaceRoster(req.Members)
	if err != nil {
		writeError(w, h.logger, "replace roster", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": names})
}
