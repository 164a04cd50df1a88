package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/rollcall/internal/attendance"
)

type SettingsHandler struct {
	engine *attendance.Engine
	logger *slog.Logger
}

func NewSettingsHandler(e *attendance.Engine, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{engine: e, logger: logger}
}

func (h *SettingsHandler) GetDefaultTime(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.DefaultTime()
	if err != nil {
		writeError(w, h.logger, "get default time", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"time": v, "timezone": h.engine.Location().String()})
}

func (h *SettingsHandler) SetDefaultTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time string `json:"time"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.engine.SetDefaultTime(req.Time)
	if err != nil {
		writeError(w, h.logger, "set default time", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"time": v, "timezone": h.engine.Location().String()})
}
