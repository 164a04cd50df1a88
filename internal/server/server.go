package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/rollcall/internal/attendance"
	"github.com/dukerupert/rollcall/internal/auth"
	"github.com/dukerupert/rollcall/internal/handler"
	"github.com/dukerupert/rollcall/internal/middleware"
	"github.com/dukerupert/rollcall/internal/store"
	ws "github.com/dukerupert/rollcall/internal/websocket"
)

type Config struct {
	Attendance   attendance.Config
	TokenTTL     time.Duration
	SecureCookie bool
	// WSOriginPatterns lists extra origins allowed to open session sockets.
	WSOriginPatterns []string
	// TrustedProxies may set X-Forwarded-For. Nil trusts no one.
	TrustedProxies *middleware.TrustedProxies
}

type Server struct {
	engine        *attendance.Engine
	gate          *auth.Gate
	hub           *ws.Hub
	authH         *handler.AuthHandler
	rosterH       *handler.RosterHandler
	sessionH      *handler.SessionHandler
	settingsH     *handler.SettingsHandler
	loginLimiter  *middleware.RateLimiter
	publicLimiter *middleware.RateLimiter
	cfg           Config
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	rosterStore := store.NewRosterStore(db)
	attendanceStore := store.NewAttendanceStore(db)
	settingsStore := store.NewSettingsStore(db)
	tallyStore := store.NewTallyStore(db)
	tokenStore := store.NewAdminTokenStore(db)

	hub := ws.NewHub(logger.With("component", "websocket"))
	engine := attendance.NewEngine(rosterStore, attendanceStore, settingsStore, tallyStore, cfg.Attendance, logger.With("component", "attendance"))
	engine.OnChange(hub.PublishSession)
	engine.OnClose(hub.CloseSession)

	gate := auth.NewGate(settingsStore, tokenStore, cfg.TokenTTL, logger.With("component", "auth"))

	return &Server{
		engine:        engine,
		gate:          gate,
		hub:           hub,
		authH:         handler.NewAuthHandler(gate, cfg.SecureCookie, logger.With("component", "auth_handler")),
		rosterH:       handler.NewRosterHandler(engine, logger.With("component", "roster")),
		sessionH:      handler.NewSessionHandler(engine, logger.With("component", "session")),
		settingsH:     handler.NewSettingsHandler(engine, logger.With("component", "settings")),
		loginLimiter:  middleware.NewRateLimiter(middleware.Policy{Limit: 10, Window: time.Minute}),
		publicLimiter: middleware.NewRateLimiter(middleware.Policy{Limit: 60, Window: time.Minute}),
		cfg:           cfg,
		logger:        logger,
	}
}

// Gate returns the auth gate for startup seeding and cleanup tasks.
func (s *Server) Gate() *auth.Gate {
	return s.gate
}

// Cleanup drops expired trust tokens and rate-limit windows.
func (s *Server) Cleanup() {
	if n, err := s.gate.PurgeExpired(); err != nil {
		s.logger.Error("purge expired admin tokens", "error", err)
	} else if n > 0 {
		s.logger.Info("purged expired admin tokens", "count", n)
	}
	s.loginLimiter.Cleanup()
	s.publicLimiter.Cleanup()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	loginLimit := middleware.RateLimit(s.loginLimiter)
	publicLimit := middleware.RateLimit(s.publicLimiter)

	// Public routes: login, and everything reachable from a QR link.
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("POST /api/login", loginLimit(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/sessions/{id}", s.sessionH.Public)
	mux.Handle("POST /api/sessions/{id}/check-in", publicLimit(http.HandlerFunc(s.sessionH.CheckIn)))
	mux.HandleFunc("GET /api/sessions/{id}/ws", ws.HandleSession(s.hub, s.engine, s.cfg.WSOriginPatterns, s.logger.With("component", "websocket")))

	// Admin routes, each behind the trust token check.
	adminMw := middleware.RequireAdmin(s.gate, s.logger.With("component", "auth"))
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, adminMw(h))
	}
	admin("GET /api/auth", s.authH.Status)
	admin("GET /api/members", s.rosterH.List)
	admin("PUT /api/members", s.rosterH.Replace)
	admin("POST /api/session", s.sessionH.Create)
	admin("GET /api/session", s.sessionH.Active)
	admin("POST /api/session/remove", s.sessionH.Remove)
	admin("GET /api/default-time", s.settingsH.GetDefaultTime)
	admin("PUT /api/default-time", s.settingsH.SetDefaultTime)
	admin("POST /api/rollover", s.sessionH.Rollover)
	admin("GET /api/late-tallies", s.sessionH.LateTallies)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.ResolveClientIP(s.cfg.TrustedProxies)(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
