package attendance

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
)

type Config struct {
	// Location is the zone every date and clock reading is interpreted in.
	Location *time.Location
	// CheckInGrace is how long after the scheduled time self check-in stays
	// open. Zero keeps it open for the life of the session.
	CheckInGrace time.Duration
}

// Engine applies attendance policy on top of the roster, session and
// settings stores. It is the only writer of session state. Session changes
// are applied and announced one at a time, so listeners see them in order.
type Engine struct {
	mu       sync.Mutex
	roster   *store.RosterStore
	sessions *store.AttendanceStore
	settings *store.SettingsStore
	tallies  *store.TallyStore
	cfg      Config
	now      func() time.Time
	newID    func() string
	onChange func(*model.Session)
	onClose  func(publicID string)
	logger   *slog.Logger
}

func NewEngine(
	rs *store.RosterStore,
	as *store.AttendanceStore,
	ss *store.SettingsStore,
	ts *store.TallyStore,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		roster:   rs,
		sessions: as,
		settings: ss,
		tallies:  ts,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
		onChange: func(*model.Session) {},
		onClose:  func(string) {},
		logger:   logger,
	}
}

// OnChange registers fn to be called with the session after every change to
// it. Only one callback is kept.
func (e *Engine) OnChange(fn func(*model.Session)) {
	e.onChange = fn
}

// OnClose registers fn to be called with the public reference of a session
// that has just been replaced. Only one callback is kept.
func (e *Engine) OnClose(fn func(publicID string)) {
	e.onClose = fn
}

func (e *Engine) Location() *time.Location {
	return e.cfg.Location
}

// Roster returns the member names in display order.
func (e *Engine) Roster() ([]string, error) {
	names, err := e.roster.List()
	if err != nil {
		return nil, transient("list roster", err)
	}
	return names, nil
}

// ReplaceRoster overwrites the roster. Blank names are dropped; duplicates
// after trimming are rejected and leave the stored roster untouched.
func (e *Engine) ReplaceRoster(names []string) ([]string, error) {
	clean, err := NormalizeNames("members", names)
	if err != nil {
		return nil, err
	}
	if err := e.roster.Replace(clean); err != nil {
		return nil, transient("replace roster", err)
	}
	e.logger.Info("roster replaced", "count", len(clean))
	return clean, nil
}

// CreateSession schedules a new session at date and clock in the configured
// zone, expecting the given members. It replaces any active session. Every
// name must be on the roster.
func (e *Engine) CreateSession(date, clock string, names []string) (*model.Session, error) {
	var verr ValidationError
	if date == "" {
		verr.add("date", "required")
	}
	if clock == "" {
		verr.add("time", "required")
	}

	scheduledAt, err := WallTime(date, clock, e.cfg.Location)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			for f, msg := range ve.FieldErrors {
				verr.add(f, msg)
			}
		}
	}

	pending, err := NormalizeNames("members", names)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			for f, msg := range ve.FieldErrors {
				verr.add(f, msg)
			}
		}
	} else if len(pending) == 0 {
		verr.add("members", "select at least one member")
	}

	if verr.HasErrors() {
		return nil, &verr
	}

	roster, err := e.roster.List()
	if err != nil {
		return nil, transient("list roster", err)
	}
	onRoster := make(map[string]struct{}, len(roster))
	for _, n := range roster {
		onRoster[n] = struct{}{}
	}
	for _, n := range pending {
		if _, ok := onRoster[n]; !ok {
			verr.add("members", "not on roster: "+n)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.sessions.Active()
	if err != nil {
		return nil, transient("get active session", err)
	}
	sess, err := e.sessions.Create(e.newID(), scheduledAt.UTC(), pending)
	if err != nil {
		return nil, transient("create session", err)
	}
	e.local(sess)
	e.logger.Info("session created", "id", sess.PublicID, "scheduled_at", scheduledAt, "pending", len(sess.Pending))
	if prev != nil {
		e.onClose(prev.PublicID)
	}
	e.onChange(sess)
	return sess, nil
}

// ActiveSession returns the current session or ErrNotFound.
func (e *Engine) ActiveSession() (*model.Session, error) {
	sess, err := e.sessions.Active()
	if err != nil {
		return nil, transient("get active session", err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return e.local(sess), nil
}

// Session returns the active session if publicID refers to it.
func (e *Engine) Session(publicID string) (*model.Session, error) {
	if publicID == "" {
		return nil, ErrNotFound
	}
	sess, err := e.sessions.GetByPublicID(publicID)
	if err != nil {
		return nil, transient("get session", err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return e.local(sess), nil
}

// CheckIn removes name from the pending list of the session publicID refers
// to. It needs no credential. The name is trimmed the way roster names are.
// Names that are unknown or already removed are accepted without change.
func (e *Engine) CheckIn(publicID, name string) (*model.Session, error) {
	name = strings.TrimSpace(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.Session(publicID)
	if err != nil {
		return nil, err
	}
	if e.cfg.CheckInGrace > 0 && e.now().After(sess.ScheduledAt.Add(e.cfg.CheckInGrace)) {
		return nil, ErrCheckInClosed
	}
	if !sess.HasPending(name) {
		return sess, nil
	}

	removed, err := e.sessions.RemoveFromSession(publicID, name)
	if err != nil {
		return nil, transient("check in", err)
	}
	sess, err = e.Session(publicID)
	if err != nil {
		return nil, err
	}
	if removed {
		e.logger.Info("member removed", "session", publicID, "name", name, "source", "check-in", "remaining", len(sess.Pending))
		e.onChange(sess)
	}
	return sess, nil
}

// AdminRemove removes name from the active session's pending list. It is the
// same mechanism as CheckIn, without the check-in window, for corrections.
func (e *Engine) AdminRemove(name string) (*model.Session, error) {
	name = strings.TrimSpace(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.sessions.RemoveMember(name)
	if err != nil {
		return nil, transient("remove member", err)
	}
	sess, err := e.ActiveSession()
	if err != nil {
		return nil, err
	}
	if removed {
		e.logger.Info("member removed", "session", sess.PublicID, "name", name, "source", "admin", "remaining", len(sess.Pending))
		e.onChange(sess)
	}
	return sess, nil
}

// DefaultTime returns the configured default start time as HH:MM.
func (e *Engine) DefaultTime() (string, error) {
	v, err := e.settings.Get(store.KeyDefaultTime)
	if errors.Is(err, store.ErrSettingNotFound) {
		return DefaultClock, nil
	}
	if err != nil {
		return "", transient("get default time", err)
	}
	return v, nil
}

// SetDefaultTime stores the organization-wide default start time. It does
// not alter the active session.
func (e *Engine) SetDefaultTime(clock string) (string, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return "", &ValidationError{FieldErrors: map[string]string{"time": "expected HH:MM"}}
	}
	v := FormatClock(hour, minute)
	if err := e.settings.Set(store.KeyDefaultTime, v); err != nil {
		return "", transient("set default time", err)
	}
	return v, nil
}

type RolloverResult struct {
	Closed  bool           `json:"closed"`
	Created bool           `json:"created"`
	Late    []string       `json:"late"`
	Session *model.Session `json:"session,omitempty"`
}

// Rollover closes the active session once its check-in window has passed,
// adds a late mark for everyone still pending, and schedules the next
// session on the coming Sunday at the default time with the whole roster.
// With no active session it only schedules. Before the window has passed it
// changes nothing.
func (e *Engine) Rollover() (*RolloverResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	current, err := e.sessions.Active()
	if err != nil {
		return nil, transient("get active session", err)
	}
	if current != nil && now.Before(current.ScheduledAt.Add(e.cfg.CheckInGrace)) {
		return &RolloverResult{Late: []string{}, Session: e.local(current)}, nil
	}

	clock, err := e.DefaultTime()
	if err != nil {
		return nil, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		hour, minute, _ = ParseClock(DefaultClock)
	}
	nextAt := NextSunday(now, hour, minute, e.cfg.Location)

	roster, err := e.roster.List()
	if err != nil {
		return nil, transient("list roster", err)
	}

	var closingID string
	if current != nil {
		closingID = current.PublicID
	}
	late, next, err := e.sessions.Rollover(closingID, now, e.newID(), nextAt.UTC(), roster)
	if err != nil {
		return nil, transient("rollover", err)
	}

	e.local(next)
	e.logger.Info("session rolled over", "closed", closingID, "late", len(late), "next", next.PublicID, "scheduled_at", nextAt)
	if closingID != "" {
		e.onClose(closingID)
	}
	e.onChange(next)
	return &RolloverResult{Closed: current != nil, Created: true, Late: late, Session: next}, nil
}

// LateTallies returns how often each member was still pending at rollover.
func (e *Engine) LateTallies() ([]model.LateTally, error) {
	tallies, err := e.tallies.List()
	if err != nil {
		return nil, transient("list late tallies", err)
	}
	return tallies, nil
}

// local presents the stored instant in the target zone.
func (e *Engine) local(sess *model.Session) *model.Session {
	sess.ScheduledAt = sess.ScheduledAt.In(e.cfg.Location)
	return sess
}
