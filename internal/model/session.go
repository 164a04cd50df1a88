package model

import (
	"encoding/json"
	"time"
)

// Session is the single scheduled event currently tracking attendance.
// Pending holds the names still expected; it is a copy taken from the
// roster at creation and only ever shrinks.
type Session struct {
	PublicID    string    `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Pending     []string  `json:"members"`
	CreatedAt   time.Time `json:"-"`
}

// Complete reports whether every expected member has arrived.
func (s *Session) Complete() bool {
	return len(s.Pending) == 0
}

// HasPending reports whether name is still expected.
func (s *Session) HasPending(name string) bool {
	for _, n := range s.Pending {
		if n == name {
			return true
		}
	}
	return false
}

// MarshalJSON adds the derived complete flag and never emits a null member
// list.
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	if s.Pending == nil {
		s.Pending = []string{}
	}
	return json.Marshal(struct {
		alias
		Complete bool `json:"complete"`
	}{alias(s), s.Complete()})
}
