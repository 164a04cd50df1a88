package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
)

// TallyStore reads late counts. They are written by AttendanceStore.Rollover
// in the same transaction that closes a session.
type TallyStore struct {
	db *sql.DB
}

func NewTallyStore(db *sql.DB) *TallyStore {
	return &TallyStore{db: db}
}

// List returns tallies with the most frequently late members first.
func (s *TallyStore) List() ([]model.LateTally, error) {
	rows, err := s.db.Query(`SELECT name, count, last_late_at FROM late_tallies ORDER BY count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("query late tallies: %w", err)
	}
	defer rows.Close()

	tallies := []model.LateTally{}
	for rows.Next() {
		var (
			t      model.LateTally
			lateAt int64
		)
		if err := rows.Scan(&t.Name, &t.Count, &lateAt); err != nil {
			return nil, fmt.Errorf("scan late tally: %w", err)
		}
		t.LastLateAt = time.Unix(lateAt, 0).UTC()
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}
