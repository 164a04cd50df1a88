package store

import (
	"database/sql"
	"fmt"
)

type RosterStore struct {
	db *sql.DB
}

func NewRosterStore(db *sql.DB) *RosterStore {
	return &RosterStore{db: db}
}

// List returns the roster in display order. An unconfigured roster is an
// empty, non-nil slice.
func (s *RosterStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM roster_members ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan roster member: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Replace overwrites the roster with names, keeping their order. Callers
// are expected to have trimmed and de-duplicated the input; a duplicate
// still fails the primary key and rolls the whole write back.
func (s *RosterStore) Replace(names []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM roster_members`); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO roster_members (name, position) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, name := range names {
		if _, err := stmt.Exec(name, i); err != nil {
			return fmt.Errorf("insert roster member %q: %w", name, err)
		}
	}

	return tx.Commit()
}
