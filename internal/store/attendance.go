package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
)

// ErrStaleSession is returned by Rollover when the active session changed
// between the caller's read and the write.
var ErrStaleSession = errors.New("active session changed")

// AttendanceStore holds the single active session and its pending members.
// Every mutation is one statement or one transaction, so a check-in and an
// admin correction landing together cannot overwrite each other.
type AttendanceStore struct {
	db *sql.DB
}

func NewAttendanceStore(db *sql.DB) *AttendanceStore {
	return &AttendanceStore{db: db}
}

const sessionCols = `public_id, scheduled_at, created_at`

// Create replaces whatever session is active with a new one. Nothing from
// the previous session is kept.
func (s *AttendanceStore) Create(publicID string, scheduledAt time.Time, pending []string) (*model.Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceSession(tx, publicID, scheduledAt, pending); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByPublicID(publicID)
}

// Active returns the current session, or nil if none has been created.
func (s *AttendanceStore) Active() (*model.Session, error) {
	row := s.db.QueryRow(`SELECT ` + sessionCols + ` FROM attendance_sessions WHERE slot = 1`)
	return s.load(row)
}

// GetByPublicID returns the active session if its public reference is id.
// Superseded sessions no longer exist, so they come back nil.
func (s *AttendanceStore) GetByPublicID(id string) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM attendance_sessions WHERE public_id = ?`, id)
	return s.load(row)
}

// RemoveMember drops name from the active session's pending list. It
// reports whether a row was removed; an absent name is not an error.
func (s *AttendanceStore) RemoveMember(name string) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM pending_members
		 WHERE name = ? AND public_id = (SELECT public_id FROM attendance_sessions WHERE slot = 1)`,
		name,
	)
	if err != nil {
		return false, fmt.Errorf("remove pending member: %w", err)
	}
	return removed(result)
}

// RemoveFromSession is RemoveMember scoped to a public reference, so a
// check-in against a superseded session never touches the current one.
func (s *AttendanceStore) RemoveFromSession(publicID, name string) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM pending_members WHERE public_id = ? AND name = ?`,
		publicID, name,
	)
	if err != nil {
		return false, fmt.Errorf("remove pending member: %w", err)
	}
	return removed(result)
}

// Rollover closes the session identified by closingID, adds one to the late
// tally of every member still pending, and installs the next session. All of
// it happens in one transaction. An empty closingID means no session was
// active when the caller looked.
func (s *AttendanceStore) Rollover(closingID string, lateAt time.Time, nextID string, nextAt time.Time, nextPending []string) ([]string, *model.Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT public_id FROM attendance_sessions WHERE slot = 1`).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, fmt.Errorf("query active session: %w", err)
	}
	if current != closingID {
		return nil, nil, ErrStaleSession
	}

	late := []string{}
	if closingID != "" {
		late, err = pendingNames(tx, closingID)
		if err != nil {
			return nil, nil, err
		}
		stmt, err := tx.Prepare(
			`INSERT INTO late_tallies (name, count, last_late_at) VALUES (?, 1, ?)
			 ON CONFLICT(name) DO UPDATE SET count = count + 1, last_late_at = excluded.last_late_at`,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("prepare stmt: %w", err)
		}
		defer stmt.Close()
		for _, name := range late {
			if _, err := stmt.Exec(name, lateAt.Unix()); err != nil {
				return nil, nil, fmt.Errorf("increment late tally for %q: %w", name, err)
			}
		}
	}

	if err := replaceSession(tx, nextID, nextAt, nextPending); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	next, err := s.GetByPublicID(nextID)
	if err != nil {
		return nil, nil, err
	}
	return late, next, nil
}

func (s *AttendanceStore) load(row *sql.Row) (*model.Session, error) {
	var (
		sess                   model.Session
		scheduledAt, createdAt int64
	)
	err := row.Scan(&sess.PublicID, &scheduledAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess.ScheduledAt = time.Unix(scheduledAt, 0).UTC()
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()

	sess.Pending, err = pendingNames(s.db, sess.PublicID)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func pendingNames(q queryer, publicID string) ([]string, error) {
	rows, err := q.Query(`SELECT name FROM pending_members WHERE public_id = ? ORDER BY position`, publicID)
	if err != nil {
		return nil, fmt.Errorf("query pending members: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan pending member: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func replaceSession(tx *sql.Tx, publicID string, scheduledAt time.Time, pending []string) error {
	if _, err := tx.Exec(`DELETE FROM pending_members`); err != nil {
		return fmt.Errorf("clear pending members: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM attendance_sessions`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	_, err := tx.Exec(
		`INSERT INTO attendance_sessions (slot, public_id, scheduled_at, created_at) VALUES (1, ?, ?, ?)`,
		publicID, scheduledAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO pending_members (public_id, name, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, name := range pending {
		if _, err := stmt.Exec(publicID, name, i); err != nil {
			return fmt.Errorf("insert pending member %q: %w", name, err)
		}
	}
	return nil
}

func removed(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
