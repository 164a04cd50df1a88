package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
)

// AdminTokenStore persists trust tokens by digest. Raw token values never
// reach the database.
type AdminTokenStore struct {
	db *sql.DB
}

func NewAdminTokenStore(db *sql.DB) *AdminTokenStore {
	return &AdminTokenStore{db: db}
}

func (s *AdminTokenStore) Create(digest string, expiresAt time.Time) (*model.AdminToken, error) {
	now := time.Now()
	result, err := s.db.Exec(
		`INSERT INTO admin_tokens (token_hash, expires_at, created_at) VALUES (?, ?, ?)`,
		digest, expiresAt.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert admin token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.AdminToken{
		ID:        id,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(),
		CreatedAt: time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// GetByDigest returns the token with the given digest that is still valid at
// now, or nil if it is unknown or expired.
func (s *AdminTokenStore) GetByDigest(digest string, now time.Time) (*model.AdminToken, error) {
	var (
		t                    model.AdminToken
		expiresAt, createdAt int64
	)
	err := s.db.QueryRow(
		`SELECT id, expires_at, created_at FROM admin_tokens WHERE token_hash = ? AND expires_at > ?`,
		digest, now.Unix(),
	).Scan(&t.ID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin token: %w", err)
	}
	t.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}

func (s *AdminTokenStore) DeleteByDigest(digest string) error {
	if _, err := s.db.Exec(`DELETE FROM admin_tokens WHERE token_hash = ?`, digest); err != nil {
		return fmt.Errorf("delete admin token: %w", err)
	}
	return nil
}

func (s *AdminTokenStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM admin_tokens WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired admin tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
