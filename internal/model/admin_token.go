package model

import "time"

// AdminToken is a trust token issued on successful admin login. Only the
// digest is persisted; Value is populated once, at issuance.
type AdminToken struct {
	ID        int64     `json:"-"`
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *AdminToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
