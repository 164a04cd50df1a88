package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
)

// ErrUnauthorized covers a wrong password and a missing, unknown, expired or
// revoked trust token alike.
var ErrUnauthorized = errors.New("auth: unauthorized")

const DefaultTokenTTL = 24 * time.Hour

// Gate checks the shared admin secret and issues the trust tokens that guard
// every admin-only operation.
type Gate struct {
	settings *store.SettingsStore
	tokens   *store.AdminTokenStore
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewGate(ss *store.SettingsStore, ts *store.AdminTokenStore, ttl time.Duration, logger *slog.Logger) *Gate {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Gate{
		settings: ss,
		tokens:   ts,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// EnsureSecret makes password the admin secret. An empty password keeps the
// stored one, and fails if none is stored yet.
func (g *Gate) EnsureSecret(password string) error {
	stored, err := g.settings.Get(store.KeyAdminPassword)
	if err != nil && !errors.Is(err, store.ErrSettingNotFound) {
		return fmt.Errorf("load admin secret: %w", err)
	}

	if password == "" {
		if stored == "" {
			return errors.New("admin password is not configured")
		}
		return nil
	}
	if stored != "" && bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin secret: %w", err)
	}
	if err := g.settings.Set(store.KeyAdminPassword, string(hash)); err != nil {
		return err
	}
	g.logger.Info("admin secret updated")
	return nil
}

// Login compares password with the admin secret and issues a trust token on
// a match. Nothing is written on a mismatch.
func (g *Gate) Login(password string) (*model.AdminToken, error) {
	if password == "" {
		return nil, ErrUnauthorized
	}
	stored, err := g.settings.Get(store.KeyAdminPassword)
	if errors.Is(err, store.ErrSettingNotFound) {
		g.logger.Warn("login attempted with no admin secret configured")
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load admin secret: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) != nil {
		return nil, ErrUnauthorized
	}

	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	tok, err := g.tokens.Create(digest(value), g.now().Add(g.ttl))
	if err != nil {
		return nil, err
	}
	tok.Value = value
	return tok, nil
}

// Check validates a presented token.
func (g *Gate) Check(value string) (*model.AdminToken, error) {
	if value == "" {
		return nil, ErrUnauthorized
	}
	tok, err := g.tokens.GetByDigest(digest(value), g.now())
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.Expired(g.now()) {
		return nil, ErrUnauthorized
	}
	return tok, nil
}

// Logout revokes the token. Unknown tokens are ignored.
func (g *Gate) Logout(value string) error {
	if value == "" {
		return nil
	}
	return g.tokens.DeleteByDigest(digest(value))
}

// PurgeExpired deletes tokens past their expiry and reports how many.
func (g *Gate) PurgeExpired() (int64, error) {
	return g.tokens.DeleteExpired(g.now())
}

func newTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
