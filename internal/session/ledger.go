// Package session owns the login ledger: one row per issued bearer token.
package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/crypto"
	"uconnect/api/internal/metrics"
	"uconnect/api/internal/model"
)

const TokenType = "bearer"

type Store interface {
	GetUserByRegistration(ctx context.Context, registration string) (model.User, error)
	CreateSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, tokenKey string) (model.Session, error)
	DeleteSession(ctx context.Context, tokenKey string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
}

type Ledger struct {
	store  Store
	tokens TokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

func NewLedger(store Store, tokens TokenIssuer, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, tokens: tokens, logger: logger, now: time.Now}
}

type Grant struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

type Validation struct {
	Valid     bool
	ExpiresAt time.Time
}

func (l *Ledger) Login(ctx context.Context, registration, password string) (Grant, error) {
	registration = strings.TrimSpace(registration)
	password = strings.TrimSpace(password)
	if registration == "" || password == "" {
		return Grant{}, apperr.BadRequest("missing_credentials", "registration and password are required")
	}

	user, err := l.store.GetUserByRegistration(ctx, registration)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return Grant{}, apperr.Unauthorized("invalid_credentials", "invalid registration or password")
		}
		return Grant{}, apperr.Internal(err)
	}
	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return Grant{}, apperr.Unauthorized("invalid_credentials", "invalid registration or password")
	}
	if !user.Active() {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return Grant{}, apperr.Forbidden("user_inactive", "account is "+string(user.AccessStatus))
	}

	token, expiresAt, err := l.tokens.Issue(user.ID, 0)
	if err != nil {
		return Grant{}, apperr.Internal(errors.Wrap(err, "issue token"))
	}
	if err := l.store.CreateSession(ctx, model.Session{
		TokenKey:  crypto.HashToken(token),
		UserID:    user.ID,
		StartedAt: l.now().UTC(),
		ExpiresAt: expiresAt,
	}); err != nil {
		return Grant{}, apperr.Internal(err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	l.logger.InfoContext(ctx, "session started", "user_id", user.ID)
	return Grant{AccessToken: token, TokenType: TokenType, ExpiresAt: expiresAt}, nil
}

// Logout forgets the token. Unknown tokens are not an error.
func (l *Ledger) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Unauthorized("missing_token", "bearer token required")
	}
	if err := l.store.DeleteSession(ctx, crypto.HashToken(token)); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Validate checks the ledger, deleting the row when it has expired.
func (l *Ledger) Validate(ctx context.Context, token string) (Validation, error) {
	if token == "" {
		return Validation{}, apperr.Unauthorized("missing_token", "bearer token required")
	}
	key := crypto.HashToken(token)
	session, err := l.store.GetSession(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Validation{}, apperr.Unauthorized("invalid_session", "session not found")
		}
		return Validation{}, apperr.Internal(err)
	}
	if session.Expired(l.now()) {
		if err := l.store.DeleteSession(ctx, key); err != nil {
			return Validation{}, apperr.Internal(err)
		}
		metrics.SessionsExpired.Add(1)
		return Validation{}, apperr.Unauthorized("session_expired", "session expired")
	}
	return Validation{Valid: true, ExpiresAt: session.ExpiresAt}, nil
}

// Sweep bulk-deletes expired rows that were never validated again.
func (l *Ledger) Sweep(ctx context.Context) (int64, error) {
	removed, err := l.store.DeleteExpiredSessions(ctx, l.now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.SessionsExpired.Add(float64(removed))
	return removed, nil
}
