package repository

import (
	"context"
	"time"

	"uconnect/api/internal/model"
)

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO sessions (token_key, user_id, started_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, session.TokenKey, session.UserID, session.StartedAt, session.ExpiresAt)
	return translate(err, "create session")
}

func (s *Store) GetSession(ctx context.Context, tokenKey string) (model.Session, error) {
	var session model.Session
	row := s.q.QueryRow(ctx, `
		SELECT token_key, user_id, started_at, expires_at
		FROM sessions
		WHERE token_key = $1
	`, tokenKey)
	err := row.Scan(&session.TokenKey, &session.UserID, &session.StartedAt, &session.ExpiresAt)
	return session, translate(err, "get session")
}

// DeleteSession is a no-op when the row is already gone.
func (s *Store) DeleteSession(ctx context.Context, tokenKey string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM sessions WHERE token_key = $1`, tokenKey)
	return translate(err, "delete session")
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, translate(err, "delete expired sessions")
	}
	return tag.RowsAffected(), nil
}
