package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"uconnect/api/internal/model"
)

func scanGrant(row pgx.Row) (model.AccessGrant, error) {
	var grant model.AccessGrant
	err := row.Scan(&grant.ID, &grant.UserID, &grant.Permission, &grant.CreatedAt)
	return grant, err
}

func (s *Store) CreateGrant(ctx context.Context, grant model.AccessGrant) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO access_grants (id, user_id, permission, created_at)
		VALUES ($1, $2, $3, $4)
	`, grant.ID, grant.UserID, grant.Permission, grant.CreatedAt)
	return translate(err, "create access grant")
}

func (s *Store) GetGrant(ctx context.Context, id string) (model.AccessGrant, error) {
	grant, err := scanGrant(s.q.QueryRow(ctx, `
		SELECT id, user_id, permission, created_at FROM access_grants WHERE id = $1
	`, id))
	return grant, translate(err, "get access grant")
}

// ListGrants lists every grant, or only userID's when it is non-empty.
func (s *Store) ListGrants(ctx context.Context, userID string) ([]model.AccessGrant, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, user_id, permission, created_at
		FROM access_grants
		WHERE $1 = '' OR user_id::text = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, translate(err, "list access grants")
	}
	defer rows.Close()

	var grants []model.AccessGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, translate(err, "list access grants")
		}
		grants = append(grants, grant)
	}
	return grants, translate(rows.Err(), "list access grants")
}

func (s *Store) UpdateGrant(ctx context.Context, id, permission string) (model.AccessGrant, error) {
	grant, err := scanGrant(s.q.QueryRow(ctx, `
		UPDATE access_grants SET permission = $2 WHERE id = $1
		RETURNING id, user_id, permission, created_at
	`, id, permission))
	return grant, translate(err, "update access grant")
}

func (s *Store) DeleteGrant(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "access_grants", id, "delete access grant")
}

func (s *Store) HasPermission(ctx context.Context, userID, permission string) (bool, error) {
	var ok bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM access_grants WHERE user_id = $1 AND permission = $2)
	`, userID, permission).Scan(&ok)
	return ok, translate(err, "check permission")
}
