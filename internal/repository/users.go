package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"uconnect/api/internal/model"
)

var userColumns = []string{"id", "registration", "name", "email", "password_hash", "role", "access_status", "created_at", "updated_at"}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Registration,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.AccessStatus,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO users (id, registration, name, email, password_hash, role, access_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Registration, user.Name, user.Email, user.PasswordHash, user.Role, user.AccessStatus, user.CreatedAt, user.UpdatedAt)
	return translate(err, "create user")
}

func (s *Store) getUserBy(ctx context.Context, column, value string) (model.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(sq.Eq{column: value}).ToSql()
	if err != nil {
		return model.User{}, errors.Wrap(err, "get user")
	}
	user, err := scanUser(s.q.QueryRow(ctx, query, args...))
	return user, translate(err, "get user by "+column)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *Store) GetUserByRegistration(ctx context.Context, registration string) (model.User, error) {
	return s.getUserBy(ctx, "registration", registration)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUserBy(ctx, "email", email)
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "get users by ids")
	}
	return s.queryUsers(ctx, "get users by ids", query, args...)
}

func (s *Store) ListUsers(ctx context.Context, role *model.Role, page model.Page) ([]model.User, error) {
	page = page.Normalize()
	builder := psql.Select(userColumns...).From("users").
		OrderBy("created_at DESC").
		Offset(uint64(page.Skip)).
		Limit(uint64(page.Limit))
	if role != nil {
		builder = builder.Where(sq.Eq{"role": *role})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return s.queryUsers(ctx, "list users", query, args...)
}

func (s *Store) queryUsers(ctx context.Context, op, query string, args ...any) ([]model.User, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, op)
		}
		users = append(users, user)
	}
	return users, translate(rows.Err(), op)
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	builder := psql.Update("users").Set("updated_at", time.Now().UTC()).Where(sq.Eq{"id": id})
	if patch.Registration != nil {
		builder = builder.Set("registration", *patch.Registration)
	}
	if patch.Name != nil {
		builder = builder.Set("name", *patch.Name)
	}
	if patch.Email != nil {
		builder = builder.Set("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		builder = builder.Set("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		builder = builder.Set("role", *patch.Role)
	}
	if patch.AccessStatus != nil {
		builder = builder.Set("access_status", *patch.AccessStatus)
	}
	query, args, err := builder.Suffix("RETURNING " + strings.Join(userColumns, ", ")).ToSql()
	if err != nil {
		return model.User{}, errors.Wrap(err, "update user")
	}
	user, err := scanUser(s.q.QueryRow(ctx, query, args...))
	return user, translate(err, "update user")
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "users", id, "delete user")
}
