package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"uconnect/api/internal/model"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres implementation of every persistence port.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// WithTx runs fn against a transaction-scoped Store. Nested calls reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if _, inTx := s.q.(pgx.Tx); inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(&Store{pool: s.pool, q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(model.ErrNotFound, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Wrapf(model.ErrConflict, "%s: %s", op, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return errors.Wrapf(model.ErrNotFound, "%s: %s", op, pgErr.ConstraintName)
		}
	}
	return errors.Wrap(err, op)
}

func (s *Store) execBuilder(ctx context.Context, builder sq.Sqlizer, op string) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, translate(err, op)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) deleteByID(ctx context.Context, table, id, op string) error {
	affected, err := s.execBuilder(ctx, psql.Delete(table).Where(sq.Eq{"id": id}), op)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrap(model.ErrNotFound, op)
	}
	return nil
}
