package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"uconnect/api/internal/model"
)

var publicationColumns = []string{"id", "kind", "title", "content", "date", "author_id"}

func scanPublication(row pgx.Row) (model.Publication, error) {
	var pub model.Publication
	err := row.Scan(&pub.ID, &pub.Kind, &pub.Title, &pub.Content, &pub.Date, &pub.AuthorID)
	return pub, err
}

func (s *Store) CreatePublication(ctx context.Context, pub model.Publication) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO publications (id, kind, title, content, date, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pub.ID, pub.Kind, pub.Title, pub.Content, pub.Date, pub.AuthorID)
	return translate(err, "create "+string(pub.Kind))
}

func (s *Store) GetPublication(ctx context.Context, kind model.PublicationKind, id string) (model.Publication, error) {
	query, args, err := psql.Select(publicationColumns...).From("publications").
		Where(sq.Eq{"kind": kind, "id": id}).
		ToSql()
	if err != nil {
		return model.Publication{}, errors.Wrap(err, "get "+string(kind))
	}
	pub, err := scanPublication(s.q.QueryRow(ctx, query, args...))
	return pub, translate(err, "get "+string(kind))
}

func (s *Store) ListPublications(ctx context.Context, kind model.PublicationKind, page model.Page) ([]model.Publication, error) {
	page = page.Normalize()
	query, args, err := psql.Select(publicationColumns...).From("publications").
		Where(sq.Eq{"kind": kind}).
		OrderBy("date DESC").
		Offset(uint64(page.Skip)).
		Limit(uint64(page.Limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list "+string(kind))
	}
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list "+string(kind))
	}
	defer rows.Close()

	var pubs []model.Publication
	for rows.Next() {
		pub, err := scanPublication(rows)
		if err != nil {
			return nil, translate(err, "list "+string(kind))
		}
		pubs = append(pubs, pub)
	}
	return pubs, translate(rows.Err(), "list "+string(kind))
}

func (s *Store) CountPublications(ctx context.Context, kind model.PublicationKind) (int64, error) {
	var count int64
	err := s.q.QueryRow(ctx, `SELECT count(*) FROM publications WHERE kind = $1`, kind).Scan(&count)
	return count, translate(err, "count "+string(kind))
}

func (s *Store) UpdatePublication(ctx context.Context, kind model.PublicationKind, id string, patch model.PublicationPatch) (model.Publication, error) {
	if patch.Title == nil && patch.Content == nil {
		return s.GetPublication(ctx, kind, id)
	}
	builder := psql.Update("publications").Where(sq.Eq{"kind": kind, "id": id})
	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Content != nil {
		builder = builder.Set("content", *patch.Content)
	}
	query, args, err := builder.Suffix("RETURNING " + strings.Join(publicationColumns, ", ")).ToSql()
	if err != nil {
		return model.Publication{}, errors.Wrap(err, "update "+string(kind))
	}
	pub, err := scanPublication(s.q.QueryRow(ctx, query, args...))
	return pub, translate(err, "update "+string(kind))
}

func (s *Store) DeletePublication(ctx context.Context, kind model.PublicationKind, id string) error {
	affected, err := s.execBuilder(ctx, psql.Delete("publications").Where(sq.Eq{"kind": kind, "id": id}), "delete "+string(kind))
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrap(model.ErrNotFound, "delete "+string(kind))
	}
	return nil
}
