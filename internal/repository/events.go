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

var eventColumns = []string{"id", "title", "description", "timestamp", "event_date", "start_time", "end_time", "academic_group_id", "creator_id"}

func scanEvent(row pgx.Row) (model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Timestamp,
		&event.EventDate,
		&event.StartTime,
		&event.EndTime,
		&event.AcademicGroupID,
		&event.CreatorID,
	)
	return event, err
}

func (s *Store) CreateEvent(ctx context.Context, event model.Event) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO events (id, title, description, timestamp, event_date, start_time, end_time, academic_group_id, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.ID, event.Title, event.Description, event.Timestamp, event.EventDate, event.StartTime, event.EndTime, event.AcademicGroupID, event.CreatorID)
	return translate(err, "create event")
}

func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	query, args, err := psql.Select(eventColumns...).From("events").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Event{}, errors.Wrap(err, "get event")
	}
	event, err := scanEvent(s.q.QueryRow(ctx, query, args...))
	return event, translate(err, "get event")
}

// ListEvents orders by event date. Non-nil bounds restrict the event date, both inclusive.
func (s *Store) ListEvents(ctx context.Context, from, to *time.Time, page model.Page) ([]model.Event, error) {
	page = page.Normalize()
	builder := psql.Select(eventColumns...).From("events").
		OrderBy("event_date", "start_time NULLS FIRST").
		Offset(uint64(page.Skip)).
		Limit(uint64(page.Limit))
	if from != nil {
		builder = builder.Where(sq.GtOrEq{"event_date": *from})
	}
	if to != nil {
		builder = builder.Where(sq.LtOrEq{"event_date": *to})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, translate(err, "list events")
		}
		events = append(events, event)
	}
	return events, translate(rows.Err(), "list events")
}

func (s *Store) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (model.Event, error) {
	builder := psql.Update("events").Where(sq.Eq{"id": id})
	changed := false
	set := func(column string, value any) {
		builder = builder.Set(column, value)
		changed = true
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.EventDate != nil {
		set("event_date", *patch.EventDate)
	}
	if patch.StartTime != nil {
		set("start_time", *patch.StartTime)
	}
	if patch.EndTime != nil {
		set("end_time", *patch.EndTime)
	}
	if patch.AcademicGroupID != nil {
		set("academic_group_id", *patch.AcademicGroupID)
	}
	if !changed {
		return s.GetEvent(ctx, id)
	}
	query, args, err := builder.Suffix("RETURNING " + strings.Join(eventColumns, ", ")).ToSql()
	if err != nil {
		return model.Event{}, errors.Wrap(err, "update event")
	}
	event, err := scanEvent(s.q.QueryRow(ctx, query, args...))
	return event, translate(err, "update event")
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "events", id, "delete event")
}
