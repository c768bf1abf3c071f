package campus

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/model"
)

const DefaultUpcomingDays = 7

type EventStore interface {
	CreateEvent(ctx context.Context, event model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListEvents(ctx context.Context, from, to *time.Time, page model.Page) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	GetGroup(ctx context.Context, id string) (model.AcademicGroup, error)
}

type Events struct {
	store  EventStore
	logger *slog.Logger
	now    func() time.Time
}

func NewEvents(store EventStore, logger *slog.Logger) *Events {
	return &Events{store: store, logger: logger, now: time.Now}
}

type EventInput struct {
	Title           string
	Description     *string
	EventDate       time.Time
	StartTime       *string
	EndTime         *string
	AcademicGroupID *string
}

type EventPatchInput struct {
	Title           *string
	Description     *string
	EventDate       *time.Time
	StartTime       *string
	EndTime         *string
	AcademicGroupID *string
}

func (e *Events) Create(ctx context.Context, creator model.User, in EventInput) (model.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Event{}, apperr.BadRequest("invalid_title", "event title cannot be empty")
	}
	date, err := e.futureDate(in.EventDate)
	if err != nil {
		return model.Event{}, err
	}
	start, err := clockTime(in.StartTime, "startTime")
	if err != nil {
		return model.Event{}, err
	}
	end, err := clockTime(in.EndTime, "endTime")
	if err != nil {
		return model.Event{}, err
	}

	creatorID := creator.ID
	event := model.Event{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     trimmedOrNil(in.Description),
		Timestamp:       e.now().UTC(),
		EventDate:       date,
		StartTime:       start,
		EndTime:         end,
		AcademicGroupID: e.resolveGroup(ctx, in.AcademicGroupID),
		CreatorID:       &creatorID,
	}
	if err := e.store.CreateEvent(ctx, event); err != nil {
		return model.Event{}, eventErr(err)
	}
	return event, nil
}

func (e *Events) List(ctx context.Context, page model.Page) ([]model.Event, error) {
	events, err := e.store.ListEvents(ctx, nil, nil, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return events, nil
}

// Upcoming lists events from today through the next days days.
func (e *Events) Upcoming(ctx context.Context, days int, page model.Page) ([]model.Event, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	from := e.today()
	to := from.AddDate(0, 0, days)
	events, err := e.store.ListEvents(ctx, &from, &to, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return events, nil
}

func (e *Events) Get(ctx context.Context, id string) (model.Event, error) {
	event, err := e.store.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, eventErr(err)
	}
	return event, nil
}

func (e *Events) Update(ctx context.Context, actor model.User, id string, in EventPatchInput) (model.Event, error) {
	if err := e.authorize(ctx, actor, id); err != nil {
		return model.Event{}, err
	}
	var patch model.EventPatch
	var err error
	if patch.Title, err = requiredText(in.Title, "title"); err != nil {
		return model.Event{}, err
	}
	if in.Description != nil {
		value := strings.TrimSpace(*in.Description)
		patch.Description = &value
	}
	if in.EventDate != nil {
		date, err := e.futureDate(*in.EventDate)
		if err != nil {
			return model.Event{}, err
		}
		patch.EventDate = &date
	}
	if patch.StartTime, err = clockTime(in.StartTime, "startTime"); err != nil {
		return model.Event{}, err
	}
	if patch.EndTime, err = clockTime(in.EndTime, "endTime"); err != nil {
		return model.Event{}, err
	}
	patch.AcademicGroupID = e.resolveGroup(ctx, in.AcademicGroupID)

	event, err := e.store.UpdateEvent(ctx, id, patch)
	if err != nil {
		return model.Event{}, eventErr(err)
	}
	return event, nil
}

func (e *Events) Delete(ctx context.Context, actor model.User, id string) error {
	if err := e.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := e.store.DeleteEvent(ctx, id); err != nil {
		return eventErr(err)
	}
	return nil
}

// authorize lets the creator or an admin modify an event.
func (e *Events) authorize(ctx context.Context, actor model.User, id string) error {
	event, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if event.CreatorID == nil || *event.CreatorID != actor.ID {
		return apperr.Forbidden("not_creator", "only the event creator or an admin can modify this event")
	}
	return nil
}

// resolveGroup drops a group id that does not exist instead of failing the request.
func (e *Events) resolveGroup(ctx context.Context, groupID *string) *string {
	if groupID == nil || strings.TrimSpace(*groupID) == "" {
		return nil
	}
	id := strings.TrimSpace(*groupID)
	if _, err := uuid.Parse(id); err != nil {
		e.logger.WarnContext(ctx, "event group ignored", "academic_group_id", id, "reason", "malformed id")
		return nil
	}
	if _, err := e.store.GetGroup(ctx, id); err != nil {
		e.logger.WarnContext(ctx, "event group ignored", "academic_group_id", id, "err", err)
		return nil
	}
	return &id
}

func (e *Events) today() time.Time {
	now := e.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// futureDate truncates to a calendar day that must be strictly after today.
func (e *Events) futureDate(value time.Time) (time.Time, error) {
	date := time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
	if !date.After(e.today()) {
		return time.Time{}, apperr.BadRequest("invalid_date", "event date must be in the future")
	}
	return date, nil
}

// clockTime accepts HH:MM or HH:MM:SS and normalizes to HH:MM.
func clockTime(value *string, field string) (*string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(*value)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			formatted := parsed.Format("15:04")
			return &formatted, nil
		}
	}
	return nil, apperr.BadRequest("invalid_"+strings.ToLower(field), field+" must be HH:MM")
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func eventErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return apperr.NotFound("event_not_found", "event not found")
	}
	return apperr.Internal(err)
}
