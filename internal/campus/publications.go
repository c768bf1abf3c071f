package campus

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/model"
)

const minPublicationText = 3

type PublicationStore interface {
	CreatePublication(ctx context.Context, pub model.Publication) error
	GetPublication(ctx context.Context, kind model.PublicationKind, id string) (model.Publication, error)
	ListPublications(ctx context.Context, kind model.PublicationKind, page model.Page) ([]model.Publication, error)
	CountPublications(ctx context.Context, kind model.PublicationKind) (int64, error)
	UpdatePublication(ctx context.Context, kind model.PublicationKind, id string, patch model.PublicationPatch) (model.Publication, error)
	DeletePublication(ctx context.Context, kind model.PublicationKind, id string) error
}

// Publications serves one kind, posts or announcements.
type Publications struct {
	store PublicationStore
	kind  model.PublicationKind
	now   func() time.Time
}

func NewPublications(store PublicationStore, kind model.PublicationKind) *Publications {
	return &Publications{store: store, kind: kind, now: time.Now}
}

func (p *Publications) Kind() model.PublicationKind { return p.kind }

func (p *Publications) Create(ctx context.Context, author model.User, title, content string) (model.Publication, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if err := checkLength("title", title); err != nil {
		return model.Publication{}, err
	}
	if err := checkLength("content", content); err != nil {
		return model.Publication{}, err
	}
	pub := model.Publication{
		ID:       uuid.NewString(),
		Kind:     p.kind,
		Title:    title,
		Content:  content,
		Date:     p.now().UTC(),
		AuthorID: author.ID,
	}
	if err := p.store.CreatePublication(ctx, pub); err != nil {
		return model.Publication{}, p.storeErr(err)
	}
	return pub, nil
}

// List is newest first.
func (p *Publications) List(ctx context.Context, page model.Page) ([]model.Publication, error) {
	list, err := p.store.ListPublications(ctx, p.kind, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (p *Publications) Get(ctx context.Context, id string) (model.Publication, error) {
	pub, err := p.store.GetPublication(ctx, p.kind, id)
	if err != nil {
		return model.Publication{}, p.storeErr(err)
	}
	return pub, nil
}

func (p *Publications) Count(ctx context.Context) (int64, error) {
	total, err := p.store.CountPublications(ctx, p.kind)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return total, nil
}

func (p *Publications) Update(ctx context.Context, actor model.User, id string, title, content *string) (model.Publication, error) {
	if err := p.authorize(ctx, actor, id); err != nil {
		return model.Publication{}, err
	}
	var patch model.PublicationPatch
	if title != nil {
		value := strings.TrimSpace(*title)
		if err := checkLength("title", value); err != nil {
			return model.Publication{}, err
		}
		patch.Title = &value
	}
	if content != nil {
		value := strings.TrimSpace(*content)
		if err := checkLength("content", value); err != nil {
			return model.Publication{}, err
		}
		patch.Content = &value
	}
	pub, err := p.store.UpdatePublication(ctx, p.kind, id, patch)
	if err != nil {
		return model.Publication{}, p.storeErr(err)
	}
	return pub, nil
}

func (p *Publications) Delete(ctx context.Context, actor model.User, id string) error {
	if err := p.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := p.store.DeletePublication(ctx, p.kind, id); err != nil {
		return p.storeErr(err)
	}
	return nil
}

// authorize lets the author, a coordinator or an admin modify a publication.
func (p *Publications) authorize(ctx context.Context, actor model.User, id string) error {
	pub, err := p.Get(ctx, id)
	if err != nil {
		return err
	}
	if pub.AuthorID != actor.ID && !actor.Role.In(model.RoleCoordinator, model.RoleAdmin) {
		return apperr.Forbidden("not_author", "only the author, a coordinator or an admin can modify this "+string(p.kind))
	}
	return nil
}

func (p *Publications) storeErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return apperr.NotFound(string(p.kind)+"_not_found", string(p.kind)+" not found")
	}
	return apperr.Internal(err)
}

func checkLength(field, value string) error {
	if utf8.RuneCountInString(value) < minPublicationText {
		return apperr.BadRequest("invalid_"+field, field+" must have at least 3 characters")
	}
	return nil
}
