// Package campus holds the flat campus resources: academic groups, publications, events and access grants.
package campus

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/model"
)

type GroupStore interface {
	CreateGroup(ctx context.Context, group model.AcademicGroup) error
	GetGroup(ctx context.Context, id string) (model.AcademicGroup, error)
	ListGroups(ctx context.Context, page model.Page) ([]model.AcademicGroup, error)
	UpdateGroup(ctx context.Context, id string, patch model.GroupPatch) (model.AcademicGroup, error)
	DeleteGroup(ctx context.Context, id string) error
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) (bool, error)
}

type Groups struct {
	store GroupStore
}

func NewGroups(store GroupStore) *Groups {
	return &Groups{store: store}
}

type GroupInput struct {
	Course     string
	ClassGroup string
	Subject    string
}

func (g *Groups) Create(ctx context.Context, in GroupInput) (model.AcademicGroup, error) {
	group := model.AcademicGroup{
		ID:         uuid.NewString(),
		Course:     strings.TrimSpace(in.Course),
		ClassGroup: strings.TrimSpace(in.ClassGroup),
		Subject:    strings.TrimSpace(in.Subject),
	}
	if group.Course == "" || group.ClassGroup == "" {
		return model.AcademicGroup{}, apperr.BadRequest("missing_fields", "course and classGroup are required")
	}
	if err := g.store.CreateGroup(ctx, group); err != nil {
		return model.AcademicGroup{}, groupErr(err)
	}
	group.Members = []model.Participant{}
	return group, nil
}

func (g *Groups) List(ctx context.Context, page model.Page) ([]model.AcademicGroup, error) {
	groups, err := g.store.ListGroups(ctx, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return groups, nil
}

// Get returns the group with its members.
func (g *Groups) Get(ctx context.Context, id string) (model.AcademicGroup, error) {
	group, err := g.store.GetGroup(ctx, id)
	if err != nil {
		return model.AcademicGroup{}, groupErr(err)
	}
	return group, nil
}

type GroupPatchInput struct {
	Course     *string
	ClassGroup *string
	Subject    *string
}

func (g *Groups) Update(ctx context.Context, id string, in GroupPatchInput) (model.AcademicGroup, error) {
	var patch model.GroupPatch
	var err error
	if patch.Course, err = requiredText(in.Course, "course"); err != nil {
		return model.AcademicGroup{}, err
	}
	if patch.ClassGroup, err = requiredText(in.ClassGroup, "classGroup"); err != nil {
		return model.AcademicGroup{}, err
	}
	if in.Subject != nil {
		subject := strings.TrimSpace(*in.Subject)
		patch.Subject = &subject
	}
	group, err := g.store.UpdateGroup(ctx, id, patch)
	if err != nil {
		return model.AcademicGroup{}, groupErr(err)
	}
	return group, nil
}

func (g *Groups) Delete(ctx context.Context, id string) error {
	if err := g.store.DeleteGroup(ctx, id); err != nil {
		return groupErr(err)
	}
	return nil
}

// AddMember is idempotent; an existing member is left as is.
func (g *Groups) AddMember(ctx context.Context, groupID, userID string) (model.AcademicGroup, error) {
	if _, err := g.Get(ctx, groupID); err != nil {
		return model.AcademicGroup{}, err
	}
	if err := g.store.AddGroupMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.AcademicGroup{}, apperr.NotFound("user_not_found", "user not found")
		}
		return model.AcademicGroup{}, apperr.Internal(err)
	}
	return g.Get(ctx, groupID)
}

// RemoveMember reports the group as missing, but removing a non-member is a no-op.
func (g *Groups) RemoveMember(ctx context.Context, groupID, userID string) error {
	if _, err := g.Get(ctx, groupID); err != nil {
		return err
	}
	if _, err := g.store.RemoveGroupMember(ctx, groupID, userID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func groupErr(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return apperr.NotFound("group_not_found", "academic group not found")
	case errors.Is(err, model.ErrConflict):
		return apperr.BadRequest("group_exists", "an academic group with this classGroup already exists")
	default:
		return apperr.Internal(err)
	}
}

// requiredText trims an optional field, rejecting a present but blank value.
func requiredText(value *string, field string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, apperr.BadRequest("invalid_"+strings.ToLower(field), field+" cannot be empty")
	}
	return &trimmed, nil
}
