package campus

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/model"
)

type AccessStore interface {
	CreateGrant(ctx context.Context, grant model.AccessGrant) error
	GetGrant(ctx context.Context, id string) (model.AccessGrant, error)
	ListGrants(ctx context.Context, userID string) ([]model.AccessGrant, error)
	UpdateGrant(ctx context.Context, id, permission string) (model.AccessGrant, error)
	DeleteGrant(ctx context.Context, id string) error
	HasPermission(ctx context.Context, userID, permission string) (bool, error)
}

// Access manages named permissions granted to users.
type Access struct {
	store AccessStore
	now   func() time.Time
}

func NewAccess(store AccessStore) *Access {
	return &Access{store: store, now: time.Now}
}

func (a *Access) Grant(ctx context.Context, userID, permission string) (model.AccessGrant, error) {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return model.AccessGrant{}, apperr.BadRequest("missing_permission", "permission is required")
	}
	// The column is a uuid; a malformed id can never name a user.
	if _, err := uuid.Parse(userID); err != nil {
		return model.AccessGrant{}, apperr.NotFound("user_not_found", "user not found")
	}
	grant := model.AccessGrant{
		ID:         uuid.NewString(),
		UserID:     userID,
		Permission: permission,
		CreatedAt:  a.now().UTC(),
	}
	if err := a.store.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.AccessGrant{}, apperr.NotFound("user_not_found", "user not found")
		}
		return model.AccessGrant{}, apperr.Internal(err)
	}
	return grant, nil
}

func (a *Access) List(ctx context.Context) ([]model.AccessGrant, error) {
	return a.ListByUser(ctx, "")
}

func (a *Access) ListByUser(ctx context.Context, userID string) ([]model.AccessGrant, error) {
	grants, err := a.store.ListGrants(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return grants, nil
}

func (a *Access) Update(ctx context.Context, id, permission string) (model.AccessGrant, error) {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return model.AccessGrant{}, apperr.BadRequest("missing_permission", "permission is required")
	}
	grant, err := a.store.UpdateGrant(ctx, id, permission)
	if err != nil {
		return model.AccessGrant{}, grantErr(err)
	}
	return grant, nil
}

func (a *Access) Revoke(ctx context.Context, id string) error {
	if err := a.store.DeleteGrant(ctx, id); err != nil {
		return grantErr(err)
	}
	return nil
}

func (a *Access) Check(ctx context.Context, userID, permission string) (bool, error) {
	ok, err := a.store.HasPermission(ctx, userID, permission)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok, nil
}

func grantErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return apperr.NotFound("access_not_found", "access grant not found")
	}
	return apperr.Internal(err)
}
