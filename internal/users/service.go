package users

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/crypto"
	"uconnect/api/internal/model"
)

type Store interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUserByID(ctx context.Context, id string) (model.User, error)
	GetUserByRegistration(ctx context.Context, registration string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, role *model.Role, page model.Page) ([]model.User, error)
	UpdateUser(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type CreateInput struct {
	Registration string
	Name         string
	Email        string
	Password     string
	Role         model.Role
}

// ProfileInput is the self-service subset; role and status are never part of it.
type ProfileInput struct {
	Name  *string
	Email *string
}

type AdminInput struct {
	Registration *string
	Name         *string
	Email        *string
	AccessStatus *model.AccessStatus
}

// Create registers a user. An actor is required for roles above teacher and must be an admin.
func (s *Service) Create(ctx context.Context, in CreateInput, actor *model.User) (model.User, error) {
	in.Registration = strings.TrimSpace(in.Registration)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Registration == "" || in.Name == "" || in.Email == "" || in.Password == "" {
		return model.User{}, apperr.BadRequest("missing_fields", "registration, name, email and password are required")
	}
	if !validEmail(in.Email) {
		return model.User{}, apperr.BadRequest("invalid_email", "email is not valid")
	}
	if err := checkPassword(in.Password); err != nil {
		return model.User{}, err
	}
	if in.Role == "" {
		in.Role = model.RoleStudent
	}
	if !in.Role.Valid() {
		return model.User{}, apperr.BadRequest("invalid_role", "unknown role")
	}
	if in.Role.AtLeast(model.RoleCoordinator) && (actor == nil || actor.Role != model.RoleAdmin) {
		return model.User{}, apperr.Forbidden("role_requires_admin", "only an admin can create coordinator or admin accounts")
	}
	if err := s.ensureUnique(ctx, "", &in.Registration, &in.Email); err != nil {
		return model.User{}, err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return model.User{}, apperr.Internal(errors.Wrap(err, "hash password"))
	}
	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Registration: in.Registration,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		AccessStatus: model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return model.User{}, storeErr(err)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr(err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, role *model.Role, page model.Page) ([]model.User, error) {
	list, err := s.store.ListUsers(ctx, role, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (s *Service) UpdateProfile(ctx context.Context, self model.User, in ProfileInput) (model.User, error) {
	patch, err := s.buildPatch(ctx, self.ID, nil, in.Name, in.Email)
	if err != nil {
		return model.User{}, err
	}
	return s.apply(ctx, self.ID, patch)
}

// Update is the admin edit path. Status changes still respect the self-alteration guard.
func (s *Service) Update(ctx context.Context, actor model.User, id string, in AdminInput) (model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return model.User{}, err
	}
	patch, err := s.buildPatch(ctx, id, in.Registration, in.Name, in.Email)
	if err != nil {
		return model.User{}, err
	}
	if in.AccessStatus != nil {
		if actor.ID == id {
			return model.User{}, apperr.Forbidden("self_alteration", "you cannot change your own access status")
		}
		if !in.AccessStatus.Valid() {
			return model.User{}, apperr.BadRequest("invalid_status", "unknown access status")
		}
		patch.AccessStatus = in.AccessStatus
	}
	return s.apply(ctx, id, patch)
}

// UpdateStatus changes another user's access status.
func (s *Service) UpdateStatus(ctx context.Context, actor model.User, id string, status model.AccessStatus) (model.User, error) {
	if actor.ID == id {
		return model.User{}, apperr.Forbidden("self_alteration", "you cannot change your own access status")
	}
	if !status.Valid() {
		return model.User{}, apperr.BadRequest("invalid_status", "unknown access status")
	}
	target, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if actor.Role != model.RoleAdmin && target.Role.AtLeast(actor.Role) {
		return model.User{}, apperr.Forbidden("insufficient_rank", "you cannot change the status of a user at or above your role")
	}
	return s.apply(ctx, id, model.UserPatch{AccessStatus: &status})
}

// UpdateRole changes another user's role. Coordinators can neither grant nor touch coordinator or admin roles.
func (s *Service) UpdateRole(ctx context.Context, actor model.User, id string, role model.Role) (model.User, error) {
	if actor.ID == id {
		return model.User{}, apperr.Forbidden("self_alteration", "you cannot change your own role")
	}
	if !role.Valid() {
		return model.User{}, apperr.BadRequest("invalid_role", "unknown role")
	}
	target, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if actor.Role != model.RoleAdmin {
		if target.Role.AtLeast(model.RoleCoordinator) {
			return model.User{}, apperr.Forbidden("insufficient_rank", "only an admin can change the role of a coordinator or admin")
		}
		if role.AtLeast(model.RoleCoordinator) {
			return model.User{}, apperr.Forbidden("insufficient_rank", "only an admin can assign coordinator or admin roles")
		}
	}
	return s.apply(ctx, id, model.UserPatch{Role: &role})
}

func (s *Service) ChangePassword(ctx context.Context, self model.User, current, next string) error {
	if current == "" || next == "" {
		return apperr.BadRequest("missing_fields", "current and new password are required")
	}
	if err := crypto.CheckPassword(self.PasswordHash, current); err != nil {
		return apperr.Unauthorized("invalid_credentials", "current password is incorrect")
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(next)
	if err != nil {
		return apperr.Internal(errors.Wrap(err, "hash password"))
	}
	_, err = s.apply(ctx, self.ID, model.UserPatch{PasswordHash: &hash})
	return err
}

// checkPassword rejects surrounding whitespace; login trims it before comparing.
func checkPassword(password string) error {
	if strings.TrimSpace(password) != password {
		return apperr.BadRequest("invalid_password", "password cannot start or end with whitespace")
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Service) buildPatch(ctx context.Context, id string, registration, name, email *string) (model.UserPatch, error) {
	var patch model.UserPatch
	if registration != nil {
		value := strings.TrimSpace(*registration)
		if value == "" {
			return patch, apperr.BadRequest("invalid_registration", "registration cannot be empty")
		}
		patch.Registration = &value
	}
	if name != nil {
		value := strings.TrimSpace(*name)
		if value == "" {
			return patch, apperr.BadRequest("invalid_name", "name cannot be empty")
		}
		patch.Name = &value
	}
	if email != nil {
		value := normalizeEmail(*email)
		if !validEmail(value) {
			return patch, apperr.BadRequest("invalid_email", "email is not valid")
		}
		patch.Email = &value
	}
	if err := s.ensureUnique(ctx, id, patch.Registration, patch.Email); err != nil {
		return patch, err
	}
	return patch, nil
}

// ensureUnique reports a BadRequest when registration or email already belongs to a user other than selfID.
func (s *Service) ensureUnique(ctx context.Context, selfID string, registration, email *string) error {
	if registration != nil {
		existing, err := s.store.GetUserByRegistration(ctx, *registration)
		switch {
		case err == nil && existing.ID != selfID:
			return apperr.BadRequest("registration_taken", "registration already registered")
		case err != nil && !errors.Is(err, model.ErrNotFound):
			return apperr.Internal(err)
		}
	}
	if email != nil {
		existing, err := s.store.GetUserByEmail(ctx, *email)
		switch {
		case err == nil && existing.ID != selfID:
			return apperr.BadRequest("email_taken", "email already registered")
		case err != nil && !errors.Is(err, model.ErrNotFound):
			return apperr.Internal(err)
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	user, err := s.store.UpdateUser(ctx, id, patch)
	if err != nil {
		return model.User{}, storeErr(err)
	}
	return user, nil
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return apperr.NotFound("user_not_found", "user not found")
	case errors.Is(err, model.ErrConflict):
		return apperr.BadRequest("user_conflict", "registration or email already registered")
	default:
		return apperr.Internal(err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
