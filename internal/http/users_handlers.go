package http

import (
	"net/http"

	"uconnect/api/internal/model"
	"uconnect/api/internal/users"
)

type createUserRequest struct {
	Registration string `json:"registration"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
}

type updateMeRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type updateUserRequest struct {
	Registration *string `json:"registration"`
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	AccessStatus *string `json:"accessStatus"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type statusRequest struct {
	AccessStatus string `json:"accessStatus"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	in := users.CreateInput{
		Registration: req.Registration,
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
	}
	if req.Role != "" {
		role, ok := model.ParseRole(req.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
		in.Role = role
	}
	var actor *model.User
	if user := userFromContext(r.Context()); user.ID != "" {
		actor = &user
	}
	created, err := s.users.Create(r.Context(), in, actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapUser(created))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_pagination")
		return
	}
	var role *model.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, ok := model.ParseRole(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
		role = &parsed
	}
	list, err := s.users.List(r.Context(), role, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, mapUser))
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapUser(userFromContext(r.Context())))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated, err := s.users.UpdateProfile(r.Context(), userFromContext(r.Context()), users.ProfileInput{Name: req.Name, Email: req.Email})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(updated))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.users.ChangePassword(r.Context(), userFromContext(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetUser is open to admins, coordinators and the user themself.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	actor := userFromContext(r.Context())
	if actor.ID != id && !actor.Role.In(model.RoleAdmin, model.RoleCoordinator) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	in := users.AdminInput{Registration: req.Registration, Name: req.Name, Email: req.Email}
	if req.AccessStatus != nil {
		status := model.AccessStatus(*req.AccessStatus)
		in.AccessStatus = &status
	}
	updated, err := s.users.Update(r.Context(), userFromContext(r.Context()), id, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(updated))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated, err := s.users.UpdateStatus(r.Context(), userFromContext(r.Context()), id, model.AccessStatus(req.AccessStatus))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(updated))
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated, err := s.users.UpdateRole(r.Context(), userFromContext(r.Context()), id, model.Role(req.Role))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(updated))
}
