package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"uconnect/api/internal/campus"
	"uconnect/api/internal/model"
)

type groupRequest struct {
	Course     string `json:"course"`
	ClassGroup string `json:"classGroup"`
	Subject    string `json:"subject"`
}

type groupPatchRequest struct {
	Course     *string `json:"course"`
	ClassGroup *string `json:"classGroup"`
	Subject    *string `json:"subject"`
}

type publicationRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type publicationPatchRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type eventRequest struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	EventDate       string  `json:"eventDate"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	AcademicGroupID *string `json:"academicGroupId"`
}

type eventPatchRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	EventDate       *string `json:"eventDate"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	AcademicGroupID *string `json:"academicGroupId"`
}

type grantRequest struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
}

type grantPatchRequest struct {
	Permission string `json:"permission"`
}

// groups

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	group, err := s.groups.Create(r.Context(), campus.GroupInput{Course: req.Course, ClassGroup: req.ClassGroup, Subject: req.Subject})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapGroup(group, false))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_pagination")
		return
	}
	groups, err := s.groups.List(r.Context(), page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(groups, func(g model.AcademicGroup) groupResponse { return mapGroup(g, false) }))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	group, err := s.groups.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(group, true))
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req groupPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	group, err := s.groups.Update(r.Context(), id, campus.GroupPatchInput{Course: req.Course, ClassGroup: req.ClassGroup, Subject: req.Subject})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(group, false))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.groups.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := requireUUID(w, r, "userId")
	if !ok {
		return
	}
	group, err := s.groups.AddMember(r.Context(), id, userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(group, true))
}

func (s *Server) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := requireUUID(w, r, "userId")
	if !ok {
		return
	}
	if err := s.groups.RemoveMember(r.Context(), id, userID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publications

// handlePublicFeed serves the newest posts without authentication.
func (s *Server) handlePublicFeed(w http.ResponseWriter, r *http.Request) {
	listPublications(s, s.posts)(w, r)
}

// publicationRoutes mounts the same surface for posts and announcements.
func (s *Server) publicationRoutes(pubs *campus.Publications, staff []model.Role) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(s.active()...)
		r.With(s.requireRoles(staff...)).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req publicationRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			pub, err := pubs.Create(r.Context(), userFromContext(r.Context()), req.Title, req.Content)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, mapPublication(pub))
		})
		r.Get("/", listPublications(s, pubs))
		r.Get("/stats/count", func(w http.ResponseWriter, r *http.Request) {
			total, err := pubs.Count(r.Context())
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int64{"total": total})
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requireUUID(w, r, "id")
			if !ok {
				return
			}
			pub, err := pubs.Get(r.Context(), id)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, mapPublication(pub))
		})
		r.With(s.requireRoles(staff...)).Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requireUUID(w, r, "id")
			if !ok {
				return
			}
			var req publicationPatchRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			pub, err := pubs.Update(r.Context(), userFromContext(r.Context()), id, req.Title, req.Content)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, mapPublication(pub))
		})
		r.With(s.requireRoles(staff...)).Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requireUUID(w, r, "id")
			if !ok {
				return
			}
			if err := pubs.Delete(r.Context(), userFromContext(r.Context()), id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func listPublications(s *Server, pubs *campus.Publications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := pageFromQuery(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_pagination")
			return
		}
		list, err := pubs.List(r.Context(), page)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, mapSlice(list, mapPublication))
	}
}

// events

func parseDate(value string) (time.Time, bool) {
	date, err := time.Parse(dateLayout, value)
	return date, err == nil
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	date, ok := parseDate(req.EventDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	event, err := s.events.Create(r.Context(), userFromContext(r.Context()), campus.EventInput{
		Title:           req.Title,
		Description:     req.Description,
		EventDate:       date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AcademicGroupID: req.AcademicGroupID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapEvent(event))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_pagination")
		return
	}
	events, err := s.events.List(r.Context(), page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, mapEvent))
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_pagination")
		return
	}
	days := campus.DefaultUpcomingDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_days")
			return
		}
		days = n
	}
	events, err := s.events.Upcoming(r.Context(), days, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, mapEvent))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	event, err := s.events.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEvent(event))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req eventPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	in := campus.EventPatchInput{
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AcademicGroupID: req.AcademicGroupID,
	}
	if req.EventDate != nil {
		date, ok := parseDate(*req.EventDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		in.EventDate = &date
	}
	event, err := s.events.Update(r.Context(), userFromContext(r.Context()), id, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEvent(event))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.events.Delete(r.Context(), userFromContext(r.Context()), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// access grants

func (s *Server) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	grant, err := s.access.Grant(r.Context(), req.UserID, req.Permission)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapGrant(grant))
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := s.access.List(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(grants, mapGrant))
}

func (s *Server) handleListUserGrants(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUUID(w, r, "userId")
	if !ok {
		return
	}
	grants, err := s.access.ListByUser(r.Context(), userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(grants, mapGrant))
}

func (s *Server) handleCheckGrant(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUUID(w, r, "userId")
	if !ok {
		return
	}
	has, err := s.access.Check(r.Context(), userID, chi.URLParam(r, "permission"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_permission": has})
}

func (s *Server) handleUpdateGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req grantPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	grant, err := s.access.Update(r.Context(), id, req.Permission)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGrant(grant))
}

func (s *Server) handleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.access.Revoke(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
