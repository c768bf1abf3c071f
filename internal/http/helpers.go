package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/model"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

// writeAppError maps a service error to its status. Internal causes are logged, never echoed.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, appErr.Status(), errorResponse{Error: appErr.Code, Message: appErr.Message})
}

// requireUUID reads a path parameter and rejects anything that is not a UUID.
func requireUUID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	value := chi.URLParam(r, param)
	if _, err := uuid.Parse(value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+strings.ToLower(param))
		return "", false
	}
	return value, true
}

// pageFromQuery reads skip and limit; the store clamps the result.
func pageFromQuery(r *http.Request) (model.Page, bool) {
	var page model.Page
	for key, dst := range map[string]*int{"skip": &page.Skip, "limit": &page.Limit} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, false
		}
		*dst = n
	}
	return page, true
}
