package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/metrics"
	"uconnect/api/internal/model"
)

type userKey struct{}

func userFromContext(ctx context.Context) model.User {
	user, _ := ctx.Value(userKey{}).(model.User)
	return user
}

// resolveUser decodes the bearer token and loads its subject.
func (s *Server) resolveUser(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, apperr.Unauthorized("missing_token", "bearer token required")
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return model.User{}, apperr.Unauthorized("invalid_token", "could not validate credentials")
	}
	user, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return model.User{}, apperr.Unauthorized("invalid_token", "could not validate credentials")
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		user, err := s.resolveUser(r.Context(), token)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// optionalAuth resolves a user when a bearer token is present and passes anonymous requests through.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r.Header.Get("Authorization")) == "" {
			next.ServeHTTP(w, r)
			return
		}
		s.authenticate(next).ServeHTTP(w, r)
	})
}

func (s *Server) requireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !userFromContext(r.Context()).Active() {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "user_inactive", Message: "inactive user"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRoles admits exactly the listed roles. There is no implied hierarchy.
func (s *Server) requireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !userFromContext(r.Context()).Role.In(roles...) {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden", Message: "operation not permitted for your role"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// active is the common chain for authenticated routes.
func (s *Server) active(roles ...model.Role) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{s.authenticate, s.requireActive}
	if len(roles) > 0 {
		chain = append(chain, s.requireRoles(roles...))
	}
	return chain
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(status/100)+"xx").Inc()
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
