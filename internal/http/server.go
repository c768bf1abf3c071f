package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"uconnect/api/internal/auth"
	"uconnect/api/internal/campus"
	"uconnect/api/internal/chat"
	"uconnect/api/internal/config"
	"uconnect/api/internal/model"
	"uconnect/api/internal/notify"
	"uconnect/api/internal/session"
	"uconnect/api/internal/users"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the router dispatches to.
type Deps struct {
	Tokens        *auth.Issuer
	Sessions      *session.Ledger
	Users         *users.Service
	Chat          *chat.Service
	Groups        *campus.Groups
	Posts         *campus.Publications
	Announcements *campus.Publications
	Events        *campus.Events
	Access        *campus.Access
	Hub           *notify.Hub
	Store         Pinger
}

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	tokens        *auth.Issuer
	sessions      *session.Ledger
	users         *users.Service
	chat          *chat.Service
	groups        *campus.Groups
	posts         *campus.Publications
	announcements *campus.Publications
	events        *campus.Events
	access        *campus.Access
	hub           *notify.Hub
	store         Pinger
}

func NewServer(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		tokens:        deps.Tokens,
		sessions:      deps.Sessions,
		users:         deps.Users,
		chat:          deps.Chat,
		groups:        deps.Groups,
		posts:         deps.Posts,
		announcements: deps.Announcements,
		events:        deps.Events,
		access:        deps.Access,
		hub:           deps.Hub,
		store:         deps.Store,
	}
}

// Handler is the instrumented root handler served by main.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Router(), "uconnect-api")
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.APIPrefix != "" {
		r.Route(s.cfg.APIPrefix, s.apiRoutes)
	} else {
		s.apiRoutes(r)
	}
	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	staff := []model.Role{model.RoleTeacher, model.RoleCoordinator, model.RoleAdmin}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/validate", s.handleValidate)
	})

	r.Route("/users", func(r chi.Router) {
		r.With(s.optionalAuth).Post("/", s.handleCreateUser)
		r.With(s.active(model.RoleAdmin)...).Get("/", s.handleListUsers)
		r.With(s.active()...).Get("/me", s.handleGetMe)
		r.With(s.active()...).Put("/me", s.handleUpdateMe)
		r.With(s.active()...).Post("/me/password", s.handleChangePassword)
		r.With(s.active()...).Get("/{id}", s.handleGetUser)
		r.With(s.active(model.RoleAdmin)...).Put("/{id}", s.handleUpdateUser)
		r.With(s.active(model.RoleAdmin)...).Delete("/{id}", s.handleDeleteUser)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator)...).Patch("/{id}/status", s.handleUpdateStatus)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator)...).Patch("/{id}/role", s.handleUpdateRole)
	})

	r.Route("/chat", func(r chi.Router) {
		r.Get("/ws", s.handleChatSocket)
		r.Group(func(r chi.Router) {
			r.Use(s.active()...)
			r.Get("/", s.handleListConversations)
			r.Get("/conversations", s.handleListConversations)
			r.Post("/", s.handleCreateConversation)
			r.Delete("/{id}", s.handleDeleteConversation)
			r.Get("/{id}/messages", s.handleGetMessages)
			r.Post("/{id}/messages", s.handleSendMessage)
			r.Post("/{id}/read", s.handleMarkRead)
		})
	})

	r.Route("/groups", func(r chi.Router) {
		r.With(s.active(model.RoleAdmin)...).Post("/", s.handleCreateGroup)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator)...).Get("/", s.handleListGroups)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator, model.RoleTeacher)...).Get("/{id}", s.handleGetGroup)
		r.With(s.active(model.RoleAdmin)...).Patch("/{id}", s.handleUpdateGroup)
		r.With(s.active(model.RoleAdmin)...).Delete("/{id}", s.handleDeleteGroup)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator)...).Post("/{id}/users/{userId}", s.handleAddGroupMember)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator)...).Delete("/{id}/users/{userId}", s.handleRemoveGroupMember)
	})

	r.Route("/publications", func(r chi.Router) {
		r.Get("/", s.handlePublicFeed)
		r.Route("/posts", s.publicationRoutes(s.posts, staff))
		r.Route("/announcements", s.publicationRoutes(s.announcements, staff))
	})

	r.Route("/events", func(r chi.Router) {
		r.Use(s.active()...)
		r.With(s.requireRoles(staff...)).Post("/", s.handleCreateEvent)
		r.Get("/", s.handleListEvents)
		r.Get("/upcoming", s.handleUpcomingEvents)
		r.Get("/{id}", s.handleGetEvent)
		r.Patch("/{id}", s.handleUpdateEvent)
		r.Delete("/{id}", s.handleDeleteEvent)
	})

	r.Route("/access", func(r chi.Router) {
		r.With(s.active(model.RoleAdmin)...).Post("/", s.handleCreateGrant)
		r.With(s.active(model.RoleAdmin)...).Get("/", s.handleListGrants)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator)...).Get("/user/{userId}", s.handleListUserGrants)
		r.With(s.active(model.RoleAdmin, model.RoleCoordinator, model.RoleTeacher)...).Get("/check/{userId}/{permission}", s.handleCheckGrant)
		r.With(s.active(model.RoleAdmin)...).Patch("/{id}", s.handleUpdateGrant)
		r.With(s.active(model.RoleAdmin)...).Delete("/{id}", s.handleDeleteGrant)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
