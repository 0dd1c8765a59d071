package devserver

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a server and returns its routes mounted under /api/v1
func NewRouter(logger *slog.Logger, opts ...Option) (*chi.Mux, *Server) {
	s := New(logger, opts...)
	return s.Router(), s
}

// Router builds the chi router for s
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Post("/auth/register", s.Register)
		r.Post("/auth/login", s.Login)

		r.Group(func(r chi.Router) {
			r.Use(s.OptionalAuth)
			r.Get("/projects", s.Projects)
			r.Get("/projects/{key}/users", s.ProjectUsers)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.BearerAuth)

			r.Get("/auth/me", s.Me)
			r.Post("/auth/logout", s.Logout)
			r.Put("/auth/jira-credentials", s.UpdateJiraCredentials)

			r.Post("/tasks/batch", s.CreateBatch)
			r.Post("/content/instagram", s.CreateContent)

			r.Route("/subtasks", func(r chi.Router) {
				r.Get("/", s.ListSubtasks)
				r.Post("/", s.CreateSubtask)
				r.Post("/reorder", s.ReorderSubtasks)
				r.Put("/{id}", s.UpdateSubtask)
				r.Delete("/{id}", s.DeleteSubtask)
			})
		})
	})

	return r
}
