package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/prefs"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/taskservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /stream inside the auth group and
// receives preference change events.
func NewRouter(svc *taskservice.Service, pp *prefs.Provider, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, pp, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tasks CRUD.
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks", h.CreateTask)
	r.Route("/tasks/{id}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Put("/", h.UpdateTask)
		r.Delete("/", h.DeleteTask)
		r.Post("/complete", h.CompleteTask)
		r.Get("/suggestions", h.Suggestions)
		r.Post("/schedule", h.ScheduleTask)
	})

	r.Get("/status", h.Status)

	// Scheduling.
	r.Post("/schedule/batch", h.ScheduleBatch)
	r.Post("/schedule/backlog", h.ScheduleBacklog)

	// Calendar events.
	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Get("/events/{id}", h.GetEvent)
	r.Delete("/events/{id}", h.DeleteEvent)

	// Preferences.
	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/stream", broker.ServeHTTP)
	}

	return r
}
