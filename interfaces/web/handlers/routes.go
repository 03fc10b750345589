package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes groups the handlers mounted by NewRouter.
type Routes struct {
	Lists *ListHandlers
	Site  *SiteHandlers
	SSE   *SSEManager
}

// NewRouter mounts the inspector routes. middlewares run after the request id
// is assigned and before the recoverer.
func NewRouter(routes Routes, middlewares ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID, requestLogContext)
	for _, mw := range middlewares {
		r.Use(mw)
	}
	r.Use(middleware.Recoverer)

	// System endpoints
	r.Get("/health", routes.Site.Health)
	if routes.SSE != nil {
		r.Get("/events", routes.SSE.HandleSSEConnection)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/lists", http.StatusFound)
	})
	r.Get("/me", routes.Site.Me)
	r.Get("/activity", routes.Site.Activity)

	r.Route("/lists", func(r chi.Router) {
		r.Get("/", routes.Lists.Lists)
		r.Route("/{list}", func(r chi.Router) {
			r.Get("/fields", routes.Lists.Fields)
			r.Get("/items", routes.Lists.Items)
			r.Get("/items/{id}", routes.Lists.Item)
			r.Get("/items/{id}/history", routes.Lists.History)
		})
	})

	return r
}
