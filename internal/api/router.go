package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tenderwatch/internal/noticeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noticeservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Active set.
	r.Get("/notices", h.ListNotices)
	r.Get("/notices/match", h.MatchNotice)
	r.Get("/notices/archive", h.ListArchived)
	r.Get("/notices/search", h.Search)

	r.Route("/seeds", func(r chi.Router) {
		r.Get("/", h.ListSeeds)
		r.Post("/", h.CreateSeed)
		r.Get("/{code}", h.GetSeed)
		r.Delete("/{code}", h.DeleteSeed)
	})

	r.Get("/runs", h.ListRuns)
	r.Post("/runs", h.TriggerRun)
	r.Get("/stats", h.Stats)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewFeedRouter serves the RSS feeds rendered from the live state. Feeds are
// public so feed readers need no token.
func NewFeedRouter(svc *noticeservice.Service) chi.Router {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Get("/{name}.xml", h.Feed)
	return r
}
