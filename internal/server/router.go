package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reliefworks/kioskhub/internal/api"
	"github.com/reliefworks/kioskhub/internal/api/handlers"
	"github.com/reliefworks/kioskhub/internal/api/middleware"
)

type RouterConfig struct {
	QueryHandler *handlers.QueryHandler
	KBHandler    *handlers.KBHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", cfg.QueryHandler.Ask)
	r.Post("/feedback", cfg.QueryHandler.Feedback)

	r.Route("/kb", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.KBHandler.Create)
			r.Get("/", cfg.KBHandler.List)
			r.Get("/{id}", cfg.KBHandler.Get)
			r.Put("/{id}", cfg.KBHandler.Update)
			r.Patch("/{id}/enabled", cfg.KBHandler.SetEnabled)
			r.Delete("/{id}", cfg.KBHandler.Delete)
		})

		r.Get("/config", cfg.KBHandler.GetConfig)
		r.Put("/config", cfg.KBHandler.PublishConfig)
	})

	return r
}
