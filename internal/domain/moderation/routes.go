package moderation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost/trust-api/internal/middleware"
)

// FlagRoutes returns the user-facing flag routes
func (h *Handler) FlagRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post("/", h.SubmitFlag)
	r.Get("/mine", h.MyFlags)

	return r
}

// AppealRoutes returns the user-facing appeal routes
func (h *Handler) AppealRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post("/", h.SubmitAppeal)
	r.Get("/mine", h.MyAppeals)

	return r
}

// HistoryRoutes returns the user-facing ledger history routes. Banned users
// keep access so they can see the action to appeal.
func (h *Handler) HistoryRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Get("/actions/mine", h.MyActions)

	return r
}

// AdminRoutes returns the admin moderation routes
func (h *Handler) AdminRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin)

	r.Get("/flags", h.FlagQueue)
	r.Post("/flags/{id}/review", h.ReviewFlag)

	r.Get("/appeals", h.AppealQueue)
	r.Post("/appeals/{id}/review", h.ReviewAppeal)

	r.Get("/users/{id}/actions", h.UserActions)

	r.Route("/words", func(r chi.Router) {
		r.Get("/", h.ListWords)
		r.Post("/", h.AddWord)
		r.Delete("/{id}", h.DeactivateWord)
	})

	return r
}
