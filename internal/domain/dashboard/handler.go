package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost/trust-api/internal/domain/moderation"
	"github.com/tradepost/trust-api/internal/middleware"
	"github.com/tradepost/trust-api/internal/pkg/response"
)

// Handler serves the admin moderation dashboard. All numbers come from the
// single ledger-derived statistics view, so flag and appeal success rates
// can never disagree with the raw counts shown next to them.
type Handler struct {
	repo moderation.Repository
}

// NewHandler creates dashboard handler
func NewHandler(repo moderation.Repository) *Handler {
	return &Handler{repo: repo}
}

// ModerationStats handles GET /api/admin/dashboard/moderation
func (h *Handler) ModerationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, stats)
}

// Routes returns dashboard routes (admin only)
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin)

	r.Get("/moderation", h.ModerationStats)

	return r
}
