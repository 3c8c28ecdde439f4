package moderation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradepost/trust-api/internal/middleware"
	"github.com/tradepost/trust-api/internal/pkg/response"
	"github.com/tradepost/trust-api/internal/pkg/validator"
)

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

// Handler handles moderation HTTP requests
type Handler struct {
	flags   *FlagService
	appeals *AppealService
	words   *WordService
}

// NewHandler creates moderation handler
func NewHandler(flags *FlagService, appeals *AppealService, words *WordService) *Handler {
	return &Handler{
		flags:   flags,
		appeals: appeals,
		words:   words,
	}
}

// SubmitFlag handles POST /api/v1/flags
func (h *Handler) SubmitFlag(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubmitFlagRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	flag, err := h.flags.Submit(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, flag)
}

// MyFlags handles GET /api/v1/flags/mine
func (h *Handler) MyFlags(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	flags, err := h.flags.MyFlags(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, flags)
}

// MyActions handles GET /api/v1/moderation/actions/mine
func (h *Handler) MyActions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	actions, err := h.flags.ActionsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, actions)
}

// SubmitAppeal handles POST /api/v1/appeals
func (h *Handler) SubmitAppeal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubmitAppealRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	appeal, err := h.appeals.Submit(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, appeal)
}

// MyAppeals handles GET /api/v1/appeals/mine
func (h *Handler) MyAppeals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	appeals, err := h.appeals.MyAppeals(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, appeals)
}

// --- Admin endpoints ---

// FlagQueue handles GET /api/admin/moderation/flags
func (h *Handler) FlagQueue(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	queue, err := h.flags.PendingQueue(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.WithMeta(w, queue, response.Meta{Total: len(queue), Limit: limit, Offset: offset})
}

// ReviewFlag handles POST /api/admin/moderation/flags/{id}/review
func (h *Handler) ReviewFlag(w http.ResponseWriter, r *http.Request) {
	flagID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid flag ID")
		return
	}
	reviewerID := middleware.GetUserID(r.Context())

	var req ReviewFlagRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	flag, err := h.flags.Review(r.Context(), flagID, reviewerID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, flag)
}

// AppealQueue handles GET /api/admin/moderation/appeals
func (h *Handler) AppealQueue(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	queue, err := h.appeals.PendingQueue(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.WithMeta(w, queue, response.Meta{Total: len(queue), Limit: limit, Offset: offset})
}

// ReviewAppeal handles POST /api/admin/moderation/appeals/{id}/review
func (h *Handler) ReviewAppeal(w http.ResponseWriter, r *http.Request) {
	appealID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid appeal ID")
		return
	}
	reviewerID := middleware.GetUserID(r.Context())

	var req ReviewAppealRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	appeal, err := h.appeals.Review(r.Context(), appealID, reviewerID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, appeal)
}

// UserActions handles GET /api/admin/moderation/users/{id}/actions
func (h *Handler) UserActions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	actions, err := h.flags.ActionsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, actions)
}

// ListWords handles GET /api/admin/moderation/words
func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	words, err := h.words.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, words)
}

// AddWord handles POST /api/admin/moderation/words
func (h *Handler) AddWord(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())

	var req AddWordRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	word, err := h.words.Add(r.Context(), adminID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, word)
}

// DeactivateWord handles DELETE /api/admin/moderation/words/{id}
func (h *Handler) DeactivateWord(w http.ResponseWriter, r *http.Request) {
	wordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid word ID")
		return
	}

	if err := h.words.Deactivate(r.Context(), wordID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultQueueLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > maxQueueLimit {
			limit = maxQueueLimit
		}
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// writeError maps moderation sentinels to HTTP statuses. Anything
// unrecognized is a storage failure and surfaces as 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrListingNotFound),
		errors.Is(err, ErrFlagNotFound),
		errors.Is(err, ErrActionNotFound),
		errors.Is(err, ErrAppealNotFound),
		errors.Is(err, ErrWordNotFound):
		response.NotFound(w, err.Error())

	case errors.Is(err, ErrReporterBanned),
		errors.Is(err, ErrNotAdmin),
		errors.Is(err, ErrNotActionTarget):
		response.Forbidden(w, err.Error())

	case errors.Is(err, ErrOwnListing),
		errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrMessageEmpty),
		errors.Is(err, ErrMessageTooLong),
		errors.Is(err, ErrResponseTooLong),
		errors.Is(err, ErrWordEmpty),
		errors.Is(err, ErrWordTooLong):
		response.BadRequest(w, err.Error())

	case errors.Is(err, ErrDuplicateFlag),
		errors.Is(err, ErrDuplicateAppeal),
		errors.Is(err, ErrDuplicateWord),
		errors.Is(err, ErrFlagAlreadyReviewed),
		errors.Is(err, ErrAppealAlreadyReviewed):
		response.Conflict(w, err.Error())

	case errors.Is(err, ErrAppealDeadlinePassed):
		response.Gone(w, err.Error())

	case errors.Is(err, ErrFlagRateLimited):
		response.TooManyRequests(w)

	default:
		response.InternalError(w)
	}
}
