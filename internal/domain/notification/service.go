package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service handles notification delivery for moderation events. Every Notify*
// helper is best-effort: a failed insert is logged and swallowed so that it
// can never block or roll back the ledger write that triggered it.
type Service struct {
	repo Repository
}

// NewService creates notification service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a notification
func (s *Service) Create(ctx context.Context, userID uuid.UUID, notifType Type, title, body string, data *EventData) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	if body != "" {
		n.Body = sql.NullString{String: body, Valid: true}
	}
	n.SetData(data)

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	return n, nil
}

// List returns notifications for user
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByUser(ctx, userID)
}

// MarkAsRead marks single notification as read
func (s *Service) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

// --- Best-effort helpers for moderation events ---

// NotifyWarning notifies a user about a warning issued against them
func (s *Service) NotifyWarning(ctx context.Context, userID uuid.UUID, reason string, actionID uuid.UUID) {
	s.fireAndForget(ctx, userID, TypeWarning,
		"You have received a warning",
		reason,
		&EventData{ActionID: &actionID},
	)
}

// NotifyBan notifies a user about a ban
func (s *Service) NotifyBan(ctx context.Context, userID uuid.UUID, reason string, durationDays int, actionID uuid.UUID) {
	body := reason
	if durationDays > 0 {
		body = fmt.Sprintf("%s (duration: %d days)", reason, durationDays)
	}
	s.fireAndForget(ctx, userID, TypeBan,
		"Your account has been suspended",
		body,
		&EventData{ActionID: &actionID},
	)
}

// NotifyUnban notifies a user that their ban has been lifted
func (s *Service) NotifyUnban(ctx context.Context, userID uuid.UUID, reason string, actionID uuid.UUID) {
	s.fireAndForget(ctx, userID, TypeUnban,
		"Your account has been reinstated",
		reason,
		&EventData{ActionID: &actionID},
	)
}

// NotifyContentRemoved notifies a user that their listing was taken down
func (s *Service) NotifyContentRemoved(ctx context.Context, userID uuid.UUID, reason string, listingID uuid.UUID) {
	s.fireAndForget(ctx, userID, TypeContentRemoved,
		"Your listing has been removed",
		reason,
		&EventData{ListingID: &listingID},
	)
}

// NotifyAppealDecision notifies a user about the outcome of their appeal
func (s *Service) NotifyAppealDecision(ctx context.Context, userID uuid.UUID, approved bool, adminResponse string, appealID uuid.UUID) {
	title := "Your appeal has been denied"
	if approved {
		title = "Your appeal has been approved"
	}
	s.fireAndForget(ctx, userID, TypeAppealDecision,
		title,
		adminResponse,
		&EventData{AppealID: &appealID},
	)
}

func (s *Service) fireAndForget(ctx context.Context, userID uuid.UUID, notifType Type, title, body string, data *EventData) {
	if _, err := s.Create(ctx, userID, notifType, title, body, data); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", string(notifType)).
			Msg("Notification delivery failed")
	}
}
