package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/trust-api/internal/config"
	"github.com/tradepost/trust-api/internal/domain/listing"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
	"github.com/tradepost/trust-api/internal/pkg/cache"
)

// AppealService orchestrates time-boxed appeals against ledger entries.
// The deadline is enforced at review time, not only at creation: an appeal
// that was filed in time but reviewed late is expired.
type AppealService struct {
	repo        Repository
	users       user.Repository
	listings    listing.Repository
	notifier    *notification.Service
	invalidator *cache.Invalidator
	cfg         config.ModerationConfig
}

// NewAppealService creates the appeal workflow service
func NewAppealService(
	repo Repository,
	users user.Repository,
	listings listing.Repository,
	notifier *notification.Service,
	invalidator *cache.Invalidator,
	cfg config.ModerationConfig,
) *AppealService {
	return &AppealService{
		repo:        repo,
		users:       users,
		listings:    listings,
		notifier:    notifier,
		invalidator: invalidator,
		cfg:         cfg,
	}
}

// Submit contests a ledger entry. Uniqueness per (action, user) is the
// storage constraint's job; concurrent duplicates resolve to one row.
func (s *AppealService) Submit(ctx context.Context, userID uuid.UUID, req *SubmitAppealRequest) (*Appeal, error) {
	if req.Message == "" {
		return nil, ErrMessageEmpty
	}
	if len(req.Message) > s.cfg.MaxAppealMessageLength {
		return nil, ErrMessageTooLong
	}

	action, err := s.repo.GetActionByID(ctx, req.ModerationActionID)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, ErrActionNotFound
	}
	if action.TargetUserID != userID {
		return nil, ErrNotActionTarget
	}

	appeal := &Appeal{
		ID:                 uuid.New(),
		UserID:             userID,
		ModerationActionID: req.ModerationActionID,
		Message:            req.Message,
		Status:             AppealStatusPending,
		CreatedAt:          time.Now(),
	}
	if err := s.repo.CreateAppeal(ctx, appeal); err != nil {
		return nil, err
	}

	return appeal, nil
}

// Review resolves a pending appeal. Approval of a ban appends an unban
// entry and clears the ban projection in one transaction; approval of a
// content removal restores the listing. Approving a warning reverses
// nothing on the ledger.
func (s *AppealService) Review(ctx context.Context, appealID, reviewerID uuid.UUID, req *ReviewAppealRequest) (*Appeal, error) {
	reviewer, err := s.users.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if reviewer == nil || !reviewer.IsAdmin() {
		return nil, ErrNotAdmin
	}
	if len(req.Response) > s.cfg.MaxAdminResponseLength {
		return nil, ErrResponseTooLong
	}

	appeal, err := s.repo.GetAppealByID(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if appeal == nil {
		return nil, ErrAppealNotFound
	}
	if appeal.Status != AppealStatusPending {
		return nil, ErrAppealAlreadyReviewed
	}
	if time.Now().After(appeal.Deadline(s.cfg.AppealDeadlineDays)) {
		return nil, ErrAppealDeadlinePassed
	}

	switch req.Decision {
	case "deny":
		if err := s.repo.UpdateAppealReview(ctx, appealID, AppealStatusDenied, reviewerID, req.Response); err != nil {
			return nil, err
		}
		appeal.Status = AppealStatusDenied
		s.notifier.NotifyAppealDecision(ctx, appeal.UserID, false, req.Response, appeal.ID)
		return appeal, nil
	case "approve":
		// handled below
	default:
		return nil, ErrInvalidDecision
	}

	action, err := s.repo.GetActionByID(ctx, appeal.ModerationActionID)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, ErrActionNotFound
	}

	// Reversal goes first so a failed reversal leaves the appeal pending
	// and retryable.
	switch action.ActionType {
	case ActionBan:
		unban := &ModerationAction{
			ID:           uuid.New(),
			TargetUserID: action.TargetUserID,
			AdminID:      reviewerID,
			ActionType:   ActionUnban,
			Reason:       fmt.Sprintf("appeal %s approved", appeal.ID),
			CreatedAt:    time.Now(),
		}
		if err := s.repo.AppendActionSettingBanState(ctx, unban, false, ""); err != nil {
			return nil, err
		}
		s.invalidator.InvalidateUser(action.TargetUserID)
		s.notifier.NotifyUnban(ctx, action.TargetUserID, unban.Reason, unban.ID)
	case ActionContentRemoval:
		if action.TargetListingID.Valid {
			if err := s.listings.SetStatus(ctx, action.TargetListingID.UUID, listing.StatusActive); err != nil {
				return nil, err
			}
			s.invalidator.InvalidateListing(action.TargetListingID.UUID)
		}
	}

	if err := s.repo.UpdateAppealReview(ctx, appealID, AppealStatusApproved, reviewerID, req.Response); err != nil {
		return nil, err
	}
	appeal.Status = AppealStatusApproved

	s.notifier.NotifyAppealDecision(ctx, appeal.UserID, true, req.Response, appeal.ID)
	return appeal, nil
}

// MyAppeals returns appeals filed by a user
func (s *AppealService) MyAppeals(ctx context.Context, userID uuid.UUID) ([]*Appeal, error) {
	return s.repo.ListAppealsByUser(ctx, userID)
}

// PendingQueue returns pending appeals, oldest first
func (s *AppealService) PendingQueue(ctx context.Context, limit, offset int) ([]*Appeal, error) {
	return s.repo.ListPendingAppeals(ctx, limit, offset)
}
