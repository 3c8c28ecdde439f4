package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradepost/trust-api/internal/config"
	"github.com/tradepost/trust-api/internal/domain/listing"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
	"github.com/tradepost/trust-api/internal/pkg/cache"
)

// FlagService orchestrates flag intake and review: duplicate and rate-limit
// checks, risk scoring, the automatic critical path, and escalation on
// uphold. It writes the ledger; cache invalidation and notifications follow
// a successful write and never roll it back.
type FlagService struct {
	repo        Repository
	users       user.Repository
	listings    listing.Repository
	words       *WordService
	scorer      *Scorer
	ladder      *Ladder
	notifier    *notification.Service
	invalidator *cache.Invalidator
	cfg         config.ModerationConfig
}

// NewFlagService creates the flag workflow service
func NewFlagService(
	repo Repository,
	users user.Repository,
	listings listing.Repository,
	words *WordService,
	scorer *Scorer,
	ladder *Ladder,
	notifier *notification.Service,
	invalidator *cache.Invalidator,
	cfg config.ModerationConfig,
) *FlagService {
	return &FlagService{
		repo:        repo,
		users:       users,
		listings:    listings,
		words:       words,
		scorer:      scorer,
		ladder:      ladder,
		notifier:    notifier,
		invalidator: invalidator,
		cfg:         cfg,
	}
}

// Submit files a flag against a listing. The (listing, reporter) uniqueness
// is left to the storage constraint so concurrent duplicates resolve to one
// row. The trailing-window rate limit is a count query: eventual, not exact,
// enforcement, which is acceptable slop for an abuse brake.
func (s *FlagService) Submit(ctx context.Context, reporterID uuid.UUID, req *SubmitFlagRequest) (*Flag, error) {
	reporter, err := s.users.GetByID(ctx, reporterID)
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		return nil, ErrUserNotFound
	}
	if reporter.IsBanned {
		return nil, ErrReporterBanned
	}

	target, err := s.listings.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrListingNotFound
	}
	if target.OwnerID == reporterID {
		return nil, ErrOwnListing
	}

	since := time.Now().Add(-s.cfg.FlagRateWindow)
	recent, err := s.repo.CountRecentFlagsByReporter(ctx, reporterID, since)
	if err != nil {
		return nil, err
	}
	if recent >= s.cfg.FlagRateLimit {
		return nil, ErrFlagRateLimited
	}

	analysis, err := s.analyzeListing(ctx, target)
	if err != nil {
		return nil, err
	}

	flag := &Flag{
		ID:         uuid.New(),
		ListingID:  req.ListingID,
		ReporterID: reporterID,
		Reason:     req.Reason,
		Status:     FlagStatusPending,
		RiskScore:  analysis.RiskScore,
		CreatedAt:  time.Now(),
	}
	if req.Description != "" {
		flag.Description = sql.NullString{String: req.Description, Valid: true}
	}

	if err := s.repo.CreateFlag(ctx, flag); err != nil {
		return nil, err
	}

	if analysis.Severity == SeverityCritical {
		if err := s.executeCriticalAction(ctx, flag, target, analysis); err != nil {
			// The flag stays pending and surfaces in the manual queue at
			// top priority.
			log.Error().Err(err).
				Str("flag_id", flag.ID.String()).
				Str("listing_id", target.ID.String()).
				Msg("Automatic critical action failed")
			return flag, err
		}
	}

	return flag, nil
}

// analyzeListing fetches the active word list and scores the listing
func (s *FlagService) analyzeListing(ctx context.Context, l *listing.Listing) (Analysis, error) {
	words, err := s.words.ActiveWords(ctx)
	if err != nil {
		return Analysis{}, err
	}
	title, body := l.Text()
	return s.scorer.Analyze(ListingContent{
		Title:       title,
		Description: body,
		Category:    l.Category,
		Price:       l.Price,
	}, words), nil
}

// executeCriticalAction runs the automatic path for critical-severity
// scores. The ban write goes first so a failure aborts before any listing
// mutation; the flag is then marked upheld with the system as reviewer.
func (s *FlagService) executeCriticalAction(ctx context.Context, flag *Flag, target *listing.Listing, analysis Analysis) error {
	reason := fmt.Sprintf("automatic: risk score %d (%s)", analysis.RiskScore, flag.Reason)

	ban := &ModerationAction{
		ID:              uuid.New(),
		TargetUserID:    target.OwnerID,
		TargetListingID: uuid.NullUUID{UUID: target.ID, Valid: true},
		AdminID:         SystemActor,
		ActionType:      ActionBan,
		Reason:          reason,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.AppendActionSettingBanState(ctx, ban, true, reason); err != nil {
		return err
	}

	if err := s.listings.SetStatus(ctx, target.ID, listing.StatusRemoved); err != nil {
		return err
	}

	if err := s.repo.UpdateFlagReview(ctx, flag.ID, FlagStatusUpheld, SystemActor, reason); err != nil {
		return err
	}
	flag.Status = FlagStatusUpheld
	flag.ReviewedBy = uuid.NullUUID{UUID: SystemActor, Valid: true}

	s.invalidator.InvalidateUser(target.OwnerID)
	s.invalidator.InvalidateListing(target.ID)
	s.notifier.NotifyBan(ctx, target.OwnerID, reason, 0, ban.ID)
	s.notifier.NotifyContentRemoved(ctx, target.OwnerID, reason, target.ID)

	return nil
}

// Review resolves a pending flag. On uphold the escalation ladder picks the
// action from the target's prior-infraction count; the flagged content is
// removed regardless of the action type.
func (s *FlagService) Review(ctx context.Context, flagID, reviewerID uuid.UUID, req *ReviewFlagRequest) (*Flag, error) {
	reviewer, err := s.users.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if reviewer == nil || !reviewer.IsAdmin() {
		return nil, ErrNotAdmin
	}

	flag, err := s.repo.GetFlagByID(ctx, flagID)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, ErrFlagNotFound
	}
	if flag.Status != FlagStatusPending {
		return nil, ErrFlagAlreadyReviewed
	}

	switch req.Decision {
	case "dismiss":
		if err := s.repo.UpdateFlagReview(ctx, flagID, FlagStatusDismissed, reviewerID, req.Notes); err != nil {
			return nil, err
		}
		flag.Status = FlagStatusDismissed
		return flag, nil
	case "uphold":
		// handled below
	default:
		return nil, ErrInvalidDecision
	}

	target, err := s.listings.GetByID(ctx, flag.ListingID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrListingNotFound
	}

	prior, err := s.repo.CountActionsByUser(ctx, target.OwnerID)
	if err != nil {
		return nil, err
	}
	step := s.ladder.Next(prior)

	reason := fmt.Sprintf("flag upheld: %s", flag.Reason)
	if req.Notes != "" {
		reason = fmt.Sprintf("%s (%s)", reason, req.Notes)
	}

	action := &ModerationAction{
		ID:              uuid.New(),
		TargetUserID:    target.OwnerID,
		TargetListingID: uuid.NullUUID{UUID: target.ID, Valid: true},
		AdminID:         reviewerID,
		ActionType:      step.ActionType,
		Reason:          reason,
		CreatedAt:       time.Now(),
	}

	if step.ActionType == ActionBan {
		action.DurationDays = sql.NullInt32{Int32: int32(step.DurationDays), Valid: true}
		if step.DurationDays > 0 {
			action.ExpiresAt = sql.NullTime{
				Time:  time.Now().AddDate(0, 0, step.DurationDays), Valid: true,
			}
		}
		if err := s.repo.AppendActionSettingBanState(ctx, action, true, reason); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.AppendAction(ctx, action); err != nil {
			return nil, err
		}
		if err := s.users.IncrementWarningCount(ctx, target.OwnerID); err != nil {
			return nil, err
		}
	}

	// Flagged content always comes down on uphold, whatever the action.
	if err := s.listings.SetStatus(ctx, flag.ListingID, listing.StatusRemoved); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFlagReview(ctx, flagID, FlagStatusUpheld, reviewerID, req.Notes); err != nil {
		return nil, err
	}
	flag.Status = FlagStatusUpheld

	s.invalidator.InvalidateUser(target.OwnerID)
	s.invalidator.InvalidateListing(flag.ListingID)

	switch step.ActionType {
	case ActionBan:
		s.notifier.NotifyBan(ctx, target.OwnerID, reason, step.DurationDays, action.ID)
	default:
		s.notifier.NotifyWarning(ctx, target.OwnerID, reason, action.ID)
	}
	s.notifier.NotifyContentRemoved(ctx, target.OwnerID, reason, flag.ListingID)

	return flag, nil
}

// MyFlags returns flags filed by a reporter
func (s *FlagService) MyFlags(ctx context.Context, reporterID uuid.UUID) ([]*Flag, error) {
	return s.repo.ListFlagsByReporter(ctx, reporterID)
}

// PendingQueue returns the review queue, highest risk first, enriched with
// priority band and SLA hours for the dashboard.
func (s *FlagService) PendingQueue(ctx context.Context, limit, offset int) ([]*PendingFlagView, error) {
	flags, err := s.repo.ListPendingFlags(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	views := make([]*PendingFlagView, 0, len(flags))
	for _, f := range flags {
		priority, sla := s.queuePriority(f.RiskScore)
		views = append(views, &PendingFlagView{Flag: f, Priority: priority, SLAHours: sla})
	}
	return views, nil
}

// ActionsForUser returns a user's ledger history
func (s *FlagService) ActionsForUser(ctx context.Context, userID uuid.UUID) ([]*ModerationAction, error) {
	return s.repo.ListActionsByUser(ctx, userID)
}

func (s *FlagService) queuePriority(score int) (string, int) {
	switch {
	case score >= s.cfg.AutoBanScore:
		return SeverityCritical, 4
	case score >= s.cfg.AutoRemoveScore:
		return SeverityHigh, 24
	case score >= s.cfg.WarnScore:
		return SeverityMedium, 72
	default:
		return SeverityLow, 168
	}
}
