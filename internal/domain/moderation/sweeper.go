package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradepost/trust-api/internal/config"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
	"github.com/tradepost/trust-api/internal/pkg/cache"
)

// ExpiredAppealResponse is recorded on appeals denied by the sweep
const ExpiredAppealResponse = "Appeal window elapsed without review"

// Sweeper runs the periodic auto-transitions: denying past-deadline appeals
// and lifting expired bans. Both passes are idempotent, so concurrent runs
// from multiple instances converge on the same state.
type Sweeper struct {
	repo        Repository
	users       user.Repository
	notifier    *notification.Service
	invalidator *cache.Invalidator
	cfg         config.ModerationConfig
}

// NewSweeper creates the sweep runner
func NewSweeper(
	repo Repository,
	users user.Repository,
	notifier *notification.Service,
	invalidator *cache.Invalidator,
	cfg config.ModerationConfig,
) *Sweeper {
	return &Sweeper{
		repo:        repo,
		users:       users,
		notifier:    notifier,
		invalidator: invalidator,
		cfg:         cfg,
	}
}

// SweepExpiredAppeals denies every pending appeal whose deadline has
// passed. One statement, no reviewer recorded.
func (s *Sweeper) SweepExpiredAppeals(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.AppealDeadlineDays)
	denied, err := s.repo.SweepExpiredAppeals(ctx, cutoff, ExpiredAppealResponse)
	if err != nil {
		return 0, err
	}
	if denied > 0 {
		log.Info().Int64("denied", denied).Msg("Swept expired appeals")
	}
	return denied, nil
}

// SweepExpiredBans lifts bans whose expiry has passed by appending unban
// entries. The ledger stays append-only: the ban rows are untouched.
func (s *Sweeper) SweepExpiredBans(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpiredBans(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	lifted := 0
	for _, ban := range expired {
		unban := &ModerationAction{
			ID:           uuid.New(),
			TargetUserID: ban.TargetUserID,
			AdminID:      SystemActor,
			ActionType:   ActionUnban,
			Reason:       "ban duration elapsed",
			CreatedAt:    time.Now(),
		}
		if err := s.repo.AppendActionSettingBanState(ctx, unban, false, ""); err != nil {
			log.Error().Err(err).
				Str("user_id", ban.TargetUserID.String()).
				Msg("Expired ban lift failed")
			continue
		}
		lifted++
		s.invalidator.InvalidateUser(ban.TargetUserID)
		s.notifier.NotifyUnban(ctx, ban.TargetUserID, unban.Reason, unban.ID)
	}

	if lifted > 0 {
		log.Info().Int("lifted", lifted).Msg("Swept expired bans")
	}
	return lifted, nil
}

// Run executes both sweeps, logging failures independently so one pass
// never blocks the other.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.SweepExpiredAppeals(ctx); err != nil {
		log.Error().Err(err).Msg("Appeal sweep failed")
	}
	if _, err := s.SweepExpiredBans(ctx); err != nil {
		log.Error().Err(err).Msg("Ban sweep failed")
	}
}
