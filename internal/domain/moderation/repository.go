package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines moderation data access. Duplicate checks are enforced
// as storage-level unique constraints, not in-memory pre-checks, so that
// concurrent submissions from the same actor collapse into one row and the
// loser gets ErrDuplicate*, not a crash.
type Repository interface {
	// Flags
	CreateFlag(ctx context.Context, f *Flag) error
	GetFlagByID(ctx context.Context, id uuid.UUID) (*Flag, error)
	ListFlagsByReporter(ctx context.Context, reporterID uuid.UUID) ([]*Flag, error)
	// ListPendingFlags orders the review queue: highest risk first, oldest
	// first within a band.
	ListPendingFlags(ctx context.Context, limit, offset int) ([]*Flag, error)
	CountRecentFlagsByReporter(ctx context.Context, reporterID uuid.UUID, since time.Time) (int, error)
	UpdateFlagReview(ctx context.Context, id uuid.UUID, status FlagStatus, reviewedBy uuid.UUID, notes string) error

	// Ledger
	AppendAction(ctx context.Context, a *ModerationAction) error
	// AppendActionSettingBanState writes the ledger entry and the paired
	// user ban-state projection in one transaction.
	AppendActionSettingBanState(ctx context.Context, a *ModerationAction, banned bool, banReason string) error
	GetActionByID(ctx context.Context, id uuid.UUID) (*ModerationAction, error)
	ListActionsByUser(ctx context.Context, userID uuid.UUID) ([]*ModerationAction, error)
	// CountActionsByUser counts prior infractions (unban entries excluded);
	// feeds the escalation ladder.
	CountActionsByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// ListExpiredBans returns the latest ban per user whose expiry has
	// passed, where the user is still banned and no later unban exists.
	ListExpiredBans(ctx context.Context, now time.Time) ([]*ModerationAction, error)

	// Appeals
	CreateAppeal(ctx context.Context, a *Appeal) error
	GetAppealByID(ctx context.Context, id uuid.UUID) (*Appeal, error)
	ListAppealsByUser(ctx context.Context, userID uuid.UUID) ([]*Appeal, error)
	ListPendingAppeals(ctx context.Context, limit, offset int) ([]*Appeal, error)
	UpdateAppealReview(ctx context.Context, id uuid.UUID, status AppealStatus, reviewedBy uuid.UUID, adminResponse string) error
	// SweepExpiredAppeals denies every pending appeal created before the
	// cutoff in one idempotent statement; reviewed_by stays NULL.
	SweepExpiredAppeals(ctx context.Context, cutoff time.Time, systemResponse string) (int64, error)

	// Blocked words
	CreateWord(ctx context.Context, w *BlockedWord) error
	ListActiveWords(ctx context.Context) ([]*BlockedWord, error)
	ListWords(ctx context.Context) ([]*BlockedWord, error)
	DeactivateWord(ctx context.Context, id uuid.UUID) error

	// Stats is the single ledger-derived statistics view
	Stats(ctx context.Context) (*Stats, error)
}

// Stats is the unified, ledger-derived statistics view consumed by the
// dashboard. Flag and appeal success rates come from the same queries.
type Stats struct {
	FlagsPending   int `json:"flags_pending" db:"flags_pending"`
	FlagsUpheld    int `json:"flags_upheld" db:"flags_upheld"`
	FlagsDismissed int `json:"flags_dismissed" db:"flags_dismissed"`

	Warnings        int `json:"warnings" db:"warnings"`
	Bans            int `json:"bans" db:"bans"`
	Unbans          int `json:"unbans" db:"unbans"`
	ContentRemovals int `json:"content_removals" db:"content_removals"`

	AppealsPending  int `json:"appeals_pending" db:"appeals_pending"`
	AppealsApproved int `json:"appeals_approved" db:"appeals_approved"`
	AppealsDenied   int `json:"appeals_denied" db:"appeals_denied"`

	UpholdRate         float64 `json:"uphold_rate"`
	AppealApprovalRate float64 `json:"appeal_approval_rate"`
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the Postgres-backed moderation repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// --- Flags ---

func (r *repository) CreateFlag(ctx context.Context, f *Flag) error {
	query := `
		INSERT INTO flags (id, listing_id, reporter_id, reason, description, status, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.ListingID, f.ReporterID, f.Reason, f.Description, f.Status, f.RiskScore, f.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateFlag
		}
		return fmt.Errorf("moderation repository create flag: %w", err)
	}
	return nil
}

func (r *repository) GetFlagByID(ctx context.Context, id uuid.UUID) (*Flag, error) {
	var f Flag
	err := r.db.GetContext(ctx, &f, `SELECT * FROM flags WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("moderation repository get flag: %w", err)
	}
	return &f, nil
}

func (r *repository) ListFlagsByReporter(ctx context.Context, reporterID uuid.UUID) ([]*Flag, error) {
	query := `
		SELECT * FROM flags
		WHERE reporter_id = $1
		ORDER BY created_at DESC
	`
	var flags []*Flag
	err := r.db.SelectContext(ctx, &flags, query, reporterID)
	return flags, err
}

func (r *repository) ListPendingFlags(ctx context.Context, limit, offset int) ([]*Flag, error) {
	query := `
		SELECT * FROM flags
		WHERE status = 'pending'
		ORDER BY risk_score DESC, created_at ASC
		LIMIT $1 OFFSET $2
	`
	var flags []*Flag
	err := r.db.SelectContext(ctx, &flags, query, limit, offset)
	return flags, err
}

func (r *repository) CountRecentFlagsByReporter(ctx context.Context, reporterID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM flags WHERE reporter_id = $1 AND created_at >= $2`,
		reporterID, since)
	return count, err
}

func (r *repository) UpdateFlagReview(ctx context.Context, id uuid.UUID, status FlagStatus, reviewedBy uuid.UUID, notes string) error {
	query := `
		UPDATE flags
		SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = NOW()
		WHERE id = $1
	`
	var noteArg sql.NullString
	if notes != "" {
		noteArg = sql.NullString{String: notes, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, noteArg)
	if err != nil {
		return fmt.Errorf("moderation repository update flag: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrFlagNotFound
	}
	return nil
}

// --- Ledger ---

const insertActionQuery = `
	INSERT INTO moderation_actions (
		id, target_user_id, target_listing_id, admin_id,
		action_type, reason, duration_days, expires_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (r *repository) AppendAction(ctx context.Context, a *ModerationAction) error {
	_, err := r.db.ExecContext(ctx, insertActionQuery,
		a.ID, a.TargetUserID, a.TargetListingID, a.AdminID,
		a.ActionType, a.Reason, a.DurationDays, a.ExpiresAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("moderation repository append action: %w", err)
	}
	return nil
}

func (r *repository) AppendActionSettingBanState(ctx context.Context, a *ModerationAction, banned bool, banReason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("moderation repository begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertActionQuery,
		a.ID, a.TargetUserID, a.TargetListingID, a.AdminID,
		a.ActionType, a.Reason, a.DurationDays, a.ExpiresAt, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("moderation repository append action: %w", err)
	}

	if banned {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET is_banned = true, ban_reason = $2, banned_at = NOW(), updated_at = NOW() WHERE id = $1`,
			a.TargetUserID, banReason)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET is_banned = false, ban_reason = NULL, banned_at = NULL, updated_at = NOW() WHERE id = $1`,
			a.TargetUserID)
	}
	if err != nil {
		return fmt.Errorf("moderation repository set ban state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("moderation repository commit: %w", err)
	}
	return nil
}

func (r *repository) GetActionByID(ctx context.Context, id uuid.UUID) (*ModerationAction, error) {
	var a ModerationAction
	err := r.db.GetContext(ctx, &a, `SELECT * FROM moderation_actions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("moderation repository get action: %w", err)
	}
	return &a, nil
}

func (r *repository) ListActionsByUser(ctx context.Context, userID uuid.UUID) ([]*ModerationAction, error) {
	query := `
		SELECT * FROM moderation_actions
		WHERE target_user_id = $1
		ORDER BY created_at DESC
	`
	var actions []*ModerationAction
	err := r.db.SelectContext(ctx, &actions, query, userID)
	return actions, err
}

func (r *repository) CountActionsByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM moderation_actions WHERE target_user_id = $1 AND action_type != 'unban'`,
		userID)
	return count, err
}

func (r *repository) ListExpiredBans(ctx context.Context, now time.Time) ([]*ModerationAction, error) {
	query := `
		SELECT DISTINCT ON (a.target_user_id) a.*
		FROM moderation_actions a
		JOIN users u ON u.id = a.target_user_id AND u.is_banned
		WHERE a.action_type = 'ban'
		  AND a.expires_at IS NOT NULL
		  AND a.expires_at <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM moderation_actions later
			WHERE later.target_user_id = a.target_user_id
			  AND later.action_type = 'unban'
			  AND later.created_at > a.created_at
		  )
		ORDER BY a.target_user_id, a.created_at DESC
	`
	var actions []*ModerationAction
	err := r.db.SelectContext(ctx, &actions, query, now)
	return actions, err
}

// --- Appeals ---

func (r *repository) CreateAppeal(ctx context.Context, a *Appeal) error {
	query := `
		INSERT INTO appeals (id, user_id, moderation_action_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.ModerationActionID, a.Message, a.Status, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAppeal
		}
		return fmt.Errorf("moderation repository create appeal: %w", err)
	}
	return nil
}

func (r *repository) GetAppealByID(ctx context.Context, id uuid.UUID) (*Appeal, error) {
	var a Appeal
	err := r.db.GetContext(ctx, &a, `SELECT * FROM appeals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("moderation repository get appeal: %w", err)
	}
	return &a, nil
}

func (r *repository) ListAppealsByUser(ctx context.Context, userID uuid.UUID) ([]*Appeal, error) {
	query := `
		SELECT * FROM appeals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var appeals []*Appeal
	err := r.db.SelectContext(ctx, &appeals, query, userID)
	return appeals, err
}

func (r *repository) ListPendingAppeals(ctx context.Context, limit, offset int) ([]*Appeal, error) {
	query := `
		SELECT * FROM appeals
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`
	var appeals []*Appeal
	err := r.db.SelectContext(ctx, &appeals, query, limit, offset)
	return appeals, err
}

func (r *repository) UpdateAppealReview(ctx context.Context, id uuid.UUID, status AppealStatus, reviewedBy uuid.UUID, adminResponse string) error {
	query := `
		UPDATE appeals
		SET status = $2, reviewed_by = $3, admin_response = $4, reviewed_at = NOW()
		WHERE id = $1
	`
	var respArg sql.NullString
	if adminResponse != "" {
		respArg = sql.NullString{String: adminResponse, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, respArg)
	if err != nil {
		return fmt.Errorf("moderation repository update appeal: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrAppealNotFound
	}
	return nil
}

func (r *repository) SweepExpiredAppeals(ctx context.Context, cutoff time.Time, systemResponse string) (int64, error) {
	query := `
		UPDATE appeals
		SET status = 'denied', admin_response = $2, reviewed_by = NULL, reviewed_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, cutoff, systemResponse)
	if err != nil {
		return 0, fmt.Errorf("moderation repository sweep appeals: %w", err)
	}
	return result.RowsAffected()
}

// --- Blocked words ---

func (r *repository) CreateWord(ctx context.Context, w *BlockedWord) error {
	query := `
		INSERT INTO blocked_words (id, word, severity, added_by, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.Word, w.Severity, w.AddedBy, w.IsActive, w.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateWord
		}
		return fmt.Errorf("moderation repository create word: %w", err)
	}
	return nil
}

func (r *repository) ListActiveWords(ctx context.Context) ([]*BlockedWord, error) {
	var words []*BlockedWord
	err := r.db.SelectContext(ctx, &words,
		`SELECT * FROM blocked_words WHERE is_active ORDER BY word`)
	return words, err
}

func (r *repository) ListWords(ctx context.Context) ([]*BlockedWord, error) {
	var words []*BlockedWord
	err := r.db.SelectContext(ctx, &words,
		`SELECT * FROM blocked_words ORDER BY word`)
	return words, err
}

func (r *repository) DeactivateWord(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE blocked_words SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("moderation repository deactivate word: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrWordNotFound
	}
	return nil
}

// --- Stats ---

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats

	err := r.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')   AS flags_pending,
			COUNT(*) FILTER (WHERE status = 'upheld')    AS flags_upheld,
			COUNT(*) FILTER (WHERE status = 'dismissed') AS flags_dismissed
		FROM flags
	`)
	if err != nil {
		return nil, fmt.Errorf("moderation repository flag stats: %w", err)
	}

	err = r.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) FILTER (WHERE action_type = 'warning')         AS warnings,
			COUNT(*) FILTER (WHERE action_type = 'ban')             AS bans,
			COUNT(*) FILTER (WHERE action_type = 'unban')           AS unbans,
			COUNT(*) FILTER (WHERE action_type = 'content_removal') AS content_removals
		FROM moderation_actions
	`)
	if err != nil {
		return nil, fmt.Errorf("moderation repository action stats: %w", err)
	}

	err = r.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')  AS appeals_pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS appeals_approved,
			COUNT(*) FILTER (WHERE status = 'denied')   AS appeals_denied
		FROM appeals
	`)
	if err != nil {
		return nil, fmt.Errorf("moderation repository appeal stats: %w", err)
	}

	s.FillRates()
	return &s, nil
}

// FillRates derives the success rates from the raw counts so that flag and
// appeal statistics always come from the same underlying numbers.
func (s *Stats) FillRates() {
	if resolved := s.FlagsUpheld + s.FlagsDismissed; resolved > 0 {
		s.UpholdRate = float64(s.FlagsUpheld) / float64(resolved)
	}
	if resolved := s.AppealsApproved + s.AppealsDenied; resolved > 0 {
		s.AppealApprovalRate = float64(s.AppealsApproved) / float64(resolved)
	}
}
