package moderation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SystemActor is the admin id recorded on actions taken without a human
// reviewer (automatic critical path, sweeps).
var SystemActor = uuid.Nil

// FlagReason represents the category of a flag
type FlagReason string

const (
	FlagReasonSpam          FlagReason = "spam"
	FlagReasonScam          FlagReason = "scam"
	FlagReasonInappropriate FlagReason = "inappropriate"
	FlagReasonProhibited    FlagReason = "prohibited"
	FlagReasonCounterfeit   FlagReason = "counterfeit"
	FlagReasonOther         FlagReason = "other"
)

// FlagStatus represents the status of a flag
type FlagStatus string

const (
	FlagStatusPending   FlagStatus = "pending"
	FlagStatusUpheld    FlagStatus = "upheld"
	FlagStatusDismissed FlagStatus = "dismissed"
)

// Flag represents a user report against a listing. One flag per
// (listing, reporter) pair, enforced by a storage unique constraint.
type Flag struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	ListingID   uuid.UUID      `db:"listing_id" json:"listing_id"`
	ReporterID  uuid.UUID      `db:"reporter_id" json:"reporter_id"`
	Reason      FlagReason     `db:"reason" json:"reason"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	Status      FlagStatus     `db:"status" json:"status"`
	// Risk score snapshot taken at submission; orders the review queue.
	RiskScore   int            `db:"risk_score" json:"risk_score"`
	ReviewedBy  uuid.NullUUID  `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNotes sql.NullString `db:"review_notes" json:"review_notes,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	ReviewedAt  sql.NullTime   `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// ActionType represents a ledger entry type
type ActionType string

const (
	ActionWarning        ActionType = "warning"
	ActionBan            ActionType = "ban"
	ActionUnban          ActionType = "unban"
	ActionContentRemoval ActionType = "content_removal"
)

// ModerationAction is an immutable ledger entry. The ledger is append-only:
// a ban reversal is a new unban entry, never a mutation of the ban entry.
type ModerationAction struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	TargetUserID    uuid.UUID     `db:"target_user_id" json:"target_user_id"`
	TargetListingID uuid.NullUUID `db:"target_listing_id" json:"target_listing_id,omitempty"`
	// AdminID is SystemActor for actions taken without a human reviewer.
	AdminID      uuid.UUID     `db:"admin_id" json:"admin_id"`
	ActionType   ActionType    `db:"action_type" json:"action_type"`
	Reason       string        `db:"reason" json:"reason"`
	DurationDays sql.NullInt32 `db:"duration_days" json:"duration_days,omitempty"`
	ExpiresAt    sql.NullTime  `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// IsBan returns true for ban entries
func (a *ModerationAction) IsBan() bool {
	return a.ActionType == ActionBan
}

// AppealStatus represents the status of an appeal
type AppealStatus string

const (
	AppealStatusPending  AppealStatus = "pending"
	AppealStatusApproved AppealStatus = "approved"
	AppealStatusDenied   AppealStatus = "denied"
)

// Appeal contests a ledger entry. One appeal per (action, user) pair,
// enforced by a storage unique constraint.
type Appeal struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	UserID             uuid.UUID      `db:"user_id" json:"user_id"`
	ModerationActionID uuid.UUID      `db:"moderation_action_id" json:"moderation_action_id"`
	Message            string         `db:"message" json:"message"`
	Status             AppealStatus   `db:"status" json:"status"`
	AdminResponse      sql.NullString `db:"admin_response" json:"admin_response,omitempty"`
	// ReviewedBy stays NULL for sweep denials.
	ReviewedBy uuid.NullUUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt sql.NullTime  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// Deadline returns the last instant at which the appeal may still be
// reviewed, enforced at review time rather than only at creation.
func (a *Appeal) Deadline(deadlineDays int) time.Time {
	return a.CreatedAt.AddDate(0, 0, deadlineDays)
}

// WordSeverity represents blocked-word severity
type WordSeverity string

const (
	WordSeverityWarning WordSeverity = "warning"
	WordSeverityBlock   WordSeverity = "block"
)

// BlockedWord is a filter configuration entry. Words are stored normalized
// (lower case, trimmed) and unique.
type BlockedWord struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	Word      string       `db:"word" json:"word"`
	Severity  WordSeverity `db:"severity" json:"severity"`
	AddedBy   uuid.UUID    `db:"added_by" json:"added_by"`
	IsActive  bool         `db:"is_active" json:"is_active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
