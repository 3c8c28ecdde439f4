package moderation

import "github.com/google/uuid"

// SubmitFlagRequest represents a request to flag a listing
type SubmitFlagRequest struct {
	ListingID   uuid.UUID  `json:"listing_id" validate:"required"`
	Reason      FlagReason `json:"reason" validate:"required,flag_reason"`
	Description string     `json:"description,omitempty" validate:"max=1000"`
}

// ReviewFlagRequest represents an admin decision on a flag
type ReviewFlagRequest struct {
	Decision string `json:"decision" validate:"required,oneof=uphold dismiss"`
	Notes    string `json:"notes,omitempty" validate:"max=1000"`
}

// SubmitAppealRequest represents a request to contest a ledger entry
type SubmitAppealRequest struct {
	ModerationActionID uuid.UUID `json:"moderation_action_id" validate:"required"`
	Message            string    `json:"message" validate:"required"`
}

// ReviewAppealRequest represents an admin decision on an appeal
type ReviewAppealRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve deny"`
	Response string `json:"response,omitempty"`
}

// AddWordRequest represents a request to add a blocked word
type AddWordRequest struct {
	Word     string       `json:"word" validate:"required"`
	Severity WordSeverity `json:"severity" validate:"required,word_severity"`
}

// PendingFlagView is a queue entry enriched with priority and SLA for the
// dashboard
type PendingFlagView struct {
	*Flag
	Priority string `json:"priority"`
	SLAHours int    `json:"sla_hours"`
}
