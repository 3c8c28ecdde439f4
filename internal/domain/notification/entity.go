package notification

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type represents notification type (matches notification_type enum)
type Type string

const (
	TypeWarning        Type = "moderation_warning"
	TypeBan            Type = "moderation_ban"
	TypeUnban          Type = "moderation_unban"
	TypeContentRemoved Type = "content_removed"
	TypeAppealDecision Type = "appeal_decision"
)

// Notification represents a persisted user notification
type Notification struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Type      Type           `db:"type" json:"type"`
	Title     string         `db:"title" json:"title"`
	Body      sql.NullString `db:"body" json:"body,omitempty"`
	Data      []byte         `db:"data" json:"-"`
	IsRead    bool           `db:"is_read" json:"is_read"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Data carried alongside moderation notifications
type EventData struct {
	ActionID  *uuid.UUID `json:"action_id,omitempty"`
	ListingID *uuid.UUID `json:"listing_id,omitempty"`
	AppealID  *uuid.UUID `json:"appeal_id,omitempty"`
}

// SetData marshals event data into the row
func (n *Notification) SetData(data *EventData) {
	if data == nil {
		return
	}
	if b, err := json.Marshal(data); err == nil {
		n.Data = b
	}
}
