package listing

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status represents listing lifecycle state (matches listing_status enum)
type Status string

const (
	StatusActive  Status = "active"
	StatusSold    Status = "sold"
	StatusRemoved Status = "removed"
)

// Listing represents a marketplace listing. Listings are owned by the
// listings subsystem; the trust engine reads them and may flip status.
type Listing struct {
	ID          uuid.UUID      `db:"id"`
	OwnerID     uuid.UUID      `db:"owner_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Category    string         `db:"category"`
	Price       float64        `db:"price"`
	Status      Status         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Text returns the scannable content of the listing, title first.
func (l *Listing) Text() (title, body string) {
	return l.Title, l.Description.String
}
