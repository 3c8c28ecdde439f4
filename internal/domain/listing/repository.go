package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a listing does not exist
var ErrNotFound = errors.New("listing not found")

// Repository defines listing data access used by the trust engine
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new listing repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	query := `
		SELECT id, owner_id, title, description, category, price, status, created_at, updated_at
		FROM listings WHERE id = $1
	`
	var l Listing
	if err := r.db.GetContext(ctx, &l, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing repository get: %w", err)
	}
	return &l, nil
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `UPDATE listings SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("listing repository set status: %w", err)
	}
	return nil
}
