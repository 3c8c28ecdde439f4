package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines user data access. User accounts are owned elsewhere;
// the trust engine only reads them and projects ban state onto them.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// SetBanState flips the ban projection. The moderation ledger is the
	// source of truth; this column is a read-model of it.
	SetBanState(ctx context.Context, id uuid.UUID, banned bool, reason string) error
	IncrementWarningCount(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, role, is_banned, ban_reason, banned_at, warning_count,
		       created_at, updated_at
		FROM users WHERE id = $1
	`
	var u User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repository get: %w", err)
	}
	return &u, nil
}

func (r *repository) SetBanState(ctx context.Context, id uuid.UUID, banned bool, reason string) error {
	var query string
	var err error
	if banned {
		query = `UPDATE users SET is_banned = true, ban_reason = $2, banned_at = NOW(), updated_at = NOW() WHERE id = $1`
		_, err = r.db.ExecContext(ctx, query, id, reason)
	} else {
		query = `UPDATE users SET is_banned = false, ban_reason = NULL, banned_at = NULL, updated_at = NOW() WHERE id = $1`
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("user repository set ban state: %w", err)
	}
	return nil
}

func (r *repository) IncrementWarningCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET warning_count = warning_count + 1, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("user repository increment warnings: %w", err)
	}
	return nil
}
