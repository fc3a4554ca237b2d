package roundup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of *pgxpool.Pool the repository needs.
type Database interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

// Repository is the Postgres-backed Ledger.
// round_up_requests is unique on (account_id, week_commencing).
type Repository struct {
	db Database
}

// NewRepository creates a new round-up repository
func NewRepository(db Database) *Repository {
	return &Repository{db: db}
}

// Find returns the request for an account and week
func (r *Repository) Find(ctx context.Context, accountID string, week time.Time) (*Request, error) {
	query := `
		SELECT request_id, account_id, week_commencing, status, round_up_amount,
		       created_at, updated_at
		FROM round_up_requests
		WHERE account_id = $1 AND week_commencing = $2
	`
	req := &Request{}
	err := r.db.QueryRow(ctx, query, accountID, week).Scan(
		&req.RequestID, &req.AccountID, &req.WeekCommencing, &req.Status,
		&req.RoundUpAmount, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round-up request: %w", err)
	}
	return req, nil
}

// Save inserts the request for its (account, week). An existing record is only
// overwritten while it is FAILED, and it keeps its request_id; any other existing
// record is left untouched and ErrRequestExists is returned.
func (r *Repository) Save(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO round_up_requests (request_id, account_id, week_commencing, status,
		       round_up_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, week_commencing) DO UPDATE SET
			status = EXCLUDED.status,
			round_up_amount = EXCLUDED.round_up_amount,
			updated_at = EXCLUDED.updated_at
		WHERE round_up_requests.status = 'FAILED'
	`
	tag, err := r.db.Exec(ctx, query,
		req.RequestID, req.AccountID, req.WeekCommencing, string(req.Status),
		req.RoundUpAmount, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save round-up request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestExists
	}
	return nil
}

// UpdateStatusAndAmount sets the status and amount of an existing request
func (r *Repository) UpdateStatusAndAmount(ctx context.Context, accountID string, week time.Time, status Status, amount int64) error {
	query := `
		UPDATE round_up_requests
		SET status = $3, round_up_amount = $4, updated_at = NOW()
		WHERE account_id = $1 AND week_commencing = $2
	`
	tag, err := r.db.Exec(ctx, query, accountID, week, string(status), amount)
	if err != nil {
		return fmt.Errorf("failed to update round-up request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}
