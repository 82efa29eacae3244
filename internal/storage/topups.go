package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
)

// EnqueueTopUp records a new top-up attempt before the user is sent to
// the external checkout. Recording first means a crash between initiate
// and verify still leaves a reference to recover.
func (s *SQLiteStorage) EnqueueTopUp(ctx context.Context, topup model.PendingTopUp) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePendingTopUp(&topup); err != nil {
		return err
	}

	status := topup.Status
	if status == "" {
		status = model.TopUpPending
	}
	createdAt := topup.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_topups (reference, amount, status, created_at)
		 VALUES (?, ?, ?, ?)`,
		topup.Reference, topup.Amount.String(), string(status), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to enqueue top-up %s: %w", topup.Reference, err)
	}
	return nil
}

// GetTopUp returns a top-up by reference.
func (s *SQLiteStorage) GetTopUp(ctx context.Context, reference string) (*model.PendingTopUp, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(reference, "reference"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT reference, amount, status, created_at
		 FROM pending_topups WHERE reference = ?`, reference)

	topup, err := scanTopUp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("top-up %s: %w", reference, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get top-up %s: %w", reference, err)
	}
	return topup, nil
}

// ListPendingTopUps returns unresolved top-ups, oldest first.
func (s *SQLiteStorage) ListPendingTopUps(ctx context.Context) ([]model.PendingTopUp, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT reference, amount, status, created_at
		 FROM pending_topups WHERE status = ? ORDER BY created_at ASC`,
		string(model.TopUpPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending top-ups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var topups []model.PendingTopUp
	for rows.Next() {
		topup, scanErr := scanTopUp(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan pending top-up: %w", scanErr)
		}
		topups = append(topups, *topup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending top-ups: %w", err)
	}
	return topups, nil
}

// ResolveTopUp marks a pending top-up as verified or abandoned. Resolving
// an already resolved or unknown reference is an error.
func (s *SQLiteStorage) ResolveTopUp(ctx context.Context, reference string, status model.TopUpStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(reference, "reference"); err != nil {
		return err
	}
	if err := validateTopUpStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE pending_topups SET status = ?, resolved_at = ?
		 WHERE reference = ? AND status = ?`,
		string(status), time.Now().UTC(), reference, string(model.TopUpPending))
	if err != nil {
		return fmt.Errorf("failed to resolve top-up %s: %w", reference, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check top-up resolution: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no pending top-up %s: %w", reference, common.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopUp(row rowScanner) (*model.PendingTopUp, error) {
	var topup model.PendingTopUp
	var amount, status string
	if err := row.Scan(&topup.Reference, &amount, &status, &topup.CreatedAt); err != nil {
		return nil, err
	}
	topup.Status = model.TopUpStatus(status)
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt top-up amount %q: %w", amount, err)
	}
	topup.Amount = parsed
	return &topup, nil
}
