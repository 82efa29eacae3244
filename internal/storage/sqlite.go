// Package storage provides the local cache for report snapshots and the
// pending top-up queue.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrStaleSnapshot is returned when a report snapshot loses the race
// against a fetch that started later but finished first.
var ErrStaleSnapshot = errors.New("report snapshot is stale")

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// NextFetchSeq reserves the next fetch sequence number. Callers take a
// sequence before issuing a report fetch so that out-of-order
// completions can be detected when the result is saved.
func (s *SQLiteStorage) NextFetchSeq(ctx context.Context) (uint64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var seq uint64
	err := s.db.QueryRowContext(ctx,
		`UPDATE fetch_counter SET seq = seq + 1 WHERE id = 1 RETURNING seq`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance fetch sequence: %w", err)
	}
	return seq, nil
}

// SaveReportSnapshot replaces the cached report if the snapshot is newer
// than what is stored. A snapshot whose fetch started before the cached
// one is rejected with ErrStaleSnapshot instead of overwriting fresher
// data.
func (s *SQLiteStorage) SaveReportSnapshot(ctx context.Context, snap service.ReportSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var storedSeq uint64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM report_meta WHERE id = 1`).Scan(&storedSeq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read snapshot sequence: %w", err)
	}
	if snap.Seq <= storedSeq {
		return fmt.Errorf("%w: seq %d <= stored %d", ErrStaleSnapshot, snap.Seq, storedSeq)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_transactions`); err != nil {
		return fmt.Errorf("failed to clear cached transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_accounts`); err != nil {
		return fmt.Errorf("failed to clear cached accounts: %w", err)
	}

	for _, txn := range snap.Report.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cached_transactions (id, type, account_label, amount, status, occurred_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			txn.ID, string(txn.Type), txn.AccountLabel, txn.Amount.String(),
			string(txn.Status), txn.OccurredAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to cache transaction %s: %w", txn.ID, err)
		}
	}

	for _, acc := range snap.Report.Accounts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cached_accounts
			 (id, name, kind, category, balance, limit_amount, overspend_rule, rollover_rule)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			acc.ID, acc.Name, string(acc.Kind), acc.CategoryLabel,
			acc.Balance.String(), acc.Limit.String(),
			string(acc.OverspendRule), string(acc.RolloverRule))
		if err != nil {
			return fmt.Errorf("failed to cache account %s: %w", acc.ID, err)
		}
	}

	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO report_meta (id, seq, fetched_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET seq = excluded.seq, fetched_at = excluded.fetched_at`,
		snap.Seq, fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to update snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LatestReportSnapshot returns the cached report, or nil when nothing
// has been cached yet.
func (s *SQLiteStorage) LatestReportSnapshot(ctx context.Context) (*service.ReportSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var snap service.ReportSnapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, fetched_at FROM report_meta WHERE id = 1`,
	).Scan(&snap.Seq, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, account_label, amount, status, occurred_at
		 FROM cached_transactions ORDER BY occurred_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var txn model.Transaction
		var txType, status, amount string
		if err := rows.Scan(&txn.ID, &txType, &txn.AccountLabel, &amount, &status, &txn.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached transaction: %w", err)
		}
		txn.Type = model.TransactionType(txType)
		txn.Status = model.TransactionStatus(status)
		txn.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt cached amount %q: %w", amount, err)
		}
		snap.Report.Transactions = append(snap.Report.Transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cached transactions: %w", err)
	}

	accRows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, category, balance, limit_amount, overspend_rule, rollover_rule
		 FROM cached_accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached accounts: %w", err)
	}
	defer func() { _ = accRows.Close() }()

	for accRows.Next() {
		var acc model.AccountSnapshot
		var kind, overspend, rollover, balance, limit string
		if err := accRows.Scan(&acc.ID, &acc.Name, &kind, &acc.CategoryLabel,
			&balance, &limit, &overspend, &rollover); err != nil {
			return nil, fmt.Errorf("failed to scan cached account: %w", err)
		}
		acc.Kind = model.AccountKind(kind)
		acc.OverspendRule = model.OverspendRule(overspend)
		acc.RolloverRule = model.RolloverRule(rollover)
		if acc.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("corrupt cached balance %q: %w", balance, err)
		}
		if acc.Limit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("corrupt cached limit %q: %w", limit, err)
		}
		snap.Report.Accounts = append(snap.Report.Accounts, acc)
	}
	if err := accRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cached accounts: %w", err)
	}

	return &snap, nil
}
