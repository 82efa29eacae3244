// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
)

// Report is the raw payload of a reports fetch: last month's transactions
// plus current account snapshots. Input to the insight aggregator.
type Report struct {
	Transactions []model.Transaction
	Accounts     []model.AccountSnapshot
}

// ReportSnapshot is a cached report tagged with the fetch sequence that
// produced it. Sequence numbers are monotonically increasing; the cache
// refuses writes from fetches that completed out of order.
type ReportSnapshot struct {
	FetchedAt time.Time
	Report    Report
	Seq       uint64
}

// Backend is the contract for the PesaWallet REST API consumed by the
// client. Implemented by the api package; faked in tests.
type Backend interface {
	// Session
	Login(ctx context.Context, username, password string) (model.User, string, error)
	Register(ctx context.Context, username, email, phone, password string) error
	UpdateProfile(ctx context.Context, fields map[string]string) (model.User, error)

	// Accounts and envelopes
	Accounts(ctx context.Context) ([]model.AccountSnapshot, error)
	CreateEnvelope(ctx context.Context, env model.AccountSnapshot) (model.AccountSnapshot, error)
	DeleteEnvelope(ctx context.Context, id string) error

	// Reports
	Report(ctx context.Context) (Report, error)

	// Payments
	Pay(ctx context.Context, req PaymentRequest) error
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error
	Allocate(ctx context.Context, envelopeID string, amount decimal.Decimal) error

	// Top-ups
	InitiateTopUp(ctx context.Context, amount decimal.Decimal) (model.TopUpInit, error)
	VerifyTopUp(ctx context.Context, reference string) (model.VerificationResult, error)

	// Income schedules
	Incomes(ctx context.Context) ([]model.IncomeSchedule, error)
	CreateIncome(ctx context.Context, inc model.IncomeSchedule) (model.IncomeSchedule, error)
	UpdateIncome(ctx context.Context, inc model.IncomeSchedule) (model.IncomeSchedule, error)
	DeleteIncome(ctx context.Context, id string) error

	// Notifications
	Notifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error

	// Admin
	Overview(ctx context.Context) (model.OverviewStats, error)
	Users(ctx context.Context) ([]model.User, error)
}

// PaymentRequest describes an outgoing M-Pesa style payment.
type PaymentRequest struct {
	FromAccountID string
	ToNumber      string
	AccountNumber string // paybill account reference, empty for till payments
	Description   string
	Amount        decimal.Decimal
}

// Storage defines the contract for the local cache and pending-top-up
// queue.
type Storage interface {
	// Report cache
	NextFetchSeq(ctx context.Context) (uint64, error)
	SaveReportSnapshot(ctx context.Context, snap ReportSnapshot) error
	LatestReportSnapshot(ctx context.Context) (*ReportSnapshot, error)

	// Pending top-up queue
	EnqueueTopUp(ctx context.Context, topup model.PendingTopUp) error
	GetTopUp(ctx context.Context, reference string) (*model.PendingTopUp, error)
	ListPendingTopUps(ctx context.Context) ([]model.PendingTopUp, error)
	ResolveTopUp(ctx context.Context, reference string, status model.TopUpStatus) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
