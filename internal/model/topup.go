package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VerificationOutcome is the backend's answer to a top-up verification.
type VerificationOutcome string

// Verification outcomes. AlreadyProcessed is a success: the payment was
// verified by an earlier call and has not been applied twice.
const (
	OutcomeSuccess          VerificationOutcome = "success"
	OutcomeAlreadyProcessed VerificationOutcome = "already_processed"
	OutcomeFailed           VerificationOutcome = "failed"
)

// Settled reports whether the outcome means the payment went through.
func (o VerificationOutcome) Settled() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyProcessed
}

// TopUpInit is the backend's response to initiating a top-up: where to
// send the user, and the reference correlating the attempt.
type TopUpInit struct {
	CheckoutURL string
	Reference   string
}

// VerificationResult is the resolved state of a top-up attempt.
type VerificationResult struct {
	Outcome VerificationOutcome
	Amount  decimal.Decimal
	Message string
}

// TopUpStatus is the local lifecycle of a pending top-up reference.
type TopUpStatus string

// Top-up statuses tracked in the local pending queue.
const (
	TopUpPending   TopUpStatus = "PENDING"
	TopUpVerified  TopUpStatus = "VERIFIED"
	TopUpAbandoned TopUpStatus = "ABANDONED"
)

// PendingTopUp is a locally tracked top-up attempt. Attempts survive
// restarts so an unresolved reference is never silently orphaned.
type PendingTopUp struct {
	CreatedAt time.Time
	Reference string
	Status    TopUpStatus
	Amount    decimal.Decimal
}
