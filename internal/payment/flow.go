// Package payment implements the external top-up confirmation flow: hand
// the user to a checkout page, then resolve the attempt through an
// idempotent verification endpoint once the user returns.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"
)

// MinimumTopUp is the smallest amount the processor accepts, in KES.
var MinimumTopUp = decimal.NewFromInt(100)

// State is the lifecycle position of the flow.
type State string

// Flow states.
const (
	StateIdle       State = "idle"
	StateInitiating State = "initiating"
	StateAwaiting   State = "awaiting_external_completion"
	StateVerifying  State = "verifying"
	StateVerified   State = "verified"
	StateFailed     State = "verification_failed"
)

// Gateway is the slice of the backend the flow needs.
type Gateway interface {
	InitiateTopUp(ctx context.Context, amount decimal.Decimal) (model.TopUpInit, error)
	VerifyTopUp(ctx context.Context, reference string) (model.VerificationResult, error)
}

// Queue persists pending top-up attempts so an unresolved reference
// survives restarts and is never silently orphaned by a newer attempt.
type Queue interface {
	EnqueueTopUp(ctx context.Context, topup model.PendingTopUp) error
	GetTopUp(ctx context.Context, reference string) (*model.PendingTopUp, error)
	ListPendingTopUps(ctx context.Context) ([]model.PendingTopUp, error)
	ResolveTopUp(ctx context.Context, reference string, status model.TopUpStatus) error
}

// Flow drives a top-up from initiation through verification.
type Flow struct {
	gateway   Gateway
	queue     Queue
	logger    *slog.Logger
	inflight  map[string]*verifyCall
	state     State
	reference string
	retryOpts service.RetryOptions
	mu        sync.Mutex
}

// New creates a flow. Verification retries transient failures with
// exponential backoff; pass zero options for the defaults.
func New(gateway Gateway, queue Queue, retryOpts service.RetryOptions) *Flow {
	if retryOpts.MaxAttempts <= 0 {
		retryOpts = service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		}
	}
	return &Flow{
		gateway:   gateway,
		queue:     queue,
		retryOpts: retryOpts,
		state:     StateIdle,
		inflight:  make(map[string]*verifyCall),
		logger:    slog.Default().With("component", "payment"),
	}
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reference returns the reference of the most recent attempt, if any.
func (f *Flow) Reference() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reference
}

// InitiateTopUp validates the amount, requests a checkout URL from the
// backend, and records the reference as pending. Validation failures
// never reach the network.
func (f *Flow) InitiateTopUp(ctx context.Context, amount decimal.Decimal) (model.TopUpInit, error) {
	if amount.Sign() <= 0 {
		return model.TopUpInit{}, common.NewUserError("Please enter a valid amount", common.ErrInvalidAmount)
	}
	if amount.LessThan(MinimumTopUp) {
		return model.TopUpInit{}, common.NewUserError(
			fmt.Sprintf("Minimum top-up amount is KES %s", MinimumTopUp), common.ErrInvalidAmount)
	}

	f.setState(StateInitiating, "")

	init, err := f.gateway.InitiateTopUp(ctx, amount)
	if err != nil {
		f.setState(StateIdle, "")
		return model.TopUpInit{}, fmt.Errorf("failed to initiate top-up: %w", err)
	}

	if err := f.queue.EnqueueTopUp(ctx, model.PendingTopUp{
		Reference: init.Reference,
		Amount:    amount,
		Status:    model.TopUpPending,
		CreatedAt: time.Now(),
	}); err != nil {
		// The checkout is already live; losing the local record is worse
		// than a dirty queue, so surface but keep going.
		f.logger.Warn("failed to record pending top-up", "reference", init.Reference, "error", err)
	}

	f.setState(StateAwaiting, init.Reference)
	f.logger.Info("top-up initiated", "reference", init.Reference, "amount", amount)

	return init, nil
}

// Verify resolves a top-up attempt. It is safe to call more than once
// for the same reference: concurrent duplicates (a deep-link callback
// racing a manual confirmation) share a single backend call, and a
// repeat after success reports already_processed rather than applying
// the payment twice. A settled result clears the pending record and
// means the caller should refresh the balance from the backend; it is
// never adjusted locally.
func (f *Flow) Verify(ctx context.Context, reference string) (model.VerificationResult, error) {
	if reference == "" {
		return model.VerificationResult{}, fmt.Errorf("verification reference is required")
	}

	f.mu.Lock()
	if call, ok := f.inflight[reference]; ok {
		// Another trigger beat us to it; wait for its result.
		f.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return model.VerificationResult{}, ctx.Err()
		}
	}
	call := &verifyCall{done: make(chan struct{})}
	f.inflight[reference] = call
	f.state = StateVerifying
	f.reference = reference
	f.mu.Unlock()

	call.result, call.err = f.verifyOnce(ctx, reference)

	f.mu.Lock()
	delete(f.inflight, reference)
	if call.err == nil && call.result.Outcome.Settled() {
		f.state = StateVerified
	} else {
		f.state = StateFailed
	}
	f.mu.Unlock()
	close(call.done)

	if call.err != nil {
		return model.VerificationResult{}, call.err
	}
	return call.result, nil
}

// verifyCall deduplicates concurrent verification triggers for the same
// reference: the first caller performs the request, later callers wait
// on done and share the outcome.
type verifyCall struct {
	done   chan struct{}
	err    error
	result model.VerificationResult
}

func (f *Flow) verifyOnce(ctx context.Context, reference string) (model.VerificationResult, error) {
	var result model.VerificationResult

	err := common.WithRetry(ctx, func() error {
		var verifyErr error
		result, verifyErr = f.gateway.VerifyTopUp(ctx, reference)
		if verifyErr != nil && !common.IsRetryable(verifyErr) {
			return &common.RetryableError{Err: verifyErr, Retryable: false}
		}
		return verifyErr
	}, f.retryOpts)
	if err != nil {
		// Transient failure: keep the reference so the user can retry.
		f.logger.Warn("verification failed", "reference", reference, "error", err)
		return model.VerificationResult{}, common.NewUserError(
			"Failed to verify payment. Please contact support if you were charged", err)
	}

	if result.Outcome.Settled() {
		if err := f.queue.ResolveTopUp(ctx, reference, model.TopUpVerified); err != nil &&
			!errors.Is(err, common.ErrNotFound) {
			f.logger.Warn("failed to mark top-up verified", "reference", reference, "error", err)
		}
		f.logger.Info("top-up verified", "reference", reference,
			"outcome", result.Outcome, "amount", result.Amount)
		return result, nil
	}

	// The backend answered, but the payment did not go through. The
	// pending record stays for manual re-verification.
	f.logger.Warn("payment not verified", "reference", reference, "message", result.Message)
	return result, nil
}

// Abandon gives up on a pending attempt. The reference stays in the
// queue, marked so it no longer shows as actionable.
func (f *Flow) Abandon(ctx context.Context, reference string) error {
	if err := f.queue.ResolveTopUp(ctx, reference, model.TopUpAbandoned); err != nil {
		return fmt.Errorf("failed to abandon top-up %s: %w", reference, err)
	}
	f.setState(StateIdle, "")
	return nil
}

// Pending lists unresolved attempts, oldest first.
func (f *Flow) Pending(ctx context.Context) ([]model.PendingTopUp, error) {
	return f.queue.ListPendingTopUps(ctx)
}

func (f *Flow) setState(s State, reference string) {
	f.mu.Lock()
	f.state = s
	f.reference = reference
	f.mu.Unlock()
}
