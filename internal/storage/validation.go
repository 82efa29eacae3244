package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pesawallet/pesa/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidTopUp = errors.New("invalid top-up")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePendingTopUp validates a top-up before it enters the queue.
func validatePendingTopUp(topup *model.PendingTopUp) error {
	if strings.TrimSpace(topup.Reference) == "" {
		return fmt.Errorf("%w: reference is required", ErrInvalidTopUp)
	}
	if topup.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTopUp)
	}
	switch topup.Status {
	case model.TopUpPending, model.TopUpVerified, model.TopUpAbandoned, "":
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTopUp, topup.Status)
	}
	return nil
}

// validateTopUpStatus validates a resolution status.
func validateTopUpStatus(status model.TopUpStatus) error {
	switch status {
	case model.TopUpVerified, model.TopUpAbandoned:
		return nil
	default:
		return fmt.Errorf("%w: cannot resolve to status %q", ErrInvalidTopUp, status)
	}
}
