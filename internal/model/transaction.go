// Package model defines the core data types shared across the application.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies what kind of movement a transaction represents.
type TransactionType string

// Transaction types as reported by the backend.
const (
	TypeIncome     TransactionType = "INCOME"
	TypeAllocation TransactionType = "ALLOCATION"
	TypeTransfer   TransactionType = "TRANSFER"
	TypePayment    TransactionType = "PAYMENT"
)

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

// Transaction statuses as reported by the backend.
const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusPending TransactionStatus = "PENDING"
	StatusFailed  TransactionStatus = "FAILED"
)

// Transaction is a single movement of funds, read-only once fetched.
// Amount is signed: income-like types are positive, payments negative.
type Transaction struct {
	OccurredAt   time.Time
	ID           string
	AccountLabel string
	Type         TransactionType
	Status       TransactionStatus
	Amount       decimal.Decimal
}

// IsIncomeLike reports whether the transaction counts toward income totals.
func (t Transaction) IsIncomeLike() bool {
	return t.Type != TypeTransfer && t.Amount.Sign() >= 0
}

// IsExpenseLike reports whether the transaction counts toward expense totals.
func (t Transaction) IsExpenseLike() bool {
	return t.Type != TypeTransfer && t.Amount.Sign() < 0
}

// SignedAmount converts the unsigned amount the backend sends into the
// signed form the client works with: INCOME and ALLOCATION stay positive,
// PAYMENT becomes negative, TRANSFER keeps its sign but is excluded from
// income/expense totals.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TypePayment {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Validate checks the transaction for fields the client depends on.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	switch t.Type {
	case TypeIncome, TypeAllocation, TypeTransfer, TypePayment:
	default:
		return fmt.Errorf("unknown transaction type: %q", t.Type)
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("transaction %s has no timestamp", t.ID)
	}
	return nil
}

// DisplayName returns the human-readable name shown for a transaction type.
func (t TransactionType) DisplayName() string {
	switch t {
	case TypeIncome:
		return "Income Added"
	case TypeAllocation:
		return "Funds Allocated"
	case TypeTransfer:
		return "Transfer"
	case TypePayment:
		return "Payment Made"
	default:
		return "Transaction"
	}
}
