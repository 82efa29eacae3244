package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountKind distinguishes the funding account from digital envelopes.
type AccountKind string

// Account kinds.
const (
	KindPrimary AccountKind = "PRIMARY"
	KindDigital AccountKind = "DIGITAL"
)

// OverspendRule controls what happens when a payment would exceed an
// envelope's balance. Enforced server-side; the client only uses it to
// refuse obviously blocked payments before making a network call.
type OverspendRule string

// Overspend rules.
const (
	OverspendAllow OverspendRule = "ALLOW"
	OverspendWarn  OverspendRule = "WARN"
	OverspendBlock OverspendRule = "BLOCK"
)

// RolloverRule controls what happens to unspent envelope funds at the end
// of a budget period.
type RolloverRule string

// Rollover rules.
const (
	RolloverKeep   RolloverRule = "ROLLOVER"
	RolloverReturn RolloverRule = "RETURN"
)

// AccountSnapshot is the server's view of an account at fetch time.
// Limit of zero means the account is unlimited.
type AccountSnapshot struct {
	ID            string
	Name          string
	Kind          AccountKind
	CategoryLabel string
	OverspendRule OverspendRule
	RolloverRule  RolloverRule
	Balance       decimal.Decimal
	Limit         decimal.Decimal
}

// Spent returns how much of the account's limit has been consumed,
// never negative. Only meaningful for limited DIGITAL accounts.
func (a AccountSnapshot) Spent() decimal.Decimal {
	spent := a.Limit.Sub(a.Balance)
	if spent.Sign() < 0 {
		return decimal.Zero
	}
	return spent
}

// IsBudgeted reports whether the account participates in the category
// breakdown: a DIGITAL account with a positive limit.
func (a AccountSnapshot) IsBudgeted() bool {
	return a.Kind == KindDigital && a.Limit.Sign() > 0
}

// Validate checks the snapshot for fields the client depends on.
func (a *AccountSnapshot) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account ID is required")
	}
	switch a.Kind {
	case KindPrimary, KindDigital:
	default:
		return fmt.Errorf("unknown account kind: %q", a.Kind)
	}
	if a.Balance.Sign() < 0 {
		return fmt.Errorf("account %s has negative balance", a.ID)
	}
	if a.Limit.Sign() < 0 {
		return fmt.Errorf("account %s has negative limit", a.ID)
	}
	return nil
}
