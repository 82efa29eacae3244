package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IncomeFrequency is how often a scheduled income pays out.
type IncomeFrequency string

// Income frequencies.
const (
	FrequencyWeekly   IncomeFrequency = "WEEKLY"
	FrequencyBiweekly IncomeFrequency = "BIWEEKLY"
	FrequencyMonthly  IncomeFrequency = "MONTHLY"
)

// IncomeSchedule is a recurring income source credited to an account.
type IncomeSchedule struct {
	NextPayout time.Time
	ID         string
	SourceName string
	AccountID  string
	Frequency  IncomeFrequency
	Amount     decimal.Decimal
}

// Validate checks the schedule before it is sent to the backend.
func (s *IncomeSchedule) Validate() error {
	if s.SourceName == "" {
		return fmt.Errorf("income source name is required")
	}
	if s.AccountID == "" {
		return fmt.Errorf("income account is required")
	}
	if s.Amount.Sign() <= 0 {
		return fmt.Errorf("income amount must be positive, got %s", s.Amount)
	}
	switch s.Frequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return fmt.Errorf("unknown income frequency: %q", s.Frequency)
	}
	return nil
}

// Interval returns the time between payouts. Monthly intervals use the
// calendar month of the given reference date.
func (f IncomeFrequency) Interval(from time.Time) time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyBiweekly:
		return 14 * 24 * time.Hour
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0).Sub(from)
	default:
		return 0
	}
}
