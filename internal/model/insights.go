package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendDirection says whether spending moved up or down between the two
// halves of the month.
type TrendDirection string

// Trend directions.
const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
)

// TopCategory is the category with the highest expense total.
type TopCategory struct {
	Name                string
	Amount              decimal.Decimal
	PercentageOfExpense float64
}

// SpendingTrend compares first-half and second-half spending of the month.
type SpendingTrend struct {
	Direction  TrendDirection
	Percentage float64
}

// WeeklyBucket is one day of the trailing seven-day spend histogram.
type WeeklyBucket struct {
	Date   time.Time
	Label  string
	Amount decimal.Decimal
}

// CategoryUsage is one row of the per-envelope budget breakdown.
type CategoryUsage struct {
	Name           string
	Category       string
	Spent          decimal.Decimal
	Budget         decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed float64
}

// DerivedInsights is everything the client computes from a report fetch.
// Recomputed in full every time; never persisted across sessions.
type DerivedInsights struct {
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	NetChange         decimal.Decimal
	TransactionCount  int
	TopCategory       *TopCategory
	SpendingTrend     SpendingTrend
	WeeklyBuckets     []WeeklyBucket
	CategoryBreakdown []CategoryUsage
}
