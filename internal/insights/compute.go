// Package insights derives spending metrics from fetched transactions and
// account snapshots. Everything here is pure computation: no I/O, no
// clocks (the reference time is injected), deterministic for a given
// input.
package insights

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
)

// TrendSplit selects how transactions are divided into the two monthly
// halves for the spending trend.
type TrendSplit string

const (
	// TrendSplitCalendar splits at day 15 of the reference month,
	// regardless of which month a transaction occurred in. This is the
	// legacy behavior.
	TrendSplitCalendar TrendSplit = "calendar"
	// TrendSplitOwnMonth buckets each transaction by the half of its own
	// month.
	TrendSplitOwnMonth TrendSplit = "own-month"
)

// Options configures a computation.
type Options struct {
	// Now is the reference time for the trend split and weekly buckets.
	// The zero value means time.Now().
	Now time.Time
	// TrendSplit defaults to TrendSplitOwnMonth.
	TrendSplit TrendSplit
}

// Compute folds transactions and account snapshots into derived insights.
// Transfers are excluded from income and expense totals. Every percentage
// is guarded: a zero denominator yields exactly 0, never NaN or Inf.
func Compute(txns []model.Transaction, accounts []model.AccountSnapshot, opts Options) model.DerivedInsights {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	split := opts.TrendSplit
	if split == "" {
		split = TrendSplitOwnMonth
	}

	var out model.DerivedInsights
	out.TotalIncome = decimal.Zero
	out.TotalExpense = decimal.Zero
	out.TransactionCount = len(txns)

	var expenses []model.Transaction
	for _, txn := range txns {
		switch {
		case txn.IsIncomeLike():
			out.TotalIncome = out.TotalIncome.Add(txn.Amount)
		case txn.IsExpenseLike():
			out.TotalExpense = out.TotalExpense.Add(txn.Amount.Abs())
			expenses = append(expenses, txn)
		}
	}
	out.NetChange = out.TotalIncome.Sub(out.TotalExpense)

	out.TopCategory = topCategory(expenses, out.TotalExpense)
	out.SpendingTrend = spendingTrend(expenses, now, split)
	out.WeeklyBuckets = weeklyBuckets(expenses, now)
	out.CategoryBreakdown = categoryBreakdown(accounts)

	return out
}

// topCategory groups expenses by account label, sums absolute amounts,
// and returns the largest group. Nil when there are no expenses.
func topCategory(expenses []model.Transaction, totalExpense decimal.Decimal) *model.TopCategory {
	if len(expenses) == 0 {
		return nil
	}

	totals := make(map[string]decimal.Decimal)
	for _, txn := range expenses {
		label := txn.AccountLabel
		if label == "" {
			label = "Unknown"
		}
		totals[label] = totals[label].Add(txn.Amount.Abs())
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := totals[names[i]], totals[names[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return names[i] < names[j]
	})

	top := names[0]
	return &model.TopCategory{
		Name:                top,
		Amount:              totals[top],
		PercentageOfExpense: percentage(totals[top], totalExpense),
	}
}

// spendingTrend compares spending between the two halves of the month.
func spendingTrend(expenses []model.Transaction, now time.Time, split TrendSplit) model.SpendingTrend {
	firstHalf := decimal.Zero
	secondHalf := decimal.Zero

	midMonth := time.Date(now.Year(), now.Month(), 15, 0, 0, 0, 0, now.Location())

	for _, txn := range expenses {
		var second bool
		switch split {
		case TrendSplitCalendar:
			second = !txn.OccurredAt.Before(midMonth)
		default:
			second = txn.OccurredAt.Day() >= 15
		}
		if second {
			secondHalf = secondHalf.Add(txn.Amount.Abs())
		} else {
			firstHalf = firstHalf.Add(txn.Amount.Abs())
		}
	}

	direction := model.TrendDecreasing
	if secondHalf.GreaterThan(firstHalf) {
		direction = model.TrendIncreasing
	}

	return model.SpendingTrend{
		Direction:  direction,
		Percentage: percentage(secondHalf.Sub(firstHalf).Abs(), firstHalf),
	}
}

// weeklyBuckets sums expenses per calendar day for the trailing seven
// days ending today, oldest first. Labels are the actual weekday of each
// day, not a fixed Mon-Sun order.
func weeklyBuckets(expenses []model.Transaction, now time.Time) []model.WeeklyBucket {
	buckets := make([]model.WeeklyBucket, 7)

	for i := range buckets {
		day := now.AddDate(0, 0, i-6)
		total := decimal.Zero
		for _, txn := range expenses {
			if sameDay(txn.OccurredAt.In(now.Location()), day) {
				total = total.Add(txn.Amount.Abs())
			}
		}
		buckets[i] = model.WeeklyBucket{
			Date:   day,
			Label:  day.Format("Mon"),
			Amount: total,
		}
	}

	return buckets
}

// categoryBreakdown computes budget usage for every limited digital
// account, sorted descending by spent.
func categoryBreakdown(accounts []model.AccountSnapshot) []model.CategoryUsage {
	var breakdown []model.CategoryUsage
	for _, acc := range accounts {
		if !acc.IsBudgeted() {
			continue
		}
		spent := acc.Spent()
		breakdown = append(breakdown, model.CategoryUsage{
			Name:           acc.Name,
			Category:       acc.CategoryLabel,
			Spent:          spent,
			Budget:         acc.Limit,
			Remaining:      acc.Balance,
			PercentageUsed: percentage(spent, acc.Limit),
		})
	}

	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].Spent.Equal(breakdown[j].Spent) {
			return breakdown[i].Spent.GreaterThan(breakdown[j].Spent)
		}
		return breakdown[i].Name < breakdown[j].Name
	})

	return breakdown
}

// percentage returns part/whole*100, or exactly 0 when whole is zero.
func percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	pct, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return pct
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
