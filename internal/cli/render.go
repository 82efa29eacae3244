package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
)

const histogramWidth = 30

// FormatAmount renders a KES amount with thousands-friendly precision.
func FormatAmount(amount decimal.Decimal) string {
	return "KES " + amount.StringFixed(2)
}

// FormatSignedAmount colors an amount by direction.
func FormatSignedAmount(amount decimal.Decimal) string {
	if amount.Sign() < 0 {
		return AmountOutStyle.Render("-" + FormatAmount(amount.Abs()))
	}
	return AmountInStyle.Render("+" + FormatAmount(amount))
}

// RenderSummary renders the income/expense/net summary box.
func RenderSummary(insights model.DerivedInsights) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%-14s %s\n", "Income", AmountInStyle.Render(FormatAmount(insights.TotalIncome))))
	b.WriteString(fmt.Sprintf("%-14s %s\n", "Expenses", AmountOutStyle.Render(FormatAmount(insights.TotalExpense))))
	b.WriteString(fmt.Sprintf("%-14s %s\n", "Net change", FormatSignedAmount(insights.NetChange)))
	b.WriteString(fmt.Sprintf("%-14s %d\n", "Transactions", insights.TransactionCount))

	if insights.TopCategory != nil {
		b.WriteString(fmt.Sprintf("%-14s %s (%s, %.1f%% of spend)\n",
			"Top category",
			BoldStyle.Render(insights.TopCategory.Name),
			FormatAmount(insights.TopCategory.Amount),
			insights.TopCategory.PercentageOfExpense))
	}

	arrow := "↓"
	style := SuccessStyle
	if insights.SpendingTrend.Direction == model.TrendIncreasing {
		arrow = "↑"
		style = WarningStyle
	}
	b.WriteString(fmt.Sprintf("%-14s %s\n", "Trend",
		style.Render(fmt.Sprintf("%s %.1f%% vs first half of month", arrow, insights.SpendingTrend.Percentage))))

	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderWeeklyHistogram renders the trailing seven-day spend as
// horizontal bars, oldest day first.
func RenderWeeklyHistogram(buckets []model.WeeklyBucket) string {
	if len(buckets) == 0 {
		return SubtleStyle.Render("No spending recorded this week.")
	}

	maxAmount := decimal.Zero
	for _, bucket := range buckets {
		if bucket.Amount.GreaterThan(maxAmount) {
			maxAmount = bucket.Amount
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(ChartIcon + " Last 7 days"))
	b.WriteString("\n")
	for _, bucket := range buckets {
		width := 0
		if maxAmount.Sign() > 0 {
			ratio, _ := bucket.Amount.Div(maxAmount).Float64()
			width = int(ratio * histogramWidth)
		}
		bar := strings.Repeat("█", width)
		if width == 0 && bucket.Amount.Sign() > 0 {
			bar = "▏"
		}
		b.WriteString(fmt.Sprintf("%-4s %s %s\n",
			bucket.Label,
			lipgloss.NewStyle().Foreground(PrimaryColor).Render(bar),
			SubtleStyle.Render(FormatAmount(bucket.Amount))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderCategoryTable renders the per-envelope budget breakdown.
func RenderCategoryTable(breakdown []model.CategoryUsage) string {
	if len(breakdown) == 0 {
		return SubtleStyle.Render("No budgeted envelopes yet.")
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-16s %-14s %-14s %-14s %8s",
		"Envelope", "Spent", "Budget", "Remaining", "Used")))
	b.WriteString("\n")
	for _, usage := range breakdown {
		usedStyle := SuccessStyle
		switch {
		case usage.PercentageUsed >= 100:
			usedStyle = ErrorStyle
		case usage.PercentageUsed >= 80:
			usedStyle = WarningStyle
		}
		b.WriteString(fmt.Sprintf("%-16s %-14s %-14s %-14s %s\n",
			usage.Name,
			FormatAmount(usage.Spent),
			FormatAmount(usage.Budget),
			FormatAmount(usage.Remaining),
			usedStyle.Render(fmt.Sprintf("%7.1f%%", usage.PercentageUsed))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTransactions renders recent transactions, newest first.
func RenderTransactions(txns []model.Transaction, limit int) string {
	if len(txns) == 0 {
		return SubtleStyle.Render("No transactions in the last month.")
	}
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}

	var b strings.Builder
	for _, txn := range txns {
		label := txn.AccountLabel
		if label == "" {
			label = txn.Type.DisplayName()
		}
		line := fmt.Sprintf("%s  %-20s %-12s %s",
			txn.OccurredAt.Format("Jan 02 15:04"),
			label,
			SubtleStyle.Render(txn.Type.DisplayName()),
			FormatSignedAmount(txn.Amount))
		if txn.Status != model.StatusSuccess {
			line += " " + WarningStyle.Render(string(txn.Status))
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderAccounts renders account balances, primary account first.
func RenderAccounts(accounts []model.AccountSnapshot) string {
	if len(accounts) == 0 {
		return SubtleStyle.Render("No accounts found.")
	}

	var b strings.Builder
	for _, acc := range accounts {
		icon := EnvelopeIcon
		if acc.Kind == model.KindPrimary {
			icon = WalletIcon
		}
		line := fmt.Sprintf("%s %-16s %s", icon, acc.Name, BoldStyle.Render(FormatAmount(acc.Balance)))
		if acc.IsBudgeted() {
			line += SubtleStyle.Render(fmt.Sprintf("  (limit %s, %s on overspend)",
				FormatAmount(acc.Limit), strings.ToLower(string(acc.OverspendRule))))
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPendingTopUps renders unresolved top-up references.
func RenderPendingTopUps(topups []model.PendingTopUp) string {
	if len(topups) == 0 {
		return SubtleStyle.Render("No pending top-ups.")
	}

	var b strings.Builder
	b.WriteString(WarningStyle.Render(fmt.Sprintf("%d unresolved top-up(s):", len(topups))))
	b.WriteString("\n")
	for _, topup := range topups {
		b.WriteString(fmt.Sprintf("  %s  %s  started %s\n",
			topup.Reference,
			FormatAmount(topup.Amount),
			SubtleStyle.Render(topup.CreatedAt.Format("Jan 02 15:04"))))
	}
	b.WriteString(SubtleStyle.Render("Run 'pesa topup verify <reference>' to resolve."))
	return b.String()
}
