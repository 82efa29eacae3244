package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{"whole", decimal.NewFromInt(250), "KES 250.00"},
		{"cents", decimal.RequireFromString("99.5"), "KES 99.50"},
		{"zero", decimal.Zero, "KES 0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAmount(tt.amount); got != tt.want {
				t.Errorf("FormatAmount() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSummaryIncludesTopCategory(t *testing.T) {
	insights := model.DerivedInsights{
		TotalIncome:      decimal.NewFromInt(500),
		TotalExpense:     decimal.NewFromInt(200),
		NetChange:        decimal.NewFromInt(300),
		TransactionCount: 2,
		TopCategory: &model.TopCategory{
			Name:                "Food",
			Amount:              decimal.NewFromInt(200),
			PercentageOfExpense: 100,
		},
		SpendingTrend: model.SpendingTrend{Direction: model.TrendDecreasing, Percentage: 75},
	}

	out := RenderSummary(insights)
	for _, want := range []string{"Food", "KES 500.00", "KES 200.00", "75.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryNoExpenses(t *testing.T) {
	out := RenderSummary(model.DerivedInsights{})
	if strings.Contains(out, "Top category") {
		t.Errorf("summary should omit top category when there are no expenses:\n%s", out)
	}
}

func TestRenderWeeklyHistogram(t *testing.T) {
	buckets := []model.WeeklyBucket{
		{Label: "Mon", Amount: decimal.NewFromInt(100)},
		{Label: "Tue", Amount: decimal.Zero},
		{Label: "Wed", Amount: decimal.NewFromInt(50)},
	}
	out := RenderWeeklyHistogram(buckets)
	for _, label := range []string{"Mon", "Tue", "Wed"} {
		if !strings.Contains(out, label) {
			t.Errorf("histogram missing day %q:\n%s", label, out)
		}
	}
	if !strings.Contains(out, "█") {
		t.Errorf("histogram has no bars:\n%s", out)
	}
}

func TestRenderWeeklyHistogramEmpty(t *testing.T) {
	out := RenderWeeklyHistogram(nil)
	if !strings.Contains(out, "No spending") {
		t.Errorf("unexpected empty-histogram output: %q", out)
	}
}

func TestRenderCategoryTable(t *testing.T) {
	breakdown := []model.CategoryUsage{
		{Name: "Food", Spent: decimal.NewFromInt(400), Budget: decimal.NewFromInt(1000), Remaining: decimal.NewFromInt(600), PercentageUsed: 40},
		{Name: "Fares", Spent: decimal.NewFromInt(950), Budget: decimal.NewFromInt(900), Remaining: decimal.NewFromInt(-50), PercentageUsed: 105.6},
	}
	out := RenderCategoryTable(breakdown)
	for _, want := range []string{"Food", "Fares", "40.0%", "105.6%"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTransactionsLimit(t *testing.T) {
	txns := []model.Transaction{
		{ID: "1", Type: model.TypePayment, AccountLabel: "Food", Amount: decimal.NewFromInt(-100), Status: model.StatusSuccess, OccurredAt: time.Now()},
		{ID: "2", Type: model.TypeIncome, AccountLabel: "Salary", Amount: decimal.NewFromInt(500), Status: model.StatusSuccess, OccurredAt: time.Now()},
	}
	out := RenderTransactions(txns, 1)
	if !strings.Contains(out, "Food") {
		t.Errorf("expected first transaction in output:\n%s", out)
	}
	if strings.Contains(out, "Salary") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{"yes", "y\n", false, true},
		{"full yes", "yes\n", false, true},
		{"no", "n\n", true, false},
		{"empty takes default yes", "\n", true, true},
		{"empty takes default no", "\n", false, false},
		{"garbage is no", "maybe\n", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewNonBlockingReader(strings.NewReader(tt.input))
			var sink strings.Builder
			got, err := reader.Confirm(context.Background(), &sink, "Proceed?", tt.defaultYes)
			if err != nil {
				t.Fatalf("Confirm failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
		})
	}
}
