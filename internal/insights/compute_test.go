package insights

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
)

var testNow = time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)

func txn(id string, txType model.TransactionType, amount string, label string, at time.Time) model.Transaction {
	return model.Transaction{
		ID:           id,
		Type:         txType,
		Amount:       decimal.RequireFromString(amount),
		AccountLabel: label,
		OccurredAt:   at,
		Status:       model.StatusSuccess,
	}
}

func TestComputeEmptyInput(t *testing.T) {
	got := Compute(nil, nil, Options{Now: testNow})

	if !got.TotalIncome.IsZero() || !got.TotalExpense.IsZero() || !got.NetChange.IsZero() {
		t.Errorf("expected all-zero sums, got income=%s expense=%s net=%s",
			got.TotalIncome, got.TotalExpense, got.NetChange)
	}
	if got.TopCategory != nil {
		t.Errorf("expected no top category, got %+v", got.TopCategory)
	}
	if got.SpendingTrend.Percentage != 0 {
		t.Errorf("expected zero trend percentage, got %v", got.SpendingTrend.Percentage)
	}
	if len(got.WeeklyBuckets) != 7 {
		t.Fatalf("expected 7 weekly buckets, got %d", len(got.WeeklyBuckets))
	}
	for i, b := range got.WeeklyBuckets {
		if !b.Amount.IsZero() {
			t.Errorf("bucket %d: expected zero amount, got %s", i, b.Amount)
		}
	}
	if len(got.CategoryBreakdown) != 0 {
		t.Errorf("expected empty breakdown, got %d entries", len(got.CategoryBreakdown))
	}
}

func TestComputeSummaryScenario(t *testing.T) {
	txns := []model.Transaction{
		txn("t1", model.TypeIncome, "500", "", testNow),
		txn("t2", model.TypePayment, "-200", "Food", testNow),
	}

	got := Compute(txns, nil, Options{Now: testNow})

	if got.TotalIncome.String() != "500" {
		t.Errorf("TotalIncome = %s, want 500", got.TotalIncome)
	}
	if got.TotalExpense.String() != "200" {
		t.Errorf("TotalExpense = %s, want 200", got.TotalExpense)
	}
	if got.NetChange.String() != "300" {
		t.Errorf("NetChange = %s, want 300", got.NetChange)
	}
	if got.TopCategory == nil {
		t.Fatal("expected a top category")
	}
	if got.TopCategory.Name != "Food" {
		t.Errorf("TopCategory.Name = %q, want Food", got.TopCategory.Name)
	}
	if got.TopCategory.Amount.String() != "200" {
		t.Errorf("TopCategory.Amount = %s, want 200", got.TopCategory.Amount)
	}
	if got.TopCategory.PercentageOfExpense != 100 {
		t.Errorf("TopCategory.PercentageOfExpense = %v, want 100", got.TopCategory.PercentageOfExpense)
	}
}

func TestComputeNetChangeInvariant(t *testing.T) {
	tests := []struct {
		name string
		txns []model.Transaction
	}{
		{name: "empty"},
		{
			name: "mixed",
			txns: []model.Transaction{
				txn("t1", model.TypeIncome, "1000", "", testNow),
				txn("t2", model.TypeAllocation, "300", "Rent", testNow),
				txn("t3", model.TypePayment, "-450.25", "Rent", testNow),
				txn("t4", model.TypeTransfer, "120", "Food", testNow),
				txn("t5", model.TypePayment, "-80.75", "Food", testNow),
			},
		},
		{
			name: "expenses only",
			txns: []model.Transaction{
				txn("t1", model.TypePayment, "-50", "Food", testNow),
				txn("t2", model.TypePayment, "-75", "Transport", testNow),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.txns, nil, Options{Now: testNow})
			want := got.TotalIncome.Sub(got.TotalExpense)
			if !got.NetChange.Equal(want) {
				t.Errorf("NetChange = %s, want income-expense = %s", got.NetChange, want)
			}
		})
	}
}

func TestComputeTopCategoryOrdering(t *testing.T) {
	txns := []model.Transaction{
		txn("t1", model.TypePayment, "-100", "Food", testNow),
		txn("t2", model.TypePayment, "-60", "Transport", testNow),
		txn("t3", model.TypePayment, "-90", "Food", testNow),
		txn("t4", model.TypePayment, "-150", "Rent", testNow),
	}

	got := Compute(txns, nil, Options{Now: testNow})
	if got.TopCategory == nil {
		t.Fatal("expected a top category")
	}
	// Food: 190, Rent: 150, Transport: 60
	if got.TopCategory.Name != "Food" {
		t.Errorf("TopCategory.Name = %q, want Food", got.TopCategory.Name)
	}
	if got.TopCategory.Amount.String() != "190" {
		t.Errorf("TopCategory.Amount = %s, want 190", got.TopCategory.Amount)
	}
	wantPct := 47.5 // 190 / 400
	if got.TopCategory.PercentageOfExpense != wantPct {
		t.Errorf("PercentageOfExpense = %v, want %v", got.TopCategory.PercentageOfExpense, wantPct)
	}
}

func TestComputeSpendingTrend(t *testing.T) {
	may28 := time.Date(2025, time.May, 28, 10, 0, 0, 0, time.UTC)
	jun5 := time.Date(2025, time.June, 5, 10, 0, 0, 0, time.UTC)
	jun20 := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		split         TrendSplit
		txns          []model.Transaction
		wantDirection model.TrendDirection
		wantPct       float64
	}{
		{
			name: "own month increasing",
			txns: []model.Transaction{
				txn("t1", model.TypePayment, "-100", "Food", jun5),
				txn("t2", model.TypePayment, "-300", "Food", jun20),
			},
			split:         TrendSplitOwnMonth,
			wantDirection: model.TrendIncreasing,
			wantPct:       200,
		},
		{
			name: "own month decreasing",
			txns: []model.Transaction{
				txn("t1", model.TypePayment, "-400", "Food", jun5),
				txn("t2", model.TypePayment, "-100", "Food", jun20),
			},
			split:         TrendSplitOwnMonth,
			wantDirection: model.TrendDecreasing,
			wantPct:       75,
		},
		{
			name: "own month buckets by transaction's month",
			txns: []model.Transaction{
				// Day 28 of May lands in May's second half
				txn("t1", model.TypePayment, "-100", "Food", may28),
				txn("t2", model.TypePayment, "-50", "Food", jun20),
			},
			split:         TrendSplitOwnMonth,
			wantDirection: model.TrendIncreasing, // both land in second halves
			wantPct:       0,                     // first half empty, guard yields 0
		},
		{
			name: "calendar split puts prior month in first half",
			txns: []model.Transaction{
				// May 28 is before June 15, so legacy split calls it first half
				txn("t1", model.TypePayment, "-100", "Food", may28),
				txn("t2", model.TypePayment, "-50", "Food", jun20),
			},
			split:         TrendSplitCalendar,
			wantDirection: model.TrendDecreasing,
			wantPct:       50,
		},
		{
			name:          "no expenses",
			split:         TrendSplitOwnMonth,
			wantDirection: model.TrendDecreasing,
			wantPct:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.txns, nil, Options{Now: testNow, TrendSplit: tt.split})
			if got.SpendingTrend.Direction != tt.wantDirection {
				t.Errorf("Direction = %v, want %v", got.SpendingTrend.Direction, tt.wantDirection)
			}
			if got.SpendingTrend.Percentage != tt.wantPct {
				t.Errorf("Percentage = %v, want %v", got.SpendingTrend.Percentage, tt.wantPct)
			}
		})
	}
}

func TestComputeWeeklyBuckets(t *testing.T) {
	txns := []model.Transaction{
		txn("t1", model.TypePayment, "-30", "Food", testNow),                    // today
		txn("t2", model.TypePayment, "-20", "Food", testNow.AddDate(0, 0, -3)),  // 3 days ago
		txn("t3", model.TypePayment, "-10", "Food", testNow.AddDate(0, 0, -6)),  // oldest bucket
		txn("t4", model.TypePayment, "-99", "Food", testNow.AddDate(0, 0, -7)),  // out of window
		txn("t5", model.TypeIncome, "500", "", testNow),                         // income ignored
		txn("t6", model.TypePayment, "-15", "Food", testNow.AddDate(0, 0, -3)),  // same day as t2
	}

	got := Compute(txns, nil, Options{Now: testNow})
	buckets := got.WeeklyBuckets

	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}

	// Oldest to newest
	for i := 1; i < len(buckets); i++ {
		if !buckets[i].Date.After(buckets[i-1].Date) {
			t.Errorf("buckets not ordered oldest-to-newest at index %d", i)
		}
	}

	if buckets[0].Amount.String() != "10" {
		t.Errorf("oldest bucket = %s, want 10", buckets[0].Amount)
	}
	if buckets[3].Amount.String() != "35" {
		t.Errorf("3-days-ago bucket = %s, want 35", buckets[3].Amount)
	}
	if buckets[6].Amount.String() != "30" {
		t.Errorf("today bucket = %s, want 30", buckets[6].Amount)
	}

	// Labels are the actual weekdays of the trailing window. testNow is a
	// Friday, so the window runs Sat..Fri.
	wantLabels := []string{"Sat", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri"}
	for i, b := range buckets {
		if b.Label != wantLabels[i] {
			t.Errorf("bucket %d label = %q, want %q", i, b.Label, wantLabels[i])
		}
	}
}

func TestComputeCategoryBreakdown(t *testing.T) {
	accounts := []model.AccountSnapshot{
		{
			ID: "a1", Name: "Groceries", Kind: model.KindDigital, CategoryLabel: "Food",
			Balance: decimal.NewFromInt(600), Limit: decimal.NewFromInt(1000),
		},
		{
			ID: "a2", Name: "Fares", Kind: model.KindDigital, CategoryLabel: "Transport",
			Balance: decimal.NewFromInt(100), Limit: decimal.NewFromInt(800),
		},
		{
			ID: "a3", Name: "Main", Kind: model.KindPrimary,
			Balance: decimal.NewFromInt(5000),
		},
		{
			ID: "a4", Name: "Slush", Kind: model.KindDigital,
			Balance: decimal.NewFromInt(50), Limit: decimal.Zero, // unlimited, excluded
		},
	}

	got := Compute(nil, accounts, Options{Now: testNow})
	breakdown := got.CategoryBreakdown

	if len(breakdown) != 2 {
		t.Fatalf("expected 2 breakdown entries, got %d", len(breakdown))
	}

	// Fares spent 700, Groceries spent 400: descending by spent.
	if breakdown[0].Name != "Fares" || breakdown[1].Name != "Groceries" {
		t.Errorf("breakdown order = [%s, %s], want [Fares, Groceries]",
			breakdown[0].Name, breakdown[1].Name)
	}

	groceries := breakdown[1]
	if groceries.Spent.String() != "400" {
		t.Errorf("Spent = %s, want 400", groceries.Spent)
	}
	if groceries.Remaining.String() != "600" {
		t.Errorf("Remaining = %s, want 600", groceries.Remaining)
	}
	if groceries.PercentageUsed != 40 {
		t.Errorf("PercentageUsed = %v, want 40", groceries.PercentageUsed)
	}
}

func TestComputePercentagesAreFinite(t *testing.T) {
	// Zero-denominator inputs everywhere: no expenses, accounts spent to
	// the exact limit, empty halves.
	accounts := []model.AccountSnapshot{
		{ID: "a1", Name: "Empty", Kind: model.KindDigital,
			Balance: decimal.Zero, Limit: decimal.NewFromInt(100)},
	}
	txns := []model.Transaction{
		txn("t1", model.TypeIncome, "500", "", testNow),
	}

	got := Compute(txns, accounts, Options{Now: testNow})

	if got.TopCategory != nil {
		t.Errorf("expected no top category without expenses, got %+v", got.TopCategory)
	}
	if got.SpendingTrend.Percentage != 0 {
		t.Errorf("trend percentage = %v, want 0", got.SpendingTrend.Percentage)
	}
	for _, usage := range got.CategoryBreakdown {
		if usage.PercentageUsed < 0 || usage.PercentageUsed > 100 {
			t.Errorf("PercentageUsed = %v, want within [0, 100]", usage.PercentageUsed)
		}
	}
}
