package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/insights"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"
	"github.com/pesawallet/pesa/internal/sheets"
	"github.com/pesawallet/pesa/internal/storage"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch last month's activity and show spending insights",
		RunE:  runReport,
	}

	cmd.Flags().String("trend-split", "", "trend split mode: own-month or calendar (default own-month)")
	cmd.Flags().Int("limit", 10, "transactions to list (0 for all)")
	cmd.Flags().Bool("cached", false, "render the last cached report without fetching")
	cmd.Flags().Bool("export", false, "export the report to Google Sheets")
	_ = viper.BindPFlag("report.trend_split", cmd.Flags().Lookup("trend-split"))

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cached, _ := cmd.Flags().GetBool("cached")

	var report service.Report
	var fetchedAt time.Time
	if cached {
		snap, loadErr := store.LatestReportSnapshot(ctx)
		if loadErr != nil {
			return loadErr
		}
		if snap == nil {
			return common.NewUserError("No cached report yet. Run 'pesa report' while online first.", common.ErrNotFound)
		}
		report = snap.Report
		fetchedAt = snap.FetchedAt
	} else {
		report, fetchedAt, err = fetchReport(cmd, store)
		if err != nil {
			return err
		}
	}

	split := insights.TrendSplit(viper.GetString("report.trend_split"))
	derived := insights.Compute(report.Transactions, report.Accounts, insights.Options{
		Now:        time.Now(),
		TrendSplit: split,
	})

	fmt.Println(cli.TitleStyle.Render(cli.ChartIcon + " Monthly report"))
	if !fetchedAt.IsZero() {
		fmt.Println(cli.SubtleStyle.Render("As of " + fetchedAt.Format(time.RFC822)))
	}
	fmt.Println(cli.RenderSummary(derived))
	fmt.Println()
	fmt.Println(cli.RenderWeeklyHistogram(derived.WeeklyBuckets))
	fmt.Println()
	fmt.Println(cli.RenderCategoryTable(derived.CategoryBreakdown))
	fmt.Println()
	fmt.Println(cli.RenderAccounts(report.Accounts))

	limit, _ := cmd.Flags().GetInt("limit")
	if limit != 0 {
		fmt.Println()
		fmt.Println(cli.RenderTransactions(report.Transactions, limit))
	}

	if export, _ := cmd.Flags().GetBool("export"); export {
		return exportReport(cmd, report, derived)
	}
	return nil
}

// fetchReport pulls a fresh report and caches it. A fetch that loses the
// race against a newer one still renders; only its cache write is skipped.
func fetchReport(cmd *cobra.Command, store service.Storage) (service.Report, time.Time, error) {
	ctx := cmd.Context()

	sessions, err := sessionStore()
	if err != nil {
		return service.Report{}, time.Time{}, err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return service.Report{}, time.Time{}, err
	}

	seq, err := store.NextFetchSeq(ctx)
	if err != nil {
		return service.Report{}, time.Time{}, err
	}

	report, err := backend.Report(ctx)
	if err != nil {
		return service.Report{}, time.Time{}, err
	}

	fetchedAt := time.Now()
	saveErr := store.SaveReportSnapshot(ctx, service.ReportSnapshot{
		Seq:       seq,
		FetchedAt: fetchedAt,
		Report:    report,
	})
	if saveErr != nil && !errors.Is(saveErr, storage.ErrStaleSnapshot) {
		slog.Warn("failed to cache report", "error", saveErr)
	}

	return report, fetchedAt, nil
}

func exportReport(cmd *cobra.Command, report service.Report, derived model.DerivedInsights) error {
	ctx := cmd.Context()

	cfg := sheets.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return common.NewUserError(
			"Sheets export is not configured. Set the PESA_SHEETS_* environment variables.", err)
	}

	writer, err := sheets.NewWriter(ctx, cfg, slog.Default().With("component", "sheets"))
	if err != nil {
		return err
	}
	if err := writer.Write(ctx, report, derived); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Report exported to Google Sheets."))
	return nil
}
