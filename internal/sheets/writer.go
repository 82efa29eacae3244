package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"
)

// Writer exports a computed report to a Google Sheets spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ts, err := tokenSource(ctx, config)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, ts)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Write exports the report: the summary, the per-envelope breakdown, and
// the transaction list.
func (w *Writer) Write(ctx context.Context, report service.Report, insights model.DerivedInsights) error {
	w.logger.Info("starting report export",
		"transactions", len(report.Transactions),
		"envelopes", len(insights.CategoryBreakdown))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := w.prepareReportData(report, insights)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data made it
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Report",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays out the report rows.
func (w *Writer) prepareReportData(report service.Report, insights model.DerivedInsights) [][]any {
	estimatedRows := 16 + len(insights.CategoryBreakdown) + len(insights.WeeklyBuckets) + len(report.Transactions)
	values := make([][]any, 0, estimatedRows)

	values = append(values,
		[]any{"PesaWallet Report", time.Now().Format("Jan 2, 2006")},
		[]any{},
		[]any{"Summary"},
		[]any{"Total Income", amountCell(insights.TotalIncome)},
		[]any{"Total Expenses", amountCell(insights.TotalExpense)},
		[]any{"Net Change", amountCell(insights.NetChange)},
		[]any{"Transactions", insights.TransactionCount},
	)

	if insights.TopCategory != nil {
		values = append(values, []any{
			"Top Category",
			insights.TopCategory.Name,
			amountCell(insights.TopCategory.Amount),
			fmt.Sprintf("%.1f%%", insights.TopCategory.PercentageOfExpense),
		})
	}
	values = append(values, []any{
		"Spending Trend",
		string(insights.SpendingTrend.Direction),
		fmt.Sprintf("%.1f%%", insights.SpendingTrend.Percentage),
	})

	values = append(values,
		[]any{},
		[]any{"Envelope Breakdown"},
		[]any{"Envelope", "Spent", "Budget", "Remaining", "Used"},
	)
	for _, usage := range insights.CategoryBreakdown {
		values = append(values, []any{
			usage.Name,
			amountCell(usage.Spent),
			amountCell(usage.Budget),
			amountCell(usage.Remaining),
			fmt.Sprintf("%.1f%%", usage.PercentageUsed),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Last 7 Days"},
		[]any{"Day", "Spent"},
	)
	for _, bucket := range insights.WeeklyBuckets {
		values = append(values, []any{
			bucket.Date.Format("2006-01-02"),
			amountCell(bucket.Amount),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Transactions"},
		[]any{"Date", "Account", "Type", "Status", "Amount"},
	)
	for _, txn := range report.Transactions {
		values = append(values, []any{
			txn.OccurredAt.Format("2006-01-02 15:04"),
			txn.AccountLabel,
			txn.Type.DisplayName(),
			string(txn.Status),
			amountCell(txn.Amount),
		})
	}

	return values
}

// amountCell converts a decimal amount into a numeric sheet cell.
func amountCell(amount decimal.Decimal) any {
	value, _ := amount.Float64()
	return value
}

// writeData writes the data to the spreadsheet.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	valueRange := &sheets.ValueRange{Values: values}

	_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, "A1", valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write report rows: %w", err)
	}
	return nil
}

// applyFormatting applies formatting to the spreadsheet.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		// Title
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Section headers
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Currency columns
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 1,
					EndColumnIndex:   5,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: `"KES" #,##0.00`,
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		// Column sizing
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   5,
				},
			},
		},
		// Freeze the title
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}
