package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/pesawallet/pesa/internal/api"
	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/config"
	"github.com/pesawallet/pesa/internal/service"
	"github.com/pesawallet/pesa/internal/session"
	"github.com/pesawallet/pesa/internal/storage"
)

const defaultAPIURL = "https://api.pesawallet.app/api"

// initStorage opens the local cache database and applies migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dataDir, "pesa.db")
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// sessionStore returns the on-disk session store.
func sessionStore() (*session.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return session.NewStore(filepath.Join(dir, "session.json")), nil
}

// newBackend builds the API client with the stored session. A rejected
// session is cleared on the spot so the next command starts clean.
func newBackend(sessions *session.Store) (*api.Client, error) {
	baseURL := viper.GetString("api.url")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return api.NewClient(api.Config{
		BaseURL: baseURL,
		Session: sessions,
		OnUnauthorized: func() {
			if err := sessions.Clear(); err != nil {
				slog.Warn("failed to clear rejected session", "error", err)
			}
			fmt.Fprintln(os.Stderr, cli.FormatWarning("Your session expired. Run 'pesa auth login' to sign in again."))
		},
	})
}

// parseAmount parses a positive KES amount from a command argument.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, common.NewUserError(
			fmt.Sprintf("%q is not a valid amount. Use a plain number like 500 or 99.50.", raw),
			err)
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, common.NewUserError(
			"The amount must be greater than zero.",
			common.ErrInvalidAmount)
	}
	return amount, nil
}

// openBrowser tries to open the URL in the default browser.
func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start() //nolint:gosec,forbidigo
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start() //nolint:gosec,forbidigo
	case "darwin":
		err = exec.Command("open", url).Start() //nolint:gosec,forbidigo
	default:
		err = fmt.Errorf("unsupported platform")
	}
	if err != nil {
		slog.Warn("could not open browser", "error", err, "url", url)
		fmt.Println(cli.FormatInfo("Open this URL to continue: " + url))
	}
}
