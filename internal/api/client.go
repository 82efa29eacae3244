// Package api provides the client for the PesaWallet REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"
	"github.com/pesawallet/pesa/internal/session"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	platform       = "cli"
)

// Config holds backend connection configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://api.pesawallet.app/api.
	BaseURL string
	// Session supplies the bearer token for authenticated calls.
	Session *session.Store
	// OnUnauthorized is invoked once per client when the backend rejects
	// the session. Typically it clears the stored session and tells the
	// user to log in again.
	OnUnauthorized func()
	// Timeout applies per request. Zero means 10 seconds.
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid backend base URL: %s", c.BaseURL)
	}
	if c.Session == nil {
		return fmt.Errorf("session store is required")
	}
	return nil
}

// Client implements the service.Backend interface over HTTPS/JSON.
type Client struct {
	session        *session.Store
	httpClient     *http.Client
	logger         *slog.Logger
	onUnauthorized func()
	baseURL        string
}

var _ service.Backend = (*Client)(nil)

// NewClient creates a backend client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		session:        cfg.Session,
		onUnauthorized: cfg.OnUnauthorized,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         slog.Default().With("component", "api"),
	}, nil
}

// do performs a request and decodes the JSON response into out (which
// may be nil). Authenticated requests carry the session bearer token.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		token := c.session.Token()
		if token == "" {
			return &Error{Kind: KindUnauthorized, Message: "not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	// Writes that money depends on carry a client-generated key so the
	// backend can deduplicate at-least-once deliveries.
	if method == http.MethodPost && (path == "/top-up/" || path == "/pay/") {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	c.logger.Debug("backend request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var werr wireError
		_ = json.Unmarshal(data, &werr)
		return &Error{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    werr.text(),
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Login authenticates and returns the user plus the session token. The
// caller is responsible for persisting the session.
func (c *Client) Login(ctx context.Context, username, password string) (model.User, string, error) {
	var resp wireLoginResponse
	err := c.do(ctx, http.MethodPost, "/login/", map[string]string{
		"username": username,
		"password": password,
	}, &resp, false)
	if err != nil {
		return model.User{}, "", err
	}
	return resp.User.toModel(), resp.Token, nil
}

// Register creates a new account. The user still has to log in afterward.
func (c *Client) Register(ctx context.Context, username, email, phone, password string) error {
	return c.do(ctx, http.MethodPost, "/register/", map[string]string{
		"username":     username,
		"email":        email,
		"phone_number": phone,
		"password":     password,
	}, nil, false)
}

// UpdateProfile patches the given profile fields and returns the updated
// user.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]string) (model.User, error) {
	var resp wireUser
	if err := c.do(ctx, http.MethodPatch, "/profile/", fields, &resp, true); err != nil {
		return model.User{}, err
	}
	return resp.toModel(), nil
}

// Accounts returns all of the user's accounts, primary first.
func (c *Client) Accounts(ctx context.Context) ([]model.AccountSnapshot, error) {
	var resp []wireAccount
	if err := c.do(ctx, http.MethodGet, "/accounts/", nil, &resp, true); err != nil {
		return nil, err
	}

	accounts := make([]model.AccountSnapshot, 0, len(resp))
	for _, acc := range resp {
		accounts = append(accounts, acc.toModel())
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Kind == model.KindPrimary && accounts[j].Kind != model.KindPrimary
	})
	return accounts, nil
}

// PrimaryAccount returns the funding account.
func (c *Client) PrimaryAccount(ctx context.Context) (*model.AccountSnapshot, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if acc.Kind == model.KindPrimary {
			return &acc, nil
		}
	}
	return nil, fmt.Errorf("no primary account in %d accounts", len(accounts))
}

// CreateEnvelope creates a digital envelope account.
func (c *Client) CreateEnvelope(ctx context.Context, env model.AccountSnapshot) (model.AccountSnapshot, error) {
	var resp wireAccount
	err := c.do(ctx, http.MethodPost, "/accounts/", map[string]any{
		"account_name":   env.Name,
		"category":       env.CategoryLabel,
		"limit_amount":   env.Limit,
		"overspend_rule": string(env.OverspendRule),
		"rollover_rule":  string(env.RolloverRule),
	}, &resp, true)
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	return resp.toModel(), nil
}

// DeleteEnvelope removes an envelope; its balance returns to the primary
// account server-side.
func (c *Client) DeleteEnvelope(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/accounts/"+url.PathEscape(id)+"/", nil, nil, true)
}

// Report fetches last month's transactions and current account
// snapshots. Transactions come back newest first with signed amounts.
func (c *Client) Report(ctx context.Context) (service.Report, error) {
	var resp wireReport
	if err := c.do(ctx, http.MethodGet, "/reports/", nil, &resp, true); err != nil {
		return service.Report{}, err
	}

	report := service.Report{
		Transactions: make([]model.Transaction, 0, len(resp.TransactionsLastMonth)),
		Accounts:     make([]model.AccountSnapshot, 0, len(resp.Accounts)),
	}
	for _, txn := range resp.TransactionsLastMonth {
		report.Transactions = append(report.Transactions, txn.toModel())
	}
	for _, acc := range resp.Accounts {
		report.Accounts = append(report.Accounts, acc.toModel())
	}
	sort.SliceStable(report.Transactions, func(i, j int) bool {
		return report.Transactions[i].OccurredAt.After(report.Transactions[j].OccurredAt)
	})

	return report, nil
}

// Pay sends an M-Pesa style payment from an envelope.
func (c *Client) Pay(ctx context.Context, req service.PaymentRequest) error {
	body := map[string]any{
		"from_account": req.FromAccountID,
		"to_number":    req.ToNumber,
		"amount":       req.Amount,
	}
	if req.AccountNumber != "" {
		body["account_number"] = req.AccountNumber
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	return c.do(ctx, http.MethodPost, "/pay/", body, nil, true)
}

// Transfer moves funds between two of the user's accounts.
func (c *Client) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error {
	return c.do(ctx, http.MethodPost, "/payments/transfer/", map[string]any{
		"from_account": fromID,
		"to_account":   toID,
		"amount":       amount,
	}, nil, true)
}

// Allocate moves funds from the primary account into an envelope.
func (c *Client) Allocate(ctx context.Context, envelopeID string, amount decimal.Decimal) error {
	return c.do(ctx, http.MethodPost, "/allocate/", map[string]any{
		"account": envelopeID,
		"amount":  amount,
	}, nil, true)
}

// InitiateTopUp requests a checkout URL and reference for funding the
// primary account.
func (c *Client) InitiateTopUp(ctx context.Context, amount decimal.Decimal) (model.TopUpInit, error) {
	var resp wireTopUpInit
	err := c.do(ctx, http.MethodPost, "/top-up/", map[string]any{
		"amount":   amount,
		"platform": platform,
	}, &resp, true)
	if err != nil {
		return model.TopUpInit{}, err
	}
	if resp.AuthorizationURL == "" || resp.Reference == "" {
		return model.TopUpInit{}, &Error{Kind: KindServer, Message: "top-up response missing checkout URL or reference"}
	}
	return model.TopUpInit{CheckoutURL: resp.AuthorizationURL, Reference: resp.Reference}, nil
}

// VerifyTopUp resolves a top-up attempt. The endpoint is idempotent and
// unauthenticated: a verified payment reports already_processed on
// repeat calls instead of being applied twice.
func (c *Client) VerifyTopUp(ctx context.Context, reference string) (model.VerificationResult, error) {
	if reference == "" {
		return model.VerificationResult{}, fmt.Errorf("verification reference is required")
	}

	var resp wireVerification
	path := "/top-up/verify/?reference=" + url.QueryEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return model.VerificationResult{}, err
	}

	outcome := model.VerificationOutcome(resp.Status)
	switch outcome {
	case model.OutcomeSuccess, model.OutcomeAlreadyProcessed:
	default:
		outcome = model.OutcomeFailed
	}

	return model.VerificationResult{
		Outcome: outcome,
		Amount:  resp.Amount,
		Message: resp.Message,
	}, nil
}

// Incomes lists the user's scheduled income sources.
func (c *Client) Incomes(ctx context.Context) ([]model.IncomeSchedule, error) {
	var resp []wireIncome
	if err := c.do(ctx, http.MethodGet, "/incomes/", nil, &resp, true); err != nil {
		return nil, err
	}
	incomes := make([]model.IncomeSchedule, 0, len(resp))
	for _, inc := range resp {
		incomes = append(incomes, inc.toModel())
	}
	return incomes, nil
}

// CreateIncome schedules a new income source.
func (c *Client) CreateIncome(ctx context.Context, inc model.IncomeSchedule) (model.IncomeSchedule, error) {
	if err := inc.Validate(); err != nil {
		return model.IncomeSchedule{}, err
	}
	var resp wireIncome
	err := c.do(ctx, http.MethodPost, "/incomes/", incomeBody(inc), &resp, true)
	if err != nil {
		return model.IncomeSchedule{}, err
	}
	return resp.toModel(), nil
}

// UpdateIncome replaces an existing income schedule.
func (c *Client) UpdateIncome(ctx context.Context, inc model.IncomeSchedule) (model.IncomeSchedule, error) {
	if err := inc.Validate(); err != nil {
		return model.IncomeSchedule{}, err
	}
	var resp wireIncome
	err := c.do(ctx, http.MethodPut, "/incomes/"+url.PathEscape(inc.ID)+"/", incomeBody(inc), &resp, true)
	if err != nil {
		return model.IncomeSchedule{}, err
	}
	return resp.toModel(), nil
}

// DeleteIncome removes an income schedule.
func (c *Client) DeleteIncome(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/incomes/"+url.PathEscape(id)+"/", nil, nil, true)
}

func incomeBody(inc model.IncomeSchedule) map[string]any {
	return map[string]any{
		"source_name": inc.SourceName,
		"account":     inc.AccountID,
		"amount":      inc.Amount,
		"frequency":   string(inc.Frequency),
	}
}

// Notifications lists the user's alerts, newest first.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var resp []wireNotification
	if err := c.do(ctx, http.MethodGet, "/notifications/", nil, &resp, true); err != nil {
		return nil, err
	}
	alerts := make([]model.Notification, 0, len(resp))
	for _, n := range resp {
		alerts = append(alerts, n.toModel())
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// MarkNotificationRead marks a single alert as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/",
		map[string]bool{"is_read": true}, nil, true)
}

// DeleteNotification removes an alert.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id)+"/delete/", nil, nil, true)
}

// Overview returns the admin aggregate stats. Requires a staff session.
func (c *Client) Overview(ctx context.Context) (model.OverviewStats, error) {
	var resp wireOverview
	if err := c.do(ctx, http.MethodGet, "/internal/overview/", nil, &resp, true); err != nil {
		return model.OverviewStats{}, err
	}
	return model.OverviewStats{
		TotalUsers:        resp.TotalUsers,
		ActiveUsers:       resp.ActiveUsers,
		TotalTransactions: resp.TotalTransactions,
		TotalVolume:       resp.TotalVolume,
	}, nil
}

// Users lists all registered users. Requires a staff session.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var resp []wireUser
	if err := c.do(ctx, http.MethodGet, "/internal/users/", nil, &resp, true); err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(resp))
	for _, u := range resp {
		users = append(users, u.toModel())
	}
	return users, nil
}
