package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store, *bool) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(&session.Session{Token: "tok-test"}))

	unauthorized := false
	client, err := NewClient(Config{
		BaseURL: srv.URL,
		Session: store,
		OnUnauthorized: func() {
			unauthorized = true
		},
	})
	require.NoError(t, err)

	return client, store, &unauthorized
}

func TestConfigValidate(t *testing.T) {
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{BaseURL: "https://api.example.com/api", Session: store}},
		{name: "missing URL", cfg: Config{Session: store}, wantErr: true},
		{name: "bad scheme", cfg: Config{BaseURL: "ftp://example.com", Session: store}, wantErr: true},
		{name: "missing session", cfg: Config{BaseURL: "https://api.example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReportClassifiesAndSorts(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/", r.URL.Path)
		assert.Equal(t, "Bearer tok-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"transactions_last_month": [
				{"id": "t1", "transaction_type": "PAYMENT", "account_name": "Food",
				 "amount": "200", "created_at": "2025-06-01T10:00:00Z"},
				{"id": "t2", "transaction_type": "INCOME", "account_name": "",
				 "amount": "500", "created_at": "2025-06-10T10:00:00Z"}
			],
			"accounts": [
				{"id": "a1", "account_name": "Groceries", "account_type": "DIGITAL",
				 "category": "Food", "balance": "600", "limit_amount": "1000"}
			]
		}`))
	}))

	report, err := client.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Transactions, 2)
	// Newest first
	assert.Equal(t, "t2", report.Transactions[0].ID)
	// Payments get a negative sign during classification
	assert.Equal(t, "-200", report.Transactions[1].Amount.String())
	assert.Equal(t, model.StatusSuccess, report.Transactions[1].Status)

	require.Len(t, report.Accounts, 1)
	assert.Equal(t, model.KindDigital, report.Accounts[0].Kind)
	assert.Equal(t, "400", report.Accounts[0].Spent().String())
}

func TestVerifyTopUpOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		wantOutcome model.VerificationOutcome
		wantSettled bool
	}{
		{name: "success", status: "success", wantOutcome: model.OutcomeSuccess, wantSettled: true},
		{name: "already processed is success", status: "already_processed",
			wantOutcome: model.OutcomeAlreadyProcessed, wantSettled: true},
		{name: "anything else is failure", status: "abandoned", wantOutcome: model.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/top-up/verify/", r.URL.Path)
				assert.Equal(t, "ref-1", r.URL.Query().Get("reference"))
				// Verification is public: no bearer token
				assert.Empty(t, r.Header.Get("Authorization"))
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": tt.status,
					"amount": "150",
				})
			}))

			result, err := client.VerifyTopUp(context.Background(), "ref-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Equal(t, tt.wantSettled, result.Outcome.Settled())
		})
	}
}

func TestVerifyTopUpRequiresReference(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no network call expected for an empty reference")
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.VerifyTopUp(context.Background(), "")
	assert.Error(t, err)
}

func TestInitiateTopUpCarriesIdempotencyKey(t *testing.T) {
	var firstKey string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		assert.NotEmpty(t, key)
		if firstKey == "" {
			firstKey = key
		} else {
			assert.NotEqual(t, firstKey, key, "each initiation gets a fresh key")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_url": "https://checkout.example.com/x",
			"reference":         "ref-9",
		})
	}))

	init, err := client.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, "ref-9", init.Reference)

	_, err = client.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)
}

func TestUnauthorizedClearsViaCallback(t *testing.T) {
	client, _, unauthorized := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "token expired"}`))
	}))

	_, err := client.Accounts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.True(t, *unauthorized, "OnUnauthorized callback should fire")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindUnauthorized, apiErr.Kind)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.False(t, apiErr.Retryable())
}

func TestServerErrorsAreRetryable(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Accounts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBackendDown))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Retryable())
}

func TestRequestsWithoutSessionFailFast(t *testing.T) {
	client, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no network call expected without a session")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	require.NoError(t, store.Clear())

	_, err := client.Accounts(context.Background())
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}
