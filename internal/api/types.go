package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/model"
)

// Wire types for the PesaWallet REST API. Amounts arrive as decimal
// strings; timestamps are RFC 3339.

type wireTransaction struct {
	ID              string          `json:"id"`
	TransactionType string          `json:"transaction_type"`
	AccountName     string          `json:"account_name"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

type wireAccount struct {
	ID            string          `json:"id"`
	AccountName   string          `json:"account_name"`
	AccountType   string          `json:"account_type"`
	Category      string          `json:"category"`
	Balance       decimal.Decimal `json:"balance"`
	LimitAmount   decimal.Decimal `json:"limit_amount"`
	OverspendRule string          `json:"overspend_rule"`
	RolloverRule  string          `json:"rollover_rule"`
}

type wireReport struct {
	TransactionsLastMonth []wireTransaction `json:"transactions_last_month"`
	Accounts              []wireAccount     `json:"accounts"`
}

type wireTopUpInit struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type wireVerification struct {
	Status  string          `json:"status"`
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

type wireUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	IsStaff     bool      `json:"is_staff"`
	DateJoined  time.Time `json:"date_joined"`
}

type wireLoginResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

type wireIncome struct {
	ID         string          `json:"id"`
	SourceName string          `json:"source_name"`
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	Frequency  string          `json:"frequency"`
	NextPayout time.Time       `json:"next_payout"`
}

type wireNotification struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

type wireOverview struct {
	TotalUsers        int    `json:"total_users"`
	ActiveUsers       int    `json:"active_users"`
	TotalTransactions int    `json:"total_transactions"`
	TotalVolume       string `json:"total_volume"`
}

type wireError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (w wireError) text() string {
	switch {
	case w.Error != "":
		return w.Error
	case w.Message != "":
		return w.Message
	case w.Detail != "":
		return w.Detail
	default:
		return "unknown error"
	}
}

func (w wireTransaction) toModel() model.Transaction {
	txType := model.TransactionType(w.TransactionType)
	status := model.TransactionStatus(w.Status)
	if status == "" {
		status = model.StatusSuccess
	}
	return model.Transaction{
		ID:           w.ID,
		Type:         txType,
		AccountLabel: w.AccountName,
		Amount:       model.SignedAmount(txType, w.Amount),
		Status:       status,
		OccurredAt:   w.CreatedAt,
	}
}

func (w wireAccount) toModel() model.AccountSnapshot {
	return model.AccountSnapshot{
		ID:            w.ID,
		Name:          w.AccountName,
		Kind:          model.AccountKind(w.AccountType),
		CategoryLabel: w.Category,
		Balance:       w.Balance,
		Limit:         w.LimitAmount,
		OverspendRule: model.OverspendRule(w.OverspendRule),
		RolloverRule:  model.RolloverRule(w.RolloverRule),
	}
}

func (w wireUser) toModel() model.User {
	return model.User{
		ID:          w.ID,
		Username:    w.Username,
		Email:       w.Email,
		PhoneNumber: w.PhoneNumber,
		IsStaff:     w.IsStaff,
		JoinedAt:    w.DateJoined,
	}
}

func (w wireIncome) toModel() model.IncomeSchedule {
	return model.IncomeSchedule{
		ID:         w.ID,
		SourceName: w.SourceName,
		AccountID:  w.Account,
		Amount:     w.Amount,
		Frequency:  model.IncomeFrequency(w.Frequency),
		NextPayout: w.NextPayout,
	}
}

func (w wireNotification) toModel() model.Notification {
	return model.Notification{
		ID:        w.ID,
		Title:     w.Title,
		Message:   w.Message,
		Kind:      w.NotificationType,
		Read:      w.IsRead,
		CreatedAt: w.CreatedAt,
	}
}
