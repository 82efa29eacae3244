package model

import "time"

// User is the authenticated account holder.
type User struct {
	JoinedAt    time.Time
	ID          string
	Username    string
	Email       string
	PhoneNumber string
	IsStaff     bool
}

// OverviewStats is the admin aggregate returned by the internal overview
// endpoint. All figures are computed server-side.
type OverviewStats struct {
	TotalUsers        int
	ActiveUsers       int
	TotalTransactions int
	TotalVolume       string
}
