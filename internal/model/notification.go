package model

import "time"

// Notification is an alert generated server-side (low balance, income
// credited, payment completed). The client only lists, marks read, and
// deletes them.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Title     string
	Message   string
	Kind      string
	Read      bool
}
