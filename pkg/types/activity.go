package types

import "time"

// AuditLog is an append-only record of a user action. Rows are immutable
// once written; no update or delete path exists.
type AuditLog struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Target    string    `json:"target" db:"target"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	Details   string    `json:"details" db:"details"`
}

// NotificationType represents notification categories
type NotificationType string

const (
	NotificationAppointment NotificationType = "APPOINTMENT"
	NotificationMessage     NotificationType = "MESSAGE"
	NotificationPayment     NotificationType = "PAYMENT"
	NotificationSystem      NotificationType = "SYSTEM"
)

// Notification is a message delivered to a single user. The only permitted
// mutation is flipping IsRead.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Content   string           `json:"content" db:"content"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
