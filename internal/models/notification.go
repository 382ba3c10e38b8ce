package models

import "time"

type NotificationType string

const (
	NotificationFakeGPS        NotificationType = "FAKE_GPS"
	NotificationCheckIn        NotificationType = "CHECK_IN"
	NotificationCheckOut       NotificationType = "CHECK_OUT"
	NotificationVisitCompleted NotificationType = "VISIT_COMPLETED"
	NotificationTicketUpdated  NotificationType = "TICKET_UPDATED"
	NotificationAdminBroadcast NotificationType = "ADMIN_BROADCAST"
	NotificationMissedCheckout NotificationType = "MISSED_CHECKOUT"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "UNREAD"
	NotificationRead   NotificationStatus = "READ"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

type Notification struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	UserID    *uint              `gorm:"index" json:"userId"`
	Type      NotificationType   `gorm:"type:varchar(32);not null;index" json:"type"`
	Message   string             `gorm:"size:500;not null" json:"message"`
	Status    NotificationStatus `gorm:"type:varchar(10);not null;default:UNREAD" json:"status"`
	Timestamp time.Time          `gorm:"column:created_at;not null;index" json:"timestamp"`
}

func (Notification) TableName() string {
	return "notifications"
}

// SeverityOf is computed at read time and never stored.
func SeverityOf(t NotificationType) Severity {
	if t == NotificationFakeGPS {
		return SeverityHigh
	}
	return SeverityMedium
}

func (n Notification) Severity() Severity {
	return SeverityOf(n.Type)
}

// ToMap renders the notification with its derived severity.
func (n Notification) ToMap() map[string]any {
	return map[string]any{
		"id":        n.ID,
		"userId":    n.UserID,
		"type":      n.Type,
		"message":   n.Message,
		"status":    n.Status,
		"severity":  n.Severity(),
		"timestamp": n.Timestamp,
	}
}
