package notify

import (
	"time"

	"shelfwatch/internal/models"
)

// Severity is the urgency derived from days-until-expiry. It is never
// stored on a rule; classification happens at evaluation time.
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityCritical
	SeverityExpired
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Priority orders queue processing: higher drains first.
func (s Severity) Priority() int {
	return int(s)
}

// NotificationType is the record's type column, derived from severity.
type NotificationType string

const (
	TypeExpiryWarning  NotificationType = "expiry_warning"
	TypeExpiryCritical NotificationType = "expiry_critical"
	TypeExpiryExpired  NotificationType = "expiry_expired"
)

func (s Severity) NotificationType() NotificationType {
	switch s {
	case SeverityCritical:
		return TypeExpiryCritical
	case SeverityExpired:
		return TypeExpiryExpired
	default:
		return TypeExpiryWarning
	}
}

// Status is the delivery state of a record.
//
// pending/retry → sending → delivered | retry | failed.
// delivered and failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSending   Status = "sending"
	StatusDelivered Status = "delivered"
	StatusRetry     Status = "retry"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSending, StatusDelivered, StatusRetry, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the queue will never pick the record again.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// BatchPayload is the structured snapshot attached to a notification.
// It is a fixed struct on purpose: formatters and clients get every
// field or a compile error, never a silently missing map key.
type BatchPayload struct {
	Product    string  `json:"product"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	Department string  `json:"department,omitempty"`
	ExpiryDate string  `json:"expiry_date"`
	DaysLeft   int     `json:"days_left"`
}

// NotificationRecord is the unit of delivery, owned exclusively by the
// notification engine. Created pending by the evaluator; mutated only
// by the queue processor; never deleted here.
type NotificationRecord struct {
	ID            int64            `json:"id"`
	UID           string           `json:"uid"`
	HotelID       int64            `json:"hotel_id"`
	RecipientID   int64            `json:"recipient_id"`
	BatchID       *int64           `json:"batch_id,omitempty"`
	RuleID        int64            `json:"rule_id"`
	Type          NotificationType `json:"type"`
	Channels      []models.Channel `json:"channels"`
	Priority      int              `json:"priority"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Payload       *BatchPayload    `json:"payload,omitempty"`
	Status        Status           `json:"status"`
	RetryCount    int              `json:"retry_count"`
	NextRetryAt   *time.Time       `json:"next_retry_at,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Fingerprint   string           `json:"fingerprint"`
	CreatedAt     time.Time        `json:"created_at"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
}
