package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// Inventory events
	BatchExpiring EventType = "batch_expiring"
	BatchExpired  EventType = "batch_expired"

	// Notification lifecycle events
	NotificationCreated   EventType = "notification_created"
	NotificationDelivered EventType = "notification_delivered"
	NotificationFailed    EventType = "notification_failed"
)

// Event is the payload published through the bus.
//
// UserID routes per-recipient events (in-app frames) to a single
// connected user; zero means the event is not user-addressed.
type Event struct {
	Type      EventType         `json:"type"`
	HotelID   int64             `json:"hotel_id,omitempty"`
	UserID    int64             `json:"user_id,omitempty"`
	Message   string            `json:"message"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
