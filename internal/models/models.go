package models

import "time"

// Hotel is a property tracked by the system.
type Hotel struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Department is a kitchen/storage unit inside a hotel.
type Department struct {
	ID      int64  `json:"id"`
	HotelID int64  `json:"hotel_id"`
	Name    string `json:"name"`
}

// Channel is a delivery transport for notifications.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelChat  Channel = "chat"
	ChannelEmail Channel = "email"
)

// IsValid reports whether c is one of the known channels.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelChat, ChannelEmail:
		return true
	}
	return false
}

// User roles. Admin roles see alerts hotel-wide regardless of the
// department a rule is scoped to.
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleChef        = "chef"
	RoleStorekeeper = "storekeeper"
)

// AdminRoles are the hotel-wide roles that department-scoped rules
// always include.
var AdminRoles = []string{RoleAdmin, RoleManager}

// IsAdminRole reports whether role is hotel-wide.
func IsAdminRole(role string) bool {
	for _, r := range AdminRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Config holds server configuration
type Config struct {
	Port          string
	DBPath        string
	BotToken      string
	SMTPURL       string
	ScanSchedule  string
	DrainSchedule string
}
