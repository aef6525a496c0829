package rules

import (
	"fmt"
	"time"

	"shelfwatch/internal/models"
)

// RuleType identifies what a rule watches. Only expiry rules exist
// today; the column is kept open for future stock-level rules.
type RuleType string

const TypeExpiry RuleType = "expiry"

// Rule controls which batches, recipients and channels generate
// notifications. A nil HotelID applies to every hotel; a nil
// DepartmentID applies to every department of the scoped hotel.
// Rules are created by administrators and read-only to the engine.
type Rule struct {
	ID           int64            `json:"id"`
	HotelID      *int64           `json:"hotel_id,omitempty"`
	DepartmentID *int64           `json:"department_id,omitempty"`
	RuleType     RuleType         `json:"rule_type"`
	WarningDays  int              `json:"warning_days"`
	CriticalDays int              `json:"critical_days"`
	Channels     []models.Channel `json:"channels"`
	Roles        []string         `json:"roles"`
	Enabled      bool             `json:"enabled"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Validate checks the rule invariants before it is persisted.
func (r *Rule) Validate() error {
	if r.RuleType == "" {
		r.RuleType = TypeExpiry
	}
	if r.RuleType != TypeExpiry {
		return fmt.Errorf("unknown rule type %q", r.RuleType)
	}
	if r.WarningDays <= 0 {
		return fmt.Errorf("warning_days must be positive, got %d", r.WarningDays)
	}
	if r.CriticalDays < 0 {
		return fmt.Errorf("critical_days must not be negative, got %d", r.CriticalDays)
	}
	if r.CriticalDays > r.WarningDays {
		return fmt.Errorf("critical_days (%d) must not exceed warning_days (%d)",
			r.CriticalDays, r.WarningDays)
	}
	if len(r.Channels) == 0 {
		return fmt.Errorf("rule needs at least one channel")
	}
	for _, c := range r.Channels {
		if !c.IsValid() {
			return fmt.Errorf("unknown channel %q", c)
		}
	}
	if len(r.Roles) == 0 {
		return fmt.Errorf("rule needs at least one recipient role")
	}
	return nil
}
