package notify

import (
	"fmt"
	"time"

	"shelfwatch/internal/inventory"
	"shelfwatch/internal/models"
	"shelfwatch/internal/rules"
)

// DaysLeft returns the whole calendar days between now's date and the
// expiry date. Zero means "expires today"; negative means already
// expired.
func DaysLeft(expiry, now time.Time) int {
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

// Classify maps days-left onto a severity under a rule's thresholds.
// Batches beyond the warning window return ok=false and are skipped.
func Classify(daysLeft int, rule *rules.Rule) (Severity, bool) {
	switch {
	case daysLeft <= 0:
		return SeverityExpired, true
	case daysLeft <= rule.CriticalDays:
		return SeverityCritical, true
	case daysLeft <= rule.WarningDays:
		return SeverityWarning, true
	default:
		return 0, false
	}
}

// BuildRecord assembles a pending notification for one recipient and
// channel from a classified batch.
func BuildRecord(rule *rules.Rule, batch *inventory.Batch, recipientID int64,
	channel models.Channel, daysLeft int, sev Severity) *NotificationRecord {

	return &NotificationRecord{
		HotelID:     batch.HotelID,
		RecipientID: recipientID,
		BatchID:     &batch.ID,
		RuleID:      rule.ID,
		Type:        sev.NotificationType(),
		Channels:    []models.Channel{channel},
		Priority:    sev.Priority(),
		Title:       formatTitle(sev, batch),
		Message:     formatBody(sev, batch, daysLeft),
		Payload: &BatchPayload{
			Product:    batch.ProductName,
			Quantity:   batch.Quantity,
			Unit:       batch.Unit,
			Department: batch.Department,
			ExpiryDate: batch.ExpiryDate.Format("2006-01-02"),
			DaysLeft:   daysLeft,
		},
		Status:      StatusPending,
		Fingerprint: Fingerprint(batch.ID, recipientID, channel, time.Now()),
	}
}

func formatTitle(sev Severity, batch *inventory.Batch) string {
	switch sev {
	case SeverityExpired:
		return fmt.Sprintf("Expired: %s", batch.ProductName)
	case SeverityCritical:
		return fmt.Sprintf("Expiring very soon: %s", batch.ProductName)
	default:
		return fmt.Sprintf("Expiring soon: %s", batch.ProductName)
	}
}

func formatBody(sev Severity, batch *inventory.Batch, daysLeft int) string {
	where := batch.Department
	if where == "" {
		where = "unassigned stock"
	}
	qty := fmt.Sprintf("%g %s", batch.Quantity, batch.Unit)
	date := batch.ExpiryDate.Format("2006-01-02")

	switch {
	case sev == SeverityExpired:
		return fmt.Sprintf("%s (%s) in %s expired on %s. Remove it from stock.",
			batch.ProductName, qty, where, date)
	case daysLeft == 1:
		return fmt.Sprintf("%s (%s) in %s expires tomorrow (%s).",
			batch.ProductName, qty, where, date)
	default:
		return fmt.Sprintf("%s (%s) in %s expires in %d days (%s).",
			batch.ProductName, qty, where, daysLeft, date)
	}
}
