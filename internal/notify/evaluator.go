package notify

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"shelfwatch/internal/events"
	"shelfwatch/internal/inventory"
	"shelfwatch/internal/rules"
)

// Evaluator runs the periodic rule scan: enabled expiry rules are
// matched against near-expiry batches, classified, deduplicated and
// turned into pending notification records for the queue.
type Evaluator struct {
	db  *sql.DB
	bus *events.Bus
}

// NewEvaluator creates an evaluator. The bus may be nil; expiry events
// are then simply not published.
func NewEvaluator(db *sql.DB, bus *events.Bus) *Evaluator {
	return &Evaluator{db: db, bus: bus}
}

// EvaluateRules scans every enabled expiry rule and returns the number
// of notification records created. A single rule's failure is logged
// and does not abort the remaining rules; only the initial rule
// listing can fail the whole pass.
func (e *Evaluator) EvaluateRules() (int, error) {
	ruleList, err := rules.ListEnabled(e.db, rules.TypeExpiry)
	if err != nil {
		return 0, fmt.Errorf("evaluate rules: %w", err)
	}

	created := 0
	for i := range ruleList {
		n, err := e.evaluateRule(&ruleList[i])
		if err != nil {
			log.Printf("⚠️  Rule %d evaluation failed, skipping: %v", ruleList[i].ID, err)
			continue
		}
		created += n
	}

	if created > 0 {
		log.Printf("🔎 Expiry scan queued %d notification(s) across %d rule(s)",
			created, len(ruleList))
	}
	return created, nil
}

// evaluateRule processes one rule. Batches are independent: a bad
// batch only loses its own notifications.
func (e *Evaluator) evaluateRule(rule *rules.Rule) (int, error) {
	batches, err := inventory.ListNearExpiry(e.db, rule.HotelID, rule.DepartmentID, rule.WarningDays)
	if err != nil {
		return 0, err
	}
	if len(batches) == 0 {
		return 0, nil
	}

	recipients, err := ResolveRecipients(e.db, rule)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	now := time.Now()
	created := 0
	for i := range batches {
		batch := &batches[i]
		daysLeft := DaysLeft(batch.ExpiryDate, now)
		sev, ok := Classify(daysLeft, rule)
		if !ok {
			continue
		}

		e.publishBatchEvent(batch, sev, daysLeft)

		for _, u := range recipients {
			for _, ch := range rule.Channels {
				dup, err := IsDuplicate(e.db, batch.ID, u.ID, ch)
				if err != nil {
					log.Printf("⚠️  Dedup check failed for batch %d, user %d: %v",
						batch.ID, u.ID, err)
					continue
				}
				if dup {
					continue
				}

				rec := BuildRecord(rule, batch, u.ID, ch, daysLeft, sev)
				if _, err := Insert(e.db, rec); err != nil {
					log.Printf("⚠️  Failed to queue notification for batch %d, user %d: %v",
						batch.ID, u.ID, err)
					continue
				}
				created++
			}
		}
	}
	return created, nil
}

// publishBatchEvent emits one expiry event per candidate batch so the
// dashboard sees the scan result even before delivery.
func (e *Evaluator) publishBatchEvent(batch *inventory.Batch, sev Severity, daysLeft int) {
	if e.bus == nil {
		return
	}

	evType := events.BatchExpiring
	if sev == SeverityExpired {
		evType = events.BatchExpired
	}
	payload, _ := json.Marshal(BatchPayload{
		Product:    batch.ProductName,
		Quantity:   batch.Quantity,
		Unit:       batch.Unit,
		Department: batch.Department,
		ExpiryDate: batch.ExpiryDate.Format("2006-01-02"),
		DaysLeft:   daysLeft,
	})

	e.bus.Publish(events.Event{
		Type:    evType,
		HotelID: batch.HotelID,
		Message: fmt.Sprintf("%s: %d day(s) left", batch.ProductName, daysLeft),
		Payload: payload,
		Metadata: map[string]string{
			"severity": sev.String(),
		},
	})
}
