package notify

import (
	"database/sql"
	"fmt"
	"log"
)

// Migrate creates the notifications table.
//
// The fingerprint column is deliberately NOT unique: failed records are
// excluded from deduplication so a fresh cycle can retry the same
// logical event, and sqlite cannot express that conditionally. The
// check-then-insert in dedup.go is therefore best-effort under
// concurrent passes; see DESIGN.md.
func Migrate(db *sql.DB) error {
	log.Println("🔔 Running migration: Notifications")

	statements := []struct {
		label string
		sql   string
	}{
		{"notifications", `
			CREATE TABLE IF NOT EXISTS notifications (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				uid            TEXT    NOT NULL,
				hotel_id       INTEGER NOT NULL,
				recipient_id   INTEGER NOT NULL,
				batch_id       INTEGER,
				rule_id        INTEGER NOT NULL,
				type           TEXT    NOT NULL,
				channels       TEXT    NOT NULL,
				priority       INTEGER NOT NULL DEFAULT 1,
				title          TEXT    NOT NULL,
				message        TEXT    NOT NULL,
				payload        TEXT,
				status         TEXT    NOT NULL DEFAULT 'pending',
				retry_count    INTEGER NOT NULL DEFAULT 0,
				next_retry_at  DATETIME,
				failure_reason TEXT,
				fingerprint    TEXT    NOT NULL,
				created_at     DATETIME NOT NULL,
				delivered_at   DATETIME
			);`},
		{"notifications indexes", `
			CREATE INDEX IF NOT EXISTS idx_notif_due ON notifications(status, next_retry_at);
			CREATE INDEX IF NOT EXISTS idx_notif_fingerprint ON notifications(fingerprint, created_at);
			CREATE INDEX IF NOT EXISTS idx_notif_hotel ON notifications(hotel_id, created_at);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("notifications migration failed at [%s]: %w", s.label, err)
		}
		log.Printf("  ✓ %s", s.label)
	}

	log.Println("🔔 Migration completed: Notifications ready")
	return nil
}
