package notify

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	"shelfwatch/internal/models"
)

// dedupWindow is how far back a fingerprint suppresses re-alerting.
const dedupWindow = 24 * time.Hour

// Fingerprint derives the stable dedup key for one delivery: the same
// batch, recipient and channel hash to the same key for a whole
// calendar day.
func Fingerprint(batchID, recipientID int64, channel models.Channel, day time.Time) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s|%s",
		batchID, recipientID, channel, day.UTC().Format("2006-01-02"))))
	return fmt.Sprintf("%x", h)
}

// IsDuplicate reports whether a non-failed record already exists for
// today's fingerprint within the dedup window. Failed records do not
// count: a permanently failed attempt must not block a fresh cycle for
// the same logical event.
//
// The caller inserts after this check without a transaction; two
// passes racing here can produce a duplicate alert, which is accepted
// as rare and non-corrupting.
func IsDuplicate(db *sql.DB, batchID, recipientID int64, channel models.Channel) (bool, error) {
	fp := Fingerprint(batchID, recipientID, channel, time.Now())
	return HasRecentFingerprint(db, fp, time.Now().UTC().Add(-dedupWindow))
}
