package notify

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shelfwatch/internal/models"
)

const timeFormat = "2006-01-02 15:04:05"

const selectRecords = `
	SELECT id, uid, hotel_id, recipient_id, batch_id, rule_id, type,
	       channels, priority, title, message, payload, status,
	       retry_count, next_retry_at, COALESCE(failure_reason, ''),
	       fingerprint, created_at, delivered_at
	FROM notifications`

// Insert persists a new record in status pending and fills in the
// generated id, uid and creation time.
func Insert(db *sql.DB, rec *NotificationRecord) (int64, error) {
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.UID == "" {
		rec.UID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if len(rec.Channels) == 0 || !channelsValid(rec.Channels) {
		return 0, fmt.Errorf("insert notification: bad channel set %v", rec.Channels)
	}

	channels, err := json.Marshal(rec.Channels)
	if err != nil {
		return 0, fmt.Errorf("marshal channels: %w", err)
	}
	var payload interface{}
	if rec.Payload != nil {
		b, err := json.Marshal(rec.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload: %w", err)
		}
		payload = string(b)
	}

	res, err := db.Exec(`
		INSERT INTO notifications
			(uid, hotel_id, recipient_id, batch_id, rule_id, type, channels,
			 priority, title, message, payload, status, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UID, rec.HotelID, rec.RecipientID, nullID(rec.BatchID), rec.RuleID,
		string(rec.Type), string(channels), rec.Priority, rec.Title, rec.Message,
		payload, string(rec.Status), rec.Fingerprint,
		rec.CreatedAt.Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	return rec.ID, err
}

// Get retrieves a record by ID, or nil when it does not exist.
func Get(db *sql.DB, id int64) (*NotificationRecord, error) {
	rows, err := db.Query(selectRecords+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SelectDue returns up to limit records ready for delivery: pending or
// retry whose next attempt time is unset or has passed, highest
// priority first, oldest first within a priority.
func SelectDue(db *sql.DB, limit int) ([]NotificationRecord, error) {
	now := time.Now().UTC().Format(timeFormat)
	rows, err := db.Query(selectRecords+`
		WHERE status IN ('pending', 'retry')
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT ?`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due notifications: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// MarkSending claims a record for delivery.
func MarkSending(db *sql.DB, id int64) error {
	return setStatus(db, id, `UPDATE notifications SET status = 'sending' WHERE id = ?`, id)
}

// MarkDelivered finalizes a record after every channel succeeded.
func MarkDelivered(db *sql.DB, id int64) error {
	now := time.Now().UTC().Format(timeFormat)
	return setStatus(db, id, `
		UPDATE notifications
		SET status = 'delivered', delivered_at = ?, failure_reason = NULL
		WHERE id = ?`, now, id)
}

// MarkRetry schedules the next attempt after a failed dispatch.
func MarkRetry(db *sql.DB, id int64, retryCount int, nextRetryAt time.Time, reason string) error {
	return setStatus(db, id, `
		UPDATE notifications
		SET status = 'retry', retry_count = ?, next_retry_at = ?, failure_reason = ?
		WHERE id = ?`,
		retryCount, nextRetryAt.UTC().Format(timeFormat), reason, id)
}

// MarkFailed finalizes a record that will never be re-queued.
func MarkFailed(db *sql.DB, id int64, retryCount int, reason string) error {
	return setStatus(db, id, `
		UPDATE notifications
		SET status = 'failed', retry_count = ?, failure_reason = ?
		WHERE id = ?`,
		retryCount, reason, id)
}

// HasRecentFingerprint reports whether a non-failed record with the
// given fingerprint was created at or after since.
func HasRecentFingerprint(db *sql.DB, fingerprint string, since time.Time) (bool, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM notifications
		WHERE fingerprint = ? AND status != 'failed' AND created_at >= ?`,
		fingerprint, since.UTC().Format(timeFormat)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	return n > 0, nil
}

// Recent returns the latest records, optionally scoped to a hotel.
func Recent(db *sql.DB, hotelID *int64, limit int) ([]NotificationRecord, error) {
	query := selectRecords + ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args := []interface{}{limit}
	if hotelID != nil {
		query = selectRecords + ` WHERE hotel_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
		args = []interface{}{*hotelID, limit}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent notifications: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// StatBucket is one row of the operational stats aggregation.
type StatBucket struct {
	Day    string `json:"day"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Stats aggregates record counts by day, type and status for the
// dashboard, optionally scoped to a hotel and a date range.
func Stats(db *sql.DB, hotelID *int64, from, to *time.Time) ([]StatBucket, error) {
	query := `
		SELECT date(created_at), type, status, COUNT(*)
		FROM notifications WHERE 1=1`
	args := []interface{}{}
	if hotelID != nil {
		query += ` AND hotel_id = ?`
		args = append(args, *hotelID)
	}
	if from != nil {
		query += ` AND created_at >= ?`
		args = append(args, from.UTC().Format(timeFormat))
	}
	if to != nil {
		query += ` AND created_at < ?`
		args = append(args, to.UTC().Format(timeFormat))
	}
	query += ` GROUP BY date(created_at), type, status ORDER BY date(created_at), type, status`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	defer rows.Close()

	var out []StatBucket
	for rows.Next() {
		var b StatBucket
		if err := rows.Scan(&b.Day, &b.Type, &b.Status, &b.Count); err != nil {
			return nil, fmt.Errorf("scan stat bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ── helpers ──────────────────────────────────────────────────────────────

func setStatus(db *sql.DB, id int64, query string, args ...interface{}) error {
	res, err := db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update notification %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notification %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update notification %d: not found", id)
	}
	return nil
}

func collectRecords(rows *sql.Rows) ([]NotificationRecord, error) {
	var out []NotificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (NotificationRecord, error) {
	var rec NotificationRecord
	var batchID sql.NullInt64
	var recType, channels, status, createdAt string
	var payload, nextRetryAt, deliveredAt sql.NullString

	err := rows.Scan(&rec.ID, &rec.UID, &rec.HotelID, &rec.RecipientID,
		&batchID, &rec.RuleID, &recType, &channels, &rec.Priority,
		&rec.Title, &rec.Message, &payload, &status, &rec.RetryCount,
		&nextRetryAt, &rec.FailureReason, &rec.Fingerprint,
		&createdAt, &deliveredAt)
	if err != nil {
		return rec, fmt.Errorf("scan notification: %w", err)
	}

	if batchID.Valid {
		rec.BatchID = &batchID.Int64
	}
	rec.Type = NotificationType(recType)
	rec.Status = Status(status)
	if err := json.Unmarshal([]byte(channels), &rec.Channels); err != nil {
		return rec, fmt.Errorf("notification %d: bad channels column: %w", rec.ID, err)
	}
	if payload.Valid && payload.String != "" {
		var p BatchPayload
		if err := json.Unmarshal([]byte(payload.String), &p); err != nil {
			return rec, fmt.Errorf("notification %d: bad payload column: %w", rec.ID, err)
		}
		rec.Payload = &p
	}
	rec.CreatedAt = parseTime(createdAt)
	if nextRetryAt.Valid && nextRetryAt.String != "" {
		t := parseTime(nextRetryAt.String)
		rec.NextRetryAt = &t
	}
	if deliveredAt.Valid && deliveredAt.String != "" {
		t := parseTime(deliveredAt.String)
		rec.DeliveredAt = &t
	}
	return rec, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullID(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// channelsValid reports whether every channel on the record is known.
func channelsValid(cs []models.Channel) bool {
	for _, c := range cs {
		if !c.IsValid() {
			return false
		}
	}
	return true
}
