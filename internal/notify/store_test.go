package notify

import (
	"database/sql"
	"testing"
	"time"

	"shelfwatch/internal/inventory"
	"shelfwatch/internal/models"
	"shelfwatch/internal/rules"
	"shelfwatch/internal/users"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}

	// Base tables from db.createSchema
	_, err = db.Exec(`
		CREATE TABLE departments (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			hotel_id INTEGER NOT NULL,
			name     TEXT    NOT NULL
		);
		CREATE TABLE users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			hotel_id      INTEGER NOT NULL,
			department_id INTEGER,
			name          TEXT    NOT NULL,
			email         TEXT,
			role          TEXT    NOT NULL,
			chat_id       INTEGER DEFAULT 0,
			active        INTEGER DEFAULT 1,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE batches (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			hotel_id      INTEGER NOT NULL,
			department_id INTEGER,
			product_name  TEXT    NOT NULL,
			quantity      REAL    NOT NULL DEFAULT 0,
			unit          TEXT    NOT NULL DEFAULT 'kg',
			expiry_date   DATE    NOT NULL,
			status        TEXT    NOT NULL DEFAULT 'active',
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		);`)
	if err != nil {
		t.Fatal(err)
	}

	if err := rules.Migrate(db); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, hotelID int64, deptID *int64, role string) int64 {
	t.Helper()
	id, err := users.Create(db, &users.User{
		HotelID:      hotelID,
		DepartmentID: deptID,
		Name:         "test user",
		Email:        "user@example.com",
		Role:         role,
		Active:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func seedBatch(t *testing.T, db *sql.DB, hotelID int64, product string, daysUntilExpiry int) int64 {
	t.Helper()
	id, err := inventory.Create(db, &inventory.Batch{
		HotelID:     hotelID,
		ProductName: product,
		Quantity:    3,
		Unit:        "kg",
		ExpiryDate:  time.Now().UTC().AddDate(0, 0, daysUntilExpiry),
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func seedRule(t *testing.T, db *sql.DB, channels []models.Channel) *rules.Rule {
	t.Helper()
	r := &rules.Rule{
		RuleType:     rules.TypeExpiry,
		WarningDays:  7,
		CriticalDays: 3,
		Channels:     channels,
		Roles:        []string{models.RoleChef},
		Enabled:      true,
	}
	id, err := rules.Upsert(db, r)
	if err != nil {
		t.Fatal(err)
	}
	r.ID = id
	return r
}

func testRecord(hotelID, recipientID int64, priority int) *NotificationRecord {
	return &NotificationRecord{
		HotelID:     hotelID,
		RecipientID: recipientID,
		RuleID:      1,
		Type:        TypeExpiryWarning,
		Channels:    []models.Channel{models.ChannelInApp},
		Priority:    priority,
		Title:       "Expiring soon: Milk",
		Message:     "Milk expires in 3 days",
		Fingerprint: "fp-test",
	}
}

func TestInsertFillsDefaults(t *testing.T) {
	db := setupTestDB(t)

	rec := testRecord(1, 1, 1)
	id, err := Insert(db, rec)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}
	if rec.UID == "" {
		t.Error("expected generated uid")
	}
	if rec.Status != StatusPending {
		t.Errorf("expected pending, got %q", rec.Status)
	}

	got, err := Get(db, id)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.UID != rec.UID {
		t.Errorf("uid mismatch: %q vs %q", got.UID, rec.UID)
	}
	if got.RetryCount != 0 || got.NextRetryAt != nil || got.DeliveredAt != nil {
		t.Error("fresh record must carry no retry or delivery state")
	}
}

func TestInsertRejectsBadChannels(t *testing.T) {
	db := setupTestDB(t)

	rec := testRecord(1, 1, 1)
	rec.Channels = nil
	if _, err := Insert(db, rec); err == nil {
		t.Error("expected error for empty channel set")
	}

	rec = testRecord(1, 1, 1)
	rec.Channels = []models.Channel{"pager"}
	if _, err := Insert(db, rec); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestInsertPersistsPayload(t *testing.T) {
	db := setupTestDB(t)

	rec := testRecord(1, 1, 2)
	rec.Payload = &BatchPayload{
		Product:    "Milk",
		Quantity:   3,
		Unit:       "l",
		Department: "Main Kitchen",
		ExpiryDate: "2026-09-04",
		DaysLeft:   3,
	}
	id, err := Insert(db, rec)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Get(db, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Payload == nil {
		t.Fatal("expected payload")
	}
	if got.Payload.Product != "Milk" || got.Payload.DaysLeft != 3 {
		t.Errorf("payload not persisted: %+v", got.Payload)
	}
}

func TestSelectDueOrdering(t *testing.T) {
	db := setupTestDB(t)

	// Insert low priority first so id order disagrees with priority order
	lowID, err := Insert(db, testRecord(1, 1, int(SeverityWarning)))
	if err != nil {
		t.Fatal(err)
	}
	highID, err := Insert(db, testRecord(1, 2, int(SeverityExpired)))
	if err != nil {
		t.Fatal(err)
	}

	due, err := SelectDue(db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due records, got %d", len(due))
	}
	if due[0].ID != highID || due[1].ID != lowID {
		t.Errorf("expected priority order [%d %d], got [%d %d]",
			highID, lowID, due[0].ID, due[1].ID)
	}
}

func TestSelectDueSkipsScheduledAndTerminal(t *testing.T) {
	db := setupTestDB(t)

	dueID, err := Insert(db, testRecord(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	// Scheduled in the future
	futureID, err := Insert(db, testRecord(1, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := MarkRetry(db, futureID, 1, time.Now().UTC().Add(time.Hour), "boom"); err != nil {
		t.Fatal(err)
	}

	// Terminal states
	deliveredID, err := Insert(db, testRecord(1, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	MarkDelivered(db, deliveredID)

	failedID, err := Insert(db, testRecord(1, 4, 1))
	if err != nil {
		t.Fatal(err)
	}
	MarkFailed(db, failedID, 3, "gave up")

	due, err := SelectDue(db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != dueID {
		t.Fatalf("expected only record %d due, got %+v", dueID, due)
	}
}

func TestSelectDuePicksElapsedRetry(t *testing.T) {
	db := setupTestDB(t)

	id, err := Insert(db, testRecord(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := MarkRetry(db, id, 1, time.Now().UTC().Add(-time.Minute), "boom"); err != nil {
		t.Fatal(err)
	}

	due, err := SelectDue(db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 {
		t.Fatalf("expected elapsed retry to be due, got %d records", len(due))
	}
	if due[0].Status != StatusRetry || due[0].RetryCount != 1 {
		t.Errorf("retry state not persisted: %q count %d", due[0].Status, due[0].RetryCount)
	}
	if due[0].FailureReason != "boom" {
		t.Errorf("expected failure reason kept, got %q", due[0].FailureReason)
	}
}

func TestMarkDelivered(t *testing.T) {
	db := setupTestDB(t)

	id, err := Insert(db, testRecord(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := MarkRetry(db, id, 1, time.Now().UTC(), "transient"); err != nil {
		t.Fatal(err)
	}
	if err := MarkDelivered(db, id); err != nil {
		t.Fatal(err)
	}

	got, err := Get(db, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusDelivered {
		t.Errorf("expected delivered, got %q", got.Status)
	}
	if got.DeliveredAt == nil {
		t.Error("expected delivered_at set")
	}
	if got.FailureReason != "" {
		t.Errorf("expected failure reason cleared, got %q", got.FailureReason)
	}
	if !got.Status.Terminal() {
		t.Error("delivered must be terminal")
	}
}

func TestMarkFailed(t *testing.T) {
	db := setupTestDB(t)

	id, err := Insert(db, testRecord(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := MarkFailed(db, id, 3, "Max retries exceeded: smtp down"); err != nil {
		t.Fatal(err)
	}

	got, err := Get(db, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed || got.RetryCount != 3 {
		t.Errorf("failed state not persisted: %q count %d", got.Status, got.RetryCount)
	}
	if got.FailureReason != "Max retries exceeded: smtp down" {
		t.Errorf("unexpected failure reason %q", got.FailureReason)
	}
}

func TestStatusUpdateMissingRecord(t *testing.T) {
	db := setupTestDB(t)

	if err := MarkSending(db, 9999); err == nil {
		t.Error("expected error claiming a missing record")
	}
}

func TestRecentScopesByHotel(t *testing.T) {
	db := setupTestDB(t)

	Insert(db, testRecord(1, 1, 1))
	Insert(db, testRecord(1, 2, 1))
	Insert(db, testRecord(2, 3, 1))

	hotel := int64(1)
	recent, err := Recent(db, &hotel, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records for hotel 1, got %d", len(recent))
	}

	all, err := Recent(db, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records without a hotel filter, got %d", len(all))
	}
}

func TestStatsGroupsByTypeAndStatus(t *testing.T) {
	db := setupTestDB(t)

	Insert(db, testRecord(1, 1, 1))
	Insert(db, testRecord(1, 2, 1))

	crit := testRecord(1, 3, 2)
	crit.Type = TypeExpiryCritical
	id, err := Insert(db, crit)
	if err != nil {
		t.Fatal(err)
	}
	MarkFailed(db, id, 3, "gave up")

	stats, err := Stats(db, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %+v", len(stats), stats)
	}

	counts := map[string]int{}
	for _, b := range stats {
		counts[b.Type+"/"+b.Status] = b.Count
	}
	if counts["expiry_warning/pending"] != 2 {
		t.Errorf("expected 2 pending warnings, got %d", counts["expiry_warning/pending"])
	}
	if counts["expiry_critical/failed"] != 1 {
		t.Errorf("expected 1 failed critical, got %d", counts["expiry_critical/failed"])
	}
}
