package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// Migrate creates the notification_rules table.
func Migrate(db *sql.DB) error {
	log.Println("📋 Running migration: Notification rules")

	statements := []struct {
		label string
		sql   string
	}{
		{"notification_rules", `
			CREATE TABLE IF NOT EXISTS notification_rules (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				hotel_id      INTEGER,
				department_id INTEGER,
				rule_type     TEXT    NOT NULL DEFAULT 'expiry',
				warning_days  INTEGER NOT NULL,
				critical_days INTEGER NOT NULL,
				channels      TEXT    NOT NULL,
				roles         TEXT    NOT NULL,
				enabled       INTEGER DEFAULT 1,
				created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP
			);`},
		{"notification_rules indexes", `
			CREATE INDEX IF NOT EXISTS idx_rules_enabled ON notification_rules(enabled, rule_type);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("rules migration failed at [%s]: %w", s.label, err)
		}
		log.Printf("  ✓ %s", s.label)
	}

	log.Println("📋 Migration completed: Notification rules ready")
	return nil
}

// Upsert creates the rule when ID is zero, otherwise updates it in
// place. The rule is validated first.
func Upsert(db *sql.DB, r *Rule) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, fmt.Errorf("invalid rule: %w", err)
	}

	channels, err := json.Marshal(r.Channels)
	if err != nil {
		return 0, fmt.Errorf("marshal channels: %w", err)
	}
	roles, err := json.Marshal(r.Roles)
	if err != nil {
		return 0, fmt.Errorf("marshal roles: %w", err)
	}

	if r.ID == 0 {
		res, err := db.Exec(`
			INSERT INTO notification_rules
				(hotel_id, department_id, rule_type, warning_days, critical_days,
				 channels, roles, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			nullID(r.HotelID), nullID(r.DepartmentID), string(r.RuleType),
			r.WarningDays, r.CriticalDays,
			string(channels), string(roles), boolInt(r.Enabled))
		if err != nil {
			return 0, fmt.Errorf("create rule: %w", err)
		}
		return res.LastInsertId()
	}

	res, err := db.Exec(`
		UPDATE notification_rules SET
			hotel_id = ?, department_id = ?, rule_type = ?,
			warning_days = ?, critical_days = ?, channels = ?, roles = ?,
			enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nullID(r.HotelID), nullID(r.DepartmentID), string(r.RuleType),
		r.WarningDays, r.CriticalDays, string(channels), string(roles),
		boolInt(r.Enabled), r.ID)
	if err != nil {
		return 0, fmt.Errorf("update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update rule: rows affected: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("update rule: not found")
	}
	return r.ID, nil
}

// Get retrieves a rule by ID, or nil when it does not exist.
func Get(db *sql.DB, id int64) (*Rule, error) {
	rows, err := db.Query(selectRules+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRule(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns rules visible to a hotel: its own plus the global ones.
// A nil hotelID returns every rule.
func List(db *sql.DB, hotelID *int64) ([]Rule, error) {
	query := selectRules + ` ORDER BY id`
	args := []interface{}{}
	if hotelID != nil {
		query = selectRules + ` WHERE hotel_id = ? OR hotel_id IS NULL ORDER BY id`
		args = append(args, *hotelID)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListEnabled returns enabled rules of the given type, most specific
// scope first (hotel+department before hotel-wide before global).
func ListEnabled(db *sql.DB, ruleType RuleType) ([]Rule, error) {
	rows, err := db.Query(selectRules+`
		WHERE enabled = 1 AND rule_type = ?
		ORDER BY hotel_id IS NULL, department_id IS NULL, id`,
		string(ruleType))
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// Delete removes a rule.
func Delete(db *sql.DB, id int64) error {
	res, err := db.Exec(`DELETE FROM notification_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete rule: not found")
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────

const selectRules = `
	SELECT id, hotel_id, department_id, rule_type, warning_days,
	       critical_days, channels, roles, enabled, created_at, updated_at
	FROM notification_rules`

func collectRules(rows *sql.Rows) ([]Rule, error) {
	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRule(rows *sql.Rows) (Rule, error) {
	var r Rule
	var hotelID, deptID sql.NullInt64
	var ruleType, channels, roles string
	var enabled int
	var createdAt, updatedAt string

	err := rows.Scan(&r.ID, &hotelID, &deptID, &ruleType, &r.WarningDays,
		&r.CriticalDays, &channels, &roles, &enabled, &createdAt, &updatedAt)
	if err != nil {
		return r, fmt.Errorf("scan rule: %w", err)
	}

	r.RuleType = RuleType(ruleType)
	if hotelID.Valid {
		r.HotelID = &hotelID.Int64
	}
	if deptID.Valid {
		r.DepartmentID = &deptID.Int64
	}
	if err := json.Unmarshal([]byte(channels), &r.Channels); err != nil {
		return r, fmt.Errorf("rule %d: bad channels column: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(roles), &r.Roles); err != nil {
		return r, fmt.Errorf("rule %d: bad roles column: %w", r.ID, err)
	}
	r.Enabled = enabled == 1
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)

	// Drop channels an old row may carry that are no longer valid.
	valid := r.Channels[:0]
	for _, c := range r.Channels {
		if c.IsValid() {
			valid = append(valid, c)
		}
	}
	r.Channels = valid

	return r, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullID(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
