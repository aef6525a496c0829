package inventory

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "2006-01-02 15:04:05"
)

const selectBatches = `
	SELECT b.id, b.hotel_id, b.department_id, COALESCE(d.name, ''),
	       b.product_name, b.quantity, b.unit, b.expiry_date, b.status,
	       b.created_at
	FROM batches b
	LEFT JOIN departments d ON d.id = b.department_id`

// Create inserts a batch and returns its id.
func Create(db *sql.DB, b *Batch) (int64, error) {
	status := b.Status
	if status == "" {
		status = StatusActive
	}
	res, err := db.Exec(`
		INSERT INTO batches
			(hotel_id, department_id, product_name, quantity, unit, expiry_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.HotelID, nullID(b.DepartmentID), b.ProductName, b.Quantity,
		b.Unit, b.ExpiryDate.Format(dateFormat), string(status))
	if err != nil {
		return 0, fmt.Errorf("create batch: %w", err)
	}
	return res.LastInsertId()
}

// Get retrieves a batch by ID, or nil when it does not exist.
func Get(db *sql.DB, id int64) (*Batch, error) {
	rows, err := db.Query(selectBatches+` WHERE b.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	b, err := scanBatch(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListNearExpiry returns active batches whose expiry date falls within
// maxDaysLeft days from today (already-expired batches included),
// optionally scoped to a hotel and department. Written-off and consumed
// batches never match.
func ListNearExpiry(db *sql.DB, hotelID, departmentID *int64, maxDaysLeft int) ([]Batch, error) {
	query := selectBatches + `
		WHERE b.status = 'active'
		  AND date(b.expiry_date) <= date('now', ?)`
	args := []interface{}{fmt.Sprintf("+%d days", maxDaysLeft)}

	if hotelID != nil {
		query += ` AND b.hotel_id = ?`
		args = append(args, *hotelID)
	}
	if departmentID != nil {
		query += ` AND b.department_id = ?`
		args = append(args, *departmentID)
	}
	query += ` ORDER BY b.expiry_date, b.id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list near-expiry batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// WriteOff marks a batch as written off.
func WriteOff(db *sql.DB, id int64) error {
	res, err := db.Exec(`UPDATE batches SET status = 'written_off' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("write off batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write off batch: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("write off batch: not found")
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────

func scanBatch(rows *sql.Rows) (Batch, error) {
	var b Batch
	var deptID sql.NullInt64
	var status, expiry, createdAt string

	err := rows.Scan(&b.ID, &b.HotelID, &deptID, &b.Department,
		&b.ProductName, &b.Quantity, &b.Unit, &expiry, &status, &createdAt)
	if err != nil {
		return b, fmt.Errorf("scan batch: %w", err)
	}

	if deptID.Valid {
		b.DepartmentID = &deptID.Int64
	}
	b.Status = BatchStatus(status)
	b.ExpiryDate = parseDate(expiry)
	b.CreatedAt = parseDateTime(createdAt)
	return b, nil
}

func parseDate(s string) time.Time {
	if len(s) > len(dateFormat) {
		s = s[:len(dateFormat)]
	}
	t, _ := time.Parse(dateFormat, s)
	return t
}

func parseDateTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullID(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
