package users

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// User is a staff member who can receive notifications. ChatID is the
// chat-bot binding; zero means the user has not linked a chat.
type User struct {
	ID           int64     `json:"id"`
	HotelID      int64     `json:"hotel_id"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	ChatID       int64     `json:"chat_id,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

const selectUsers = `
	SELECT id, hotel_id, department_id, name, COALESCE(email, ''), role,
	       chat_id, active, created_at
	FROM users`

// Create inserts a user and returns its id.
func Create(db *sql.DB, u *User) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO users (hotel_id, department_id, name, email, role, chat_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.HotelID, nullID(u.DepartmentID), u.Name, u.Email, u.Role,
		u.ChatID, boolInt(u.Active))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// Get retrieves a user by ID, or nil when it does not exist.
func Get(db *sql.DB, id int64) (*User, error) {
	rows, err := db.Query(selectUsers+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActive returns active users filtered by hotel, optionally by
// department, and by role membership. An empty roles list matches any
// role. An empty result is normal, not an error.
func ListActive(db *sql.DB, hotelID, departmentID *int64, roles []string) ([]User, error) {
	query := selectUsers + ` WHERE active = 1`
	args := []interface{}{}

	if hotelID != nil {
		query += ` AND hotel_id = ?`
		args = append(args, *hotelID)
	}
	if departmentID != nil {
		query += ` AND department_id = ?`
		args = append(args, *departmentID)
	}
	if len(roles) > 0 {
		query += ` AND role IN (?` + strings.Repeat(",?", len(roles)-1) + `)`
		for _, r := range roles {
			args = append(args, r)
		}
	}
	query += ` ORDER BY id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// BindChat stores the chat-bot binding for a user.
func BindChat(db *sql.DB, userID, chatID int64) error {
	res, err := db.Exec(`UPDATE users SET chat_id = ? WHERE id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("bind chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind chat: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bind chat: user not found")
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────

func scanUser(rows *sql.Rows) (User, error) {
	var u User
	var deptID sql.NullInt64
	var active int
	var createdAt string

	err := rows.Scan(&u.ID, &u.HotelID, &deptID, &u.Name, &u.Email,
		&u.Role, &u.ChatID, &active, &createdAt)
	if err != nil {
		return u, fmt.Errorf("scan user: %w", err)
	}

	if deptID.Valid {
		u.DepartmentID = &deptID.Int64
	}
	u.Active = active == 1
	u.CreatedAt = parseTime(createdAt)
	return u, nil
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
