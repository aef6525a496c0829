package db

import (
	"database/sql"
	"fmt"
	"log"
)

// createSchema builds the base tables: hotels, departments, users and
// inventory batches. Rule and notification tables live with their own
// packages (rules.Migrate, notify.Migrate).
func createSchema(db *sql.DB) error {
	log.Println("🏨 Running migration: Base schema")

	statements := []struct {
		label string
		sql   string
	}{
		{"hotels", `
			CREATE TABLE IF NOT EXISTS hotels (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT    NOT NULL,
				brand      TEXT,
				timezone   TEXT DEFAULT 'UTC',
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);`},
		{"departments", `
			CREATE TABLE IF NOT EXISTS departments (
				id       INTEGER PRIMARY KEY AUTOINCREMENT,
				hotel_id INTEGER NOT NULL,
				name     TEXT    NOT NULL,
				UNIQUE(hotel_id, name),
				FOREIGN KEY (hotel_id) REFERENCES hotels(id) ON DELETE CASCADE
			);`},
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				hotel_id      INTEGER NOT NULL,
				department_id INTEGER,
				name          TEXT    NOT NULL,
				email         TEXT,
				role          TEXT    NOT NULL,
				chat_id       INTEGER DEFAULT 0,
				active        INTEGER DEFAULT 1,
				created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (hotel_id)      REFERENCES hotels(id)      ON DELETE CASCADE,
				FOREIGN KEY (department_id) REFERENCES departments(id) ON DELETE SET NULL
			);`},
		{"users indexes", `
			CREATE INDEX IF NOT EXISTS idx_users_hotel ON users(hotel_id, active);`},
		{"batches", `
			CREATE TABLE IF NOT EXISTS batches (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				hotel_id      INTEGER NOT NULL,
				department_id INTEGER,
				product_name  TEXT    NOT NULL,
				quantity      REAL    NOT NULL DEFAULT 0,
				unit          TEXT    NOT NULL DEFAULT 'kg',
				expiry_date   DATE    NOT NULL,
				status        TEXT    NOT NULL DEFAULT 'active',
				created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (hotel_id)      REFERENCES hotels(id)      ON DELETE CASCADE,
				FOREIGN KEY (department_id) REFERENCES departments(id) ON DELETE SET NULL
			);`},
		{"batches indexes", `
			CREATE INDEX IF NOT EXISTS idx_batches_expiry ON batches(status, expiry_date);
			CREATE INDEX IF NOT EXISTS idx_batches_hotel  ON batches(hotel_id, department_id);`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("base schema migration failed at [%s]: %w", s.label, err)
		}
		log.Printf("  ✓ %s", s.label)
	}

	log.Println("🏨 Migration completed: Base schema ready")
	return nil
}
