package users

import (
	"database/sql"
	"testing"

	"shelfwatch/internal/models"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec(`
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
		);`)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, hotelID int64, deptID *int64, role string, active bool) int64 {
	t.Helper()
	id, err := Create(db, &User{
		HotelID:      hotelID,
		DepartmentID: deptID,
		Name:         "test user",
		Email:        "user@example.com",
		Role:         role,
		Active:       active,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	id := createTestUser(t, db, 1, nil, models.RoleChef, true)

	u, err := Get(db, id)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.Role != models.RoleChef {
		t.Errorf("expected chef, got %q", u.Role)
	}
	if !u.Active {
		t.Error("expected active user")
	}
	if u.ChatID != 0 {
		t.Errorf("expected no chat binding, got %d", u.ChatID)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)

	u, err := Get(db, 55)
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}

func TestListActiveFiltersByRole(t *testing.T) {
	db := setupTestDB(t)

	createTestUser(t, db, 1, nil, models.RoleChef, true)
	createTestUser(t, db, 1, nil, models.RoleStorekeeper, true)
	createTestUser(t, db, 1, nil, models.RoleAdmin, true)

	hotel := int64(1)
	list, err := ListActive(db, &hotel, nil, []string{models.RoleChef, models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 users, got %d", len(list))
	}
	for _, u := range list {
		if u.Role == models.RoleStorekeeper {
			t.Error("storekeeper should be filtered out")
		}
	}
}

func TestListActiveFiltersByScope(t *testing.T) {
	db := setupTestDB(t)

	dept := int64(3)
	createTestUser(t, db, 1, &dept, models.RoleChef, true)
	createTestUser(t, db, 1, nil, models.RoleChef, true)
	createTestUser(t, db, 2, &dept, models.RoleChef, true)

	hotel := int64(1)
	list, err := ListActive(db, &hotel, &dept, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 user in hotel 1 department 3, got %d", len(list))
	}

	list, err = ListActive(db, &hotel, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 users in hotel 1, got %d", len(list))
	}
}

func TestListActiveSkipsInactive(t *testing.T) {
	db := setupTestDB(t)

	createTestUser(t, db, 1, nil, models.RoleChef, true)
	createTestUser(t, db, 1, nil, models.RoleChef, false)

	hotel := int64(1)
	list, err := ListActive(db, &hotel, nil, []string{models.RoleChef})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected only the active user, got %d", len(list))
	}
}

func TestBindChat(t *testing.T) {
	db := setupTestDB(t)
	id := createTestUser(t, db, 1, nil, models.RoleManager, true)

	if err := BindChat(db, id, 123456789); err != nil {
		t.Fatal(err)
	}

	u, err := Get(db, id)
	if err != nil {
		t.Fatal(err)
	}
	if u.ChatID != 123456789 {
		t.Errorf("expected chat binding 123456789, got %d", u.ChatID)
	}

	if err := BindChat(db, 9999, 1); err == nil {
		t.Error("expected error binding a missing user")
	}
}
