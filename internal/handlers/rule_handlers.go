package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"shelfwatch/internal/db"
	"shelfwatch/internal/rules"
)

// ListRules returns the rules visible to a hotel (its own plus global).
// GET /api/rules?hotel_id=N
func ListRules(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryID(r, "hotel_id")
	if err != nil {
		JSONError(w, "Invalid hotel_id", http.StatusBadRequest)
		return
	}

	list, err := rules.List(db.DB, hotelID)
	if err != nil {
		log.Printf("❌ List rules: %v", err)
		JSONError(w, "Failed to list rules", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []rules.Rule{}
	}
	JSONResponse(w, list)
}

// UpsertRule creates or updates a rule.
// POST /api/rules
func UpsertRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		JSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	id, err := rules.Upsert(db.DB, &rule)
	if err != nil {
		log.Printf("❌ Upsert rule: %v", err)
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := rules.Get(db.DB, id)
	if err != nil || saved == nil {
		log.Printf("❌ Reload rule %d: %v", id, err)
		JSONError(w, "Failed to load saved rule", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, saved)
}

// DeleteRule removes a rule.
// DELETE /api/rules/{id}
func DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		JSONError(w, "Invalid rule ID", http.StatusBadRequest)
		return
	}

	if err := rules.Delete(db.DB, id); err != nil {
		log.Printf("❌ Delete rule %d: %v", id, err)
		JSONError(w, "Failed to delete rule", http.StatusNotFound)
		return
	}
	JSONResponse(w, map[string]string{"status": "deleted"})
}
