package handlers

import (
	"log"
	"net/http"
	"strconv"

	"shelfwatch/internal/db"
	"shelfwatch/internal/notify"
)

// Evaluator and Queue are set from main.go so manual triggers run the
// same passes the scheduler does.
var (
	Evaluator *notify.Evaluator
	Queue     *notify.QueueProcessor
)

// RecentNotifications returns the latest notification records.
// GET /api/notifications/recent?hotel_id=N&limit=N
func RecentNotifications(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryID(r, "hotel_id")
	if err != nil {
		JSONError(w, "Invalid hotel_id", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	recent, err := notify.Recent(db.DB, hotelID, limit)
	if err != nil {
		log.Printf("❌ Recent notifications: %v", err)
		JSONError(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	if recent == nil {
		recent = []notify.NotificationRecord{}
	}
	JSONResponse(w, recent)
}

// NotificationStats returns counts grouped by day, type and status.
// GET /api/notifications/stats?hotel_id=N&from=YYYY-MM-DD&to=YYYY-MM-DD
func NotificationStats(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryID(r, "hotel_id")
	if err != nil {
		JSONError(w, "Invalid hotel_id", http.StatusBadRequest)
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		JSONError(w, "Invalid from date", http.StatusBadRequest)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		JSONError(w, "Invalid to date", http.StatusBadRequest)
		return
	}

	stats, err := notify.Stats(db.DB, hotelID, from, to)
	if err != nil {
		log.Printf("❌ Notification stats: %v", err)
		JSONError(w, "Failed to aggregate stats", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []notify.StatBucket{}
	}
	JSONResponse(w, stats)
}

// TriggerEvaluate runs one rule-evaluation pass immediately.
// POST /api/engine/evaluate
func TriggerEvaluate(w http.ResponseWriter, r *http.Request) {
	if Evaluator == nil {
		JSONError(w, "Engine not ready", http.StatusServiceUnavailable)
		return
	}
	created, err := Evaluator.EvaluateRules()
	if err != nil {
		log.Printf("❌ Manual evaluation: %v", err)
		JSONError(w, "Evaluation failed", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, map[string]int{"created": created})
}

// TriggerProcess runs one queue-drain pass immediately.
// POST /api/engine/process
func TriggerProcess(w http.ResponseWriter, r *http.Request) {
	if Queue == nil {
		JSONError(w, "Engine not ready", http.StatusServiceUnavailable)
		return
	}
	res, err := Queue.ProcessQueue()
	if err != nil {
		log.Printf("❌ Manual queue pass: %v", err)
		JSONError(w, "Queue pass failed", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, res)
}
