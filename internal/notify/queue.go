package notify

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"shelfwatch/internal/events"
	"shelfwatch/internal/inventory"
)

const (
	// MaxRetries bounds delivery attempts per record: the initial
	// attempt plus retries until retry_count reaches this value.
	MaxRetries = 3

	// queueBatchSize bounds how many due records one pass drains.
	queueBatchSize = 100
)

// backoffSchedule spaces retry attempts; the last value is reused when
// the schedule is shorter than the retry budget.
var backoffSchedule = []time.Duration{2 * time.Hour, 4 * time.Hour, 8 * time.Hour}

func backoffFor(retryCount int) time.Duration {
	idx := retryCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	return backoffSchedule[idx]
}

// QueueResult is the aggregate outcome of one queue pass.
type QueueResult struct {
	Delivered int `json:"delivered"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// QueueProcessor drains due notification records and drives each one
// through the delivery state machine. Every transition is persisted
// before the next record is touched.
type QueueProcessor struct {
	db       *sql.DB
	registry *Registry
	bus      *events.Bus
	limit    int
}

// NewQueueProcessor creates a processor over the given channel
// registry. The bus may be nil.
func NewQueueProcessor(db *sql.DB, registry *Registry, bus *events.Bus) *QueueProcessor {
	return &QueueProcessor{db: db, registry: registry, bus: bus, limit: queueBatchSize}
}

// ProcessQueue delivers up to one batch of due records, highest
// priority first. One record's failure never aborts the pass; only the
// initial due-record query can fail the call. An empty queue returns
// zero counters and no error.
func (q *QueueProcessor) ProcessQueue() (QueueResult, error) {
	var res QueueResult

	due, err := SelectDue(q.db, q.limit)
	if err != nil {
		return res, err
	}

	for i := range due {
		q.process(&due[i], &res)
	}

	if res.Delivered+res.Retried+res.Failed > 0 {
		log.Printf("📤 Queue pass: %d delivered, %d retried, %d failed",
			res.Delivered, res.Retried, res.Failed)
	}
	return res, nil
}

// process runs one record through sending → delivered | retry | failed.
func (q *QueueProcessor) process(rec *NotificationRecord, res *QueueResult) {
	if err := MarkSending(q.db, rec.ID); err != nil {
		log.Printf("⚠️  Could not claim notification %d: %v", rec.ID, err)
		return
	}

	// A batch that left active inventory makes the event moot; fail
	// immediately regardless of the remaining retry budget.
	if reason, moot := q.batchGone(rec); moot {
		q.fail(rec, rec.RetryCount, reason, res)
		return
	}

	var dispErr error
	for _, ch := range rec.Channels {
		if err := q.registry.Dispatch(rec, ch); err != nil {
			dispErr = err
			break
		}
	}

	if dispErr == nil {
		if err := MarkDelivered(q.db, rec.ID); err != nil {
			log.Printf("⚠️  Could not mark notification %d delivered: %v", rec.ID, err)
			return
		}
		res.Delivered++
		q.publishOutcome(rec, events.NotificationDelivered, "")
		return
	}

	retryCount := rec.RetryCount + 1
	if retryCount >= MaxRetries {
		q.fail(rec, retryCount, "Max retries exceeded: "+dispErr.Error(), res)
		return
	}

	nextRetry := time.Now().UTC().Add(backoffFor(retryCount))
	if err := MarkRetry(q.db, rec.ID, retryCount, nextRetry, dispErr.Error()); err != nil {
		log.Printf("⚠️  Could not schedule retry for notification %d: %v", rec.ID, err)
		return
	}
	res.Retried++
	log.Printf("🔁 Notification %d retry %d/%d at %s: %v",
		rec.ID, retryCount, MaxRetries, nextRetry.Format(timeFormat), dispErr)
}

// batchGone reports whether the record's source batch has left active
// inventory, with the failure reason to persist.
func (q *QueueProcessor) batchGone(rec *NotificationRecord) (string, bool) {
	if rec.BatchID == nil {
		return "", false
	}

	b, err := inventory.Get(q.db, *rec.BatchID)
	if err != nil {
		// Lookup trouble is not proof the batch is gone; let the
		// dispatch attempt (and its retry budget) handle it.
		log.Printf("⚠️  Batch lookup for notification %d failed: %v", rec.ID, err)
		return "", false
	}
	if b == nil {
		return "Source batch no longer active", true
	}
	switch b.Status {
	case inventory.StatusWrittenOff:
		return "Batch already written off", true
	case inventory.StatusConsumed:
		return "Source batch no longer active", true
	}
	return "", false
}

func (q *QueueProcessor) fail(rec *NotificationRecord, retryCount int, reason string, res *QueueResult) {
	if err := MarkFailed(q.db, rec.ID, retryCount, reason); err != nil {
		log.Printf("⚠️  Could not mark notification %d failed: %v", rec.ID, err)
		return
	}
	res.Failed++
	log.Printf("❌ Notification %d failed permanently: %s", rec.ID, reason)
	q.publishOutcome(rec, events.NotificationFailed, reason)
}

func (q *QueueProcessor) publishOutcome(rec *NotificationRecord, evType events.EventType, reason string) {
	if q.bus == nil {
		return
	}
	payload, _ := json.Marshal(rec)
	ev := events.Event{
		Type:    evType,
		HotelID: rec.HotelID,
		UserID:  rec.RecipientID,
		Message: rec.Title,
		Payload: payload,
	}
	if reason != "" {
		ev.Metadata = map[string]string{"failure_reason": reason}
	}
	q.bus.Publish(ev)
}
