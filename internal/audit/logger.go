package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"papervault/internal/constants"
	"papervault/internal/logger"
)

// Logger provides fire-and-forget audit logging. Entries are queued on a
// buffered channel and written by a background goroutine, so request
// handling never blocks on the audit trail. A failed or dropped write is
// logged and discarded; it never propagates to the caller.
//
// The audit_log table is append-only: nothing in the application ever
// updates or deletes rows from it.
type Logger struct {
	db    *sql.DB
	log   *logger.Logger
	queue chan Entry
	done  chan struct{}
	once  sync.Once
}

// NewLogger creates a new audit logger and starts the background writer.
func NewLogger(db *sql.DB, log *logger.Logger) *Logger {
	l := &Logger{
		db:    db,
		log:   log,
		queue: make(chan Entry, constants.AuditQueueSize),
		done:  make(chan struct{}),
	}

	go l.writeLoop()

	return l
}

// Stop closes the queue and waits for the writer to drain it.
// Call during graceful shutdown.
func (l *Logger) Stop() {
	l.once.Do(func() {
		close(l.queue)
	})
	<-l.done
}

// Record queues an audit entry. It never blocks: when the queue is full the
// entry is dropped and a warning is logged.
func (l *Logger) Record(entry Entry) {
	if !IsValidAction(entry.Action) {
		l.log.Warn("Audit: dropping entry with invalid action %q", entry.Action)
		return
	}
	if !IsValidStatus(entry.Status) {
		l.log.Warn("Audit: dropping entry with invalid status %q", entry.Status)
		return
	}

	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().Unix()
	}

	defer func() {
		// Send on closed channel after Stop; the entry is lost, which is
		// acceptable during shutdown.
		if r := recover(); r != nil {
			l.log.Warn("Audit: dropped entry %s after shutdown", entry.Action)
		}
	}()

	select {
	case l.queue <- entry:
	default:
		l.log.Warn("Audit: queue full, dropping entry action=%s user=%s", entry.Action, entry.UserEmail)
	}
}

// writeLoop drains the queue until it is closed.
func (l *Logger) writeLoop() {
	defer close(l.done)

	for entry := range l.queue {
		if err := l.insert(entry); err != nil {
			l.log.Error("Audit: failed to write entry action=%s: %v", entry.Action, err)
		}
	}
}

// insert writes a single entry to the audit_log table.
func (l *Logger) insert(entry Entry) error {
	var detailsJSON sql.NullString
	if entry.Details != nil {
		jsonBytes, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(jsonBytes), Valid: true}
	}

	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO audit_log (timestamp, user_id, user_email, action, status,
		                       resource_type, resource_id, ip_address, user_agent, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Timestamp, userID, entry.UserEmail, entry.Action, entry.Status,
		entry.ResourceType, entry.ResourceID, entry.IPAddress, entry.UserAgent, detailsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
