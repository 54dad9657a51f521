package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"papervault/internal/constants"
)

// QueryOptions for filtering audit logs.
type QueryOptions struct {
	Limit        int
	Offset       int
	Action       string
	Status       string
	UserID       int64  // Filter by acting user (0 = no filter)
	UserEmail    string // Filter by acting user's email
	ResourceType string
	ResourceID   string
	Since        int64 // Unix timestamp
	Until        int64 // Unix timestamp
}

// buildFilters appends WHERE clauses for the options shared by Query and Count.
func buildFilters(query string, args []interface{}, opts QueryOptions) (string, []interface{}) {
	if opts.Action != "" {
		query += " AND action = ?"
		args = append(args, opts.Action)
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.UserID > 0 {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.UserEmail != "" {
		query += " AND user_email = ?"
		args = append(args, opts.UserEmail)
	}
	if opts.ResourceType != "" {
		query += " AND resource_type = ?"
		args = append(args, opts.ResourceType)
	}
	if opts.ResourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, opts.ResourceID)
	}
	if opts.Since > 0 {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}
	if opts.Until > 0 {
		query += " AND timestamp <= ?"
		args = append(args, opts.Until)
	}
	return query, args
}

// Query retrieves audit log entries with filters, newest first.
func Query(db *sql.DB, opts QueryOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = constants.AuditDefaultQueryLimit
	}
	if opts.Limit > constants.AuditMaxQueryLimit {
		opts.Limit = constants.AuditMaxQueryLimit
	}

	query := `SELECT id, timestamp, user_id, user_email, action, status,
	                 resource_type, resource_id, ip_address, user_agent, details_json
	          FROM audit_log WHERE 1=1`
	args := []interface{}{}
	query, args = buildFilters(query, args, opts)

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Count returns total number of audit entries matching filters.
func Count(db *sql.DB, opts QueryOptions) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_log WHERE 1=1`
	args := []interface{}{}
	query, args = buildFilters(query, args, opts)

	var count int64
	err := db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var userID sql.NullInt64
	var userAgent sql.NullString
	var detailsJSON sql.NullString

	err := rows.Scan(&entry.ID, &entry.Timestamp, &userID, &entry.UserEmail,
		&entry.Action, &entry.Status, &entry.ResourceType, &entry.ResourceID,
		&entry.IPAddress, &userAgent, &detailsJSON)
	if err != nil {
		return entry, fmt.Errorf("failed to scan audit log: %w", err)
	}

	if userID.Valid {
		entry.UserID = &userID.Int64
	}
	if userAgent.Valid {
		entry.UserAgent = userAgent.String
	}
	if detailsJSON.Valid {
		var details interface{}
		json.Unmarshal([]byte(detailsJSON.String), &details)
		entry.Details = details
	}

	return entry, nil
}
