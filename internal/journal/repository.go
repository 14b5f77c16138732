package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout sorts lexically in the same order as the instants it encodes.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// Entry is one journaled connection event.
type Entry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	DeviceID   string    `json:"deviceId"`
	PrevID     string    `json:"prevId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RemoteAddr string    `json:"remoteAddr,omitempty"`
	Online     int       `json:"online"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Filter controls which entries List returns.
type Filter struct {
	DeviceID string // optional: entries whose device_id or prev_id matches
	Kind     string // optional: connected, renamed, replaced, removed
	Limit    int    // default 50, max 500
	Offset   int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines journal storage operations.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the connection_events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts e. ID and OccurredAt are generated when empty.
func (r *SQLiteRepository) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC().Truncate(time.Millisecond)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO connection_events (id, kind, device_id, prev_id, reason, remote_addr, online, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.DeviceID,
		nullableString(e.PrevID), nullableString(e.Reason), nullableString(e.RemoteAddr),
		e.Online, e.OccurredAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting connection event: %w", err)
	}
	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.DeviceID != "" {
		conditions = append(conditions, "(device_id = ? OR prev_id = ?)")
		args = append(args, filter.DeviceID, filter.DeviceID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM connection_events " + where //nolint:gosec // WHERE holds placeholders only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting connection events: %w", err)
	}

	query := "SELECT id, kind, device_id, prev_id, reason, remote_addr, online, occurred_at FROM connection_events " + //nolint:gosec // WHERE holds placeholders only
		where + " ORDER BY occurred_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying connection events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var prevID, reason, remote sql.NullString
		var occurredAt string
		if err := rows.Scan(&e.ID, &e.Kind, &e.DeviceID, &prevID, &reason, &remote, &e.Online, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning connection event: %w", err)
		}
		e.PrevID = prevID.String
		e.Reason = reason.String
		e.RemoteAddr = remote.String

		t, err := time.Parse(timeLayout, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", occurredAt, err)
		}
		e.OccurredAt = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection events: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
