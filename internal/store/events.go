package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of *sql.DB and *sql.Tx the queries need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the console's SQL statements.
type Queries struct {
	db DBTX
}

// New creates Queries over db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Event is a row of the events table.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"user_id"`
	IpAddress string        `json:"ip_address"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

const createEvent = `INSERT INTO events (level, category, message, user_id, ip_address, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, ip_address, metadata, created_at`

// CreateEventParams holds the columns of a new event.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IpAddress string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an event. A zero CreatedAt means now.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	if arg.CreatedAt.IsZero() {
		arg.CreatedAt = time.Now()
	}
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.UserID,
		arg.IpAddress,
		arg.Metadata,
		arg.CreatedAt.UTC(),
	)
	var i Event
	err := row.Scan(
		&i.ID,
		&i.Level,
		&i.Category,
		&i.Message,
		&i.UserID,
		&i.IpAddress,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const listRecentEvents = `SELECT id, level, category, message, user_id, ip_address, metadata, created_at
FROM events
ORDER BY created_at DESC, id DESC
LIMIT ?`

// ListRecentEvents returns the newest events first.
func (q *Queries) ListRecentEvents(ctx context.Context, limit int64) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listRecentEvents, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		var i Event
		if err := rows.Scan(
			&i.ID,
			&i.Level,
			&i.Category,
			&i.Message,
			&i.UserID,
			&i.IpAddress,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countEvents = `SELECT COUNT(*) FROM events`

// CountEvents returns the number of stored events.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEvents).Scan(&count)
	return count, err
}

const countEventsByLevel = `SELECT COUNT(*) FROM events WHERE level = ?`

// CountEventsByLevel returns the number of events with the given level.
func (q *Queries) CountEventsByLevel(ctx context.Context, level string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEventsByLevel, level).Scan(&count)
	return count, err
}

const deleteEventsBefore = `DELETE FROM events WHERE created_at < ?`

// DeleteEventsBefore removes events older than before and returns how many.
func (q *Queries) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEventsBefore, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
