package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/roomsync-server/internal/store"
)

// Schema is the room lifecycle log layout. It is applied on every New and is
// safe to run against an existing database.
const Schema = `
CREATE TABLE IF NOT EXISTS room_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id       TEXT    NOT NULL,
	kind          TEXT    NOT NULL,
	connection_id TEXT    NOT NULL DEFAULT '',
	player_name   TEXT    NOT NULL DEFAULT '',
	members       INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_events_room ON room_events(room_id, id DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// ApplySchema creates the tables used by the store.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertRoomEvent appends ev to the log and sets ev.ID.
func (s *SQLiteStore) InsertRoomEvent(ctx context.Context, ev *store.RoomEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO room_events (room_id, kind, connection_id, player_name, members, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		ev.RoomID, string(ev.Kind), ev.ConnectionID, ev.PlayerName, ev.Members, ev.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert room event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	ev.ID = id
	return nil
}

// ListRoomEvents returns events newest first. An empty RoomID lists every room.
func (s *SQLiteStore) ListRoomEvents(ctx context.Context, filter store.EventFilter) ([]*store.RoomEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = store.DefaultEventLimit
	}

	query := `
		SELECT id, room_id, kind, connection_id, player_name, members, created_at
		FROM room_events
	`
	args := make([]any, 0, 2)
	if filter.RoomID != "" {
		query += ` WHERE room_id = ?`
		args = append(args, filter.RoomID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query room events: %w", err)
	}
	defer rows.Close()

	var events []*store.RoomEvent
	for rows.Next() {
		var (
			ev        store.RoomEvent
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&ev.ID, &ev.RoomID, &kind, &ev.ConnectionID, &ev.PlayerName, &ev.Members, &createdAt); err != nil {
			return nil, fmt.Errorf("scan room event: %w", err)
		}
		ev.Kind = store.RoomEventKind(kind)
		ev.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room events: %w", err)
	}

	return events, nil
}
