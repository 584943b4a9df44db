// Package store owns the per-session embedded SQLite stores: one file
// per imported chat log, single writer, concurrent readers under WAL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chattrace/chattrace/internal/model"
)

// schema holds the base tables only. Secondary indexes are created by
// the importer after bulk load; indexing an unindexed bulk load once
// at the end is far cheaper than maintaining indexes during it.
const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS session (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    platform    TEXT NOT NULL,
    chat_kind   TEXT NOT NULL,
    imported_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS member (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    platform_id   TEXT NOT NULL UNIQUE,
    display_name  TEXT NOT NULL,
    platform_nick TEXT
);

CREATE TABLE IF NOT EXISTS nickname_history (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    member_id INTEGER NOT NULL REFERENCES member(id),
    name      TEXT NOT NULL,
    start_ts  INTEGER NOT NULL,
    end_ts    INTEGER
);

CREATE TABLE IF NOT EXISTS message (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    member_id INTEGER NOT NULL REFERENCES member(id),
    ts        INTEGER NOT NULL,
    type      INTEGER NOT NULL,
    content   TEXT
);
`

// Store wraps one session's database file.
type Store struct {
	db   *sql.DB
	path string
}

// Create makes a new store file with base tables and no secondary
// indexes. It fails if the file already exists.
func Create(path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("store %s already exists", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Open opens an existing store. readOnly opens with query-only mode so
// analytics reads can never disturb a concurrent import of another
// session.
func Open(path string, readOnly bool) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, model.ErrSessionNotFound
	}
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// DB exposes the raw handle for the importer's transaction batching.
func (s *Store) DB() *sql.DB { return s.db }

// Checkpoint compacts the write-ahead log into the main store file so
// temporary-log growth stays bounded during bulk load.
func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// CreateIndexes builds the secondary indexes in bulk after import.
func (s *Store) CreateIndexes(ctx context.Context) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_message_ts ON message(ts)",
		"CREATE INDEX IF NOT EXISTS idx_message_member ON message(member_id, ts)",
		"CREATE INDEX IF NOT EXISTS idx_nickname_member ON nickname_history(member_id, start_ts)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// WriteSession inserts the single session row.
func (s *Store) WriteSession(ctx context.Context, sess model.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO session (id, name, platform, chat_kind, imported_at) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.Name, sess.Platform, string(sess.ChatKind), sess.ImportedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Session reads the session row.
func (s *Store) Session(ctx context.Context) (model.Session, error) {
	var sess model.Session
	var kind string
	var importedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, platform, chat_kind, imported_at FROM session LIMIT 1",
	).Scan(&sess.ID, &sess.Name, &sess.Platform, &kind, &importedAt)
	if err == sql.ErrNoRows {
		return sess, model.ErrSessionNotFound
	}
	if err != nil {
		return sess, fmt.Errorf("read session: %w", err)
	}
	sess.ChatKind = model.ChatKind(kind)
	sess.ImportedAt = time.Unix(importedAt, 0)
	return sess, nil
}

// Rename updates the session display name.
func (s *Store) Rename(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE session SET name = ?", name)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// Members returns all members keyed by internal row id.
func (s *Store) Members(ctx context.Context) (map[int64]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, platform_id, display_name, platform_nick FROM member")
	if err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}
	defer rows.Close()

	members := make(map[int64]model.Member)
	for rows.Next() {
		var m model.Member
		var nick sql.NullString
		if err := rows.Scan(&m.ID, &m.PlatformID, &m.DisplayName, &nick); err != nil {
			return nil, fmt.Errorf("read members: %w", err)
		}
		m.PlatformNick = nick.String
		members[m.ID] = m
	}
	return members, rows.Err()
}

// NicknameHistory returns every member's history entries ordered by
// start time, keyed by member id. Members with a single ever-used name
// have no entries.
func (s *Store) NicknameHistory(ctx context.Context) (map[int64][]model.NicknameHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, member_id, name, start_ts, end_ts FROM nickname_history ORDER BY member_id, start_ts")
	if err != nil {
		return nil, fmt.Errorf("read nickname history: %w", err)
	}
	defer rows.Close()

	hist := make(map[int64][]model.NicknameHistoryEntry)
	for rows.Next() {
		var e model.NicknameHistoryEntry
		var end sql.NullInt64
		if err := rows.Scan(&e.ID, &e.MemberID, &e.Name, &e.StartTS, &end); err != nil {
			return nil, fmt.Errorf("read nickname history: %w", err)
		}
		if end.Valid {
			v := end.Int64
			e.EndTS = &v
		}
		hist[e.MemberID] = append(hist[e.MemberID], e)
	}
	return hist, rows.Err()
}

// MessageRow is the projection analytics works on.
type MessageRow struct {
	MemberID int64
	TS       int64
	Type     model.MessageType
	Content  string
}

// FetchMessages returns the filtered row set ordered by timestamp
// ascending with insertion order as tie-break.
func (s *Store) FetchMessages(ctx context.Context, f *model.TimeFilter) ([]MessageRow, error) {
	query := "SELECT member_id, ts, type, content FROM message"
	var args []any
	if f != nil {
		query += " WHERE ts >= ? AND ts <= ?"
		args = append(args, f.Start, f.End)
	}
	query += " ORDER BY ts, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var r MessageRow
		var content sql.NullString
		var typ int
		if err := rows.Scan(&r.MemberID, &r.TS, &typ, &content); err != nil {
			return nil, fmt.Errorf("fetch messages: %w", err)
		}
		r.Type = model.MessageType(typ)
		r.Content = content.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByMember is the grouped aggregate behind activity ranking.
func (s *Store) CountByMember(ctx context.Context, f *model.TimeFilter) (map[int64]int64, error) {
	query := "SELECT member_id, COUNT(*) FROM message"
	var args []any
	if f != nil {
		query += " WHERE ts >= ? AND ts <= ?"
		args = append(args, f.Start, f.End)
	}
	query += " GROUP BY member_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by member: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("count by member: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CountByType is the grouped aggregate behind the type distribution.
func (s *Store) CountByType(ctx context.Context, f *model.TimeFilter) (map[model.MessageType]int64, error) {
	query := "SELECT type, COUNT(*) FROM message"
	var args []any
	if f != nil {
		query += " WHERE ts >= ? AND ts <= ?"
		args = append(args, f.Start, f.End)
	}
	query += " GROUP BY type"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.MessageType]int64)
	for rows.Next() {
		var typ int
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("count by type: %w", err)
		}
		counts[model.MessageType(typ)] = n
	}
	return counts, rows.Err()
}

// Counts returns total message and member counts, used to verify the
// parser's done event after import.
func (s *Store) Counts(ctx context.Context) (messages, members int64, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM message").Scan(&messages); err != nil {
		return 0, 0, fmt.Errorf("count messages: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member").Scan(&members); err != nil {
		return 0, 0, fmt.Errorf("count members: %w", err)
	}
	return messages, members, nil
}
