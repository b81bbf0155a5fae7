package session

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const sqliteSessionsSchemaV1 = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore persists sessions in a SQLite database, one JSON payload per row.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite session store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite session store")
	}
	// a single connection keeps ":memory:" databases alive and writes serialized
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(sqliteSessionsSchemaV1); err != nil {
		return errors.Wrap(err, "migrate sqlite session store")
	}
	return nil
}

func (s *SQLiteStore) ensureOpen() error {
	if s.closed {
		return errors.New("sqlite session store: closed")
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if sess == nil {
		return errors.New("sqlite session store: nil session")
	}

	touch(sess)
	data, err := encode(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, payload_json, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET payload_json = excluded.payload_json, updated_at_ms = excluded.updated_at_ms
`, sess.ID, string(data), sess.LastUpdated.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "save session %s", sess.ID)
	}
	log.Debug().Str("session_id", sess.ID).Msg("session saved to sqlite")
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload_json FROM sessions WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "%s", id)
		}
		return nil, errors.Wrapf(err, "load session %s", id)
	}
	return decode([]byte(payload))
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, updated_at_ms FROM sessions ORDER BY updated_at_ms DESC, id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Summary
	for rows.Next() {
		var (
			id string
			ms int64
		)
		if err := rows.Scan(&id, &ms); err != nil {
			return nil, errors.Wrap(err, "scan session row")
		}
		out = append(out, Summary{ID: id, LastUpdated: time.UnixMilli(ms).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
