package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// sqlBackend keeps one user_records row per user. The same queries run on
// SQLite and Postgres; sqlx rebinds the placeholders per driver.
type sqlBackend struct {
	db        *sqlx.DB
	scanQuery string
	ownsDB    bool
}

const (
	getQuery    = `SELECT payload FROM user_records WHERE user_id = ?`
	upsertQuery = `INSERT INTO user_records (user_id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	sqliteScanQuery = `SELECT user_id, payload FROM user_records
WHERE EXISTS (SELECT 1 FROM json_each(payload, '$.trips') t WHERE json_extract(t.value, '$.start_date') = ?)`
	postgresScanQuery = `SELECT user_id, payload FROM user_records
WHERE EXISTS (SELECT 1 FROM jsonb_each(payload -> 'trips') t WHERE t.value ->> 'start_date' = ?)`

	sqliteSchema = `CREATE TABLE IF NOT EXISTS user_records (
	user_id    INTEGER PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
)

// NewSQLite opens (or creates) an embedded database at path.
func NewSQLite(ctx context.Context, path string) (*DocStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Writes are already serialized; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create user_records: %w", err)
	}
	return newDocStore("sqlite", &sqlBackend{db: db, scanQuery: sqliteScanQuery, ownsDB: true}), nil
}

// NewPostgres wraps a connected pool. The schema comes from the embedded
// migrations, and the caller keeps ownership of db.
func NewPostgres(db *sqlx.DB) *DocStore {
	return newDocStore("postgres", &sqlBackend{db: db, scanQuery: postgresScanQuery})
}

func (b *sqlBackend) get(ctx context.Context, userID int64) ([]byte, bool, error) {
	var payload []byte
	err := b.db.GetContext(ctx, &payload, b.db.Rebind(getQuery), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (b *sqlBackend) put(ctx context.Context, userID int64, payload []byte) error {
	// Sent as text so Postgres parses it into JSONB.
	_, err := b.db.ExecContext(ctx, b.db.Rebind(upsertQuery), userID, string(payload))
	return err
}

type recordRow struct {
	UserID  int64  `db:"user_id"`
	Payload []byte `db:"payload"`
}

func (b *sqlBackend) startingOn(ctx context.Context, date string) (map[int64][]byte, error) {
	var rows []recordRow
	if err := b.db.SelectContext(ctx, &rows, b.db.Rebind(b.scanQuery), date); err != nil {
		return nil, err
	}
	out := make(map[int64][]byte, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Payload
	}
	return out, nil
}

func (b *sqlBackend) close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}
