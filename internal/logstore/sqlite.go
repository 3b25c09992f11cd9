package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const defaultSQLiteDSN = ":memory:"

const createLogsTable = `
CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens dsn and creates the logs table. The pool is held at a
// single connection because every new connection to ":memory:" would see
// an empty database of its own.
func OpenSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(createLogsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create logs table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, message string) (Record, error) {
	if err := validate(message); err != nil {
		return Record{}, err
	}
	ts := now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO logs (message, created_at) VALUES (?, ?)`, message, ts.UnixNano())
	if err != nil {
		return Record{}, fmt.Errorf("insert log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("insert log id: %w", err)
	}
	return Record{ID: id, Message: message, Time: ts}, nil
}

func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, message, created_at FROM logs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var nanos int64
		if err := rows.Scan(&rec.ID, &rec.Message, &nanos); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		rec.Time = time.Unix(0, nanos).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
