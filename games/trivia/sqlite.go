/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schema = `CREATE TABLE IF NOT EXISTS settings (
  key varchar(64) PRIMARY KEY,
  value blob NOT NULL,
  updated_at timestamp NOT NULL
);`

// SQLiteStore keeps the key-value records in a single SQLite table.
type SQLiteStore struct {
	conn *sqlx.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.conn.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?;`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}

	if value == nil {
		value = []byte{}
	}

	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO settings(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		key, value, time.Now().UTC())

	return err
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
