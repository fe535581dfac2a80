//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteBusyTimeout = 5 * time.Second

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS eeprom (
		addr INTEGER PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

// SQLiteStore emulates an EEPROM in a sqlite file so simulated power loss
// (process exit) keeps the slot table. One row per byte address; missing rows
// read as erased (0xFF).
type SQLiteStore struct {
	db   *sql.DB
	size int
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, size int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eeprom: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("eeprom: apply pragma %q: %w", p, err)
		}
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("eeprom: apply schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, size: size}, nil
}

// Close finalises the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Size() int { return s.size }

func (s *SQLiteStore) ReadAt(p []byte, off int) error {
	if off < 0 || off+len(p) > s.size {
		return ErrOutOfRange
	}
	for i := range p {
		p[i] = 0xFF
	}
	rows, err := s.db.Query(
		`SELECT addr, value FROM eeprom WHERE addr >= ? AND addr < ?`,
		off, off+len(p),
	)
	if err != nil {
		return fmt.Errorf("eeprom: read: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr, value int
		if err := rows.Scan(&addr, &value); err != nil {
			return fmt.Errorf("eeprom: scan: %w", err)
		}
		p[addr-off] = byte(value)
	}
	return rows.Err()
}

func (s *SQLiteStore) WriteAt(p []byte, off int) error {
	if off < 0 || off+len(p) > s.size {
		return ErrOutOfRange
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("eeprom: begin: %w", err)
	}
	for i, b := range p {
		if _, err := tx.Exec(
			`INSERT INTO eeprom (addr, value) VALUES (?, ?)
			 ON CONFLICT(addr) DO UPDATE SET value = excluded.value`,
			off+i, int(b),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("eeprom: write addr %d: %w", off+i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eeprom: commit: %w", err)
	}
	return nil
}
