package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memodeck/memodeck/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection. It implements
// scheduler.Store.
type DB struct {
	conn    *sql.DB
	created time.Time
}

// Open creates a new database connection, ensures the schema is up to date
// and bootstraps an empty collection on first use.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The driver is not safe for concurrent writers on one file.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.bootstrap(); err != nil {
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Created returns the collection creation time recorded at bootstrap.
func (db *DB) Created() time.Time {
	return db.created
}

// bootstrap inserts the collection row, the default option group and the
// default deck if they are missing, and loads the creation time.
func (db *DB) bootstrap() error {
	if _, err := db.conn.Exec(`
		INSERT OR IGNORE INTO col (id, created, usn)
		VALUES (1, ?, 0)
	`, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to bootstrap collection: %w", err)
	}

	cfg := domain.DefaultDeckConfig()
	cfg.ID = 1
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode default deck config: %w", err)
	}
	if _, err := db.conn.Exec(`
		INSERT OR IGNORE INTO deck_configs (id, config)
		VALUES (1, ?)
	`, string(blob)); err != nil {
		return fmt.Errorf("failed to bootstrap default deck config: %w", err)
	}

	if _, err := db.conn.Exec(`
		INSERT OR IGNORE INTO decks (id, name, config_id, modified)
		VALUES (1, 'Default', 1, ?)
	`, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to bootstrap default deck: %w", err)
	}

	var created int64
	if err := db.conn.QueryRow(`SELECT created FROM col WHERE id = 1`).Scan(&created); err != nil {
		return fmt.Errorf("failed to read collection creation time: %w", err)
	}
	db.created = time.Unix(created, 0)
	return nil
}

// NextUSN increments and returns the collection update sequence number.
func (db *DB) NextUSN() (int, error) {
	var usn int
	err := db.conn.QueryRow(`
		UPDATE col SET usn = usn + 1 WHERE id = 1
		RETURNING usn
	`).Scan(&usn)
	if err != nil {
		return 0, fmt.Errorf("failed to advance usn: %w", err)
	}
	return usn, nil
}
