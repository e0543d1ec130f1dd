package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Source represents a note source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source path and returns its ID.
func (db *DB) InsertSource(path string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path)
		VALUES (?)
	`, path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil if unknown.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.LastScanned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// AllSources retrieves all stored sources.
func (db *DB) AllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, last_scanned
		FROM sources
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source registration. Notes ingested from it keep
// their schedule; the next reconcile of a re-added source finds them by hash.
func (db *DB) DeleteSource(sourceID int64) error {
	if _, err := db.conn.Exec(`
		UPDATE notes SET source_id = NULL WHERE source_id = ?
	`, sourceID); err != nil {
		return fmt.Errorf("failed to detach notes from source ID %d: %w", sourceID, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return nil
}

// TouchSource updates the last_scanned timestamp for a source.
func (db *DB) TouchSource(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
