package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/memodeck/memodeck/internal/domain"
	"github.com/memodeck/memodeck/internal/scheduler"
)

const noteColumns = `id, hash, question, answer, context, tags, source_id, modified, usn`

func scanNote(row interface{ Scan(...any) error }) (*domain.Note, error) {
	var n domain.Note
	var sourceID sql.NullInt64
	err := row.Scan(
		&n.ID,
		&n.Hash,
		&n.Question,
		&n.Answer,
		&n.Context,
		&n.Tags,
		&sourceID,
		&n.Modified,
		&n.USN,
	)
	if err != nil {
		return nil, err
	}
	n.SourceID = sourceID.Int64
	return &n, nil
}

// Note retrieves a note by id.
func (db *DB) Note(id int64) (*domain.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scheduler.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note %d: %w", id, err)
	}
	return n, nil
}

// NoteByHash retrieves a note by its content hash, or nil when no note with
// that hash exists.
func (db *DB) NoteByHash(hash string) (*domain.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE hash = ?`, hash)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note by hash %s: %w", hash, err)
	}
	return n, nil
}

// InsertNote inserts a new note.
func (db *DB) InsertNote(n *domain.Note) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.Hash, n.Question, n.Answer, n.Context, n.Tags,
		nullableID(n.SourceID), n.Modified, n.USN,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", n.Hash, err)
	}
	return nil
}

// UpdateNote persists a note's content and tags.
func (db *DB) UpdateNote(n *domain.Note) error {
	_, err := db.conn.Exec(`
		UPDATE notes
		SET hash = ?, question = ?, answer = ?, context = ?, tags = ?,
		    source_id = ?, modified = ?, usn = ?
		WHERE id = ?
	`,
		n.Hash, n.Question, n.Answer, n.Context, n.Tags,
		nullableID(n.SourceID), n.Modified, n.USN,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note %d: %w", n.ID, err)
	}
	return nil
}

// NotesOfSource retrieves all notes ingested from a source.
func (db *DB) NotesOfSource(sourceID int64) ([]*domain.Note, error) {
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM notes WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes of source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote removes a note together with its cards and their review history.
func (db *DB) DeleteNote(id int64) error {
	if _, err := db.conn.Exec(`
		DELETE FROM revlog WHERE card_id IN (SELECT id FROM cards WHERE note_id = ?)
	`, id); err != nil {
		return fmt.Errorf("failed to delete review history for note %d: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM cards WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards of note %d: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
