package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/memodeck/memodeck/internal/domain"
	"github.com/memodeck/memodeck/internal/scheduler"
)

const cardColumns = `id, note_id, deck_id, template_ord, type, queue, due,
	interval, ease_factor, reps, lapses, left, original_deck, original_due,
	flag, modified, usn`

// scanCard reads one cards row, decoding the overloaded due column and the
// packed step counters.
func scanCard(row interface{ Scan(...any) error }) (*domain.Card, error) {
	var c domain.Card
	var due int64
	var left int
	err := row.Scan(
		&c.ID,
		&c.NoteID,
		&c.DeckID,
		&c.TemplateOrd,
		&c.Type,
		&c.Queue,
		&due,
		&c.Interval,
		&c.EaseFactor,
		&c.Reps,
		&c.Lapses,
		&left,
		&c.OriginalDeck,
		&c.OriginalDue,
		&c.Flag,
		&c.Modified,
		&c.USN,
	)
	if err != nil {
		return nil, err
	}
	c.Due = domain.DecodeDue(c.Type, c.Queue, due)
	c.Left = domain.UnpackLeft(left)
	return &c, nil
}

// Card retrieves a card by id.
func (db *DB) Card(id int64) (*domain.Card, error) {
	row := db.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scheduler.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card %d: %w", id, err)
	}
	return c, nil
}

// InsertCard inserts a new card.
func (db *DB) InsertCard(c *domain.Card) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.NoteID, c.DeckID, c.TemplateOrd,
		c.Type, c.Queue, c.Due.Encode(),
		c.Interval, c.EaseFactor, c.Reps, c.Lapses, c.Left.Pack(),
		c.OriginalDeck, c.OriginalDue,
		c.Flag, c.Modified, c.USN,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %d: %w", c.ID, err)
	}
	return nil
}

// UpdateCard persists a card's full scheduling state.
func (db *DB) UpdateCard(c *domain.Card) error {
	_, err := db.conn.Exec(`
		UPDATE cards
		SET note_id = ?, deck_id = ?, template_ord = ?, type = ?, queue = ?,
		    due = ?, interval = ?, ease_factor = ?, reps = ?, lapses = ?,
		    left = ?, original_deck = ?, original_due = ?, flag = ?,
		    modified = ?, usn = ?
		WHERE id = ?
	`,
		c.NoteID, c.DeckID, c.TemplateOrd, c.Type, c.Queue,
		c.Due.Encode(), c.Interval, c.EaseFactor, c.Reps, c.Lapses,
		c.Left.Pack(), c.OriginalDeck, c.OriginalDue, c.Flag,
		c.Modified, c.USN,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", c.ID, err)
	}
	return nil
}

// CardsOfNote retrieves sibling cards of a note, excluding one card.
func (db *DB) CardsOfNote(noteID, exceptCard int64) ([]*domain.Card, error) {
	return db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE note_id = ? AND id != ?
		ORDER BY id
	`, noteID, exceptCard)
}

// CardsInDeck retrieves all cards resident in a deck.
func (db *DB) CardsInDeck(deckID int64) ([]*domain.Card, error) {
	return db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE deck_id = ?
		ORDER BY id
	`, deckID)
}

// NewCards retrieves up to limit new cards of a deck in position order.
func (db *DB) NewCards(deckID int64, limit int) ([]*domain.Card, error) {
	return db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE deck_id = ? AND queue = ?
		ORDER BY due
		LIMIT ?
	`, deckID, domain.QueueNew, limit)
}

// DueReviews retrieves up to limit review cards of a deck due on or before
// maxDay, oldest due first.
func (db *DB) DueReviews(deckID int64, maxDay, limit int) ([]*domain.Card, error) {
	return db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE deck_id = ? AND queue = ? AND due <= ?
		ORDER BY due
		LIMIT ?
	`, deckID, domain.QueueReview, maxDay, limit)
}

// DueLearning retrieves intra-day learning and preview cards across the
// given decks coming due before the cutoff.
func (db *DB) DueLearning(deckIDs []int64, dueBefore int64) ([]*domain.Card, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	args := []any{domain.QueueLearning, domain.QueuePreviewFiltered}
	for _, id := range deckIDs {
		args = append(args, id)
	}
	args = append(args, dueBefore)
	return db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE queue IN (?, ?) AND deck_id IN (`+placeholders(len(deckIDs))+`) AND due < ?
		ORDER BY due
	`, args...)
}

// DueDayLearning retrieves day-granularity learning cards across the given
// decks due on or before maxDay.
func (db *DB) DueDayLearning(deckIDs []int64, maxDay int) ([]*domain.Card, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	args := []any{domain.QueueDayLearn}
	for _, id := range deckIDs {
		args = append(args, id)
	}
	args = append(args, maxDay)
	return db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE queue = ? AND deck_id IN (`+placeholders(len(deckIDs))+`) AND due <= ?
		ORDER BY due
	`, args...)
}

// MaxNewPosition returns the highest position currently used in the new
// queue, or zero when there are no new cards.
func (db *DB) MaxNewPosition() (int, error) {
	var pos int
	err := db.conn.QueryRow(`
		SELECT COALESCE(MAX(due), 0) FROM cards WHERE queue = ?
	`, domain.QueueNew).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to read max new position: %w", err)
	}
	return pos, nil
}

// ShiftNewPositions moves every new card at or after start by the given
// offset, making room for repositioned cards.
func (db *DB) ShiftNewPositions(start, by int) error {
	_, err := db.conn.Exec(`
		UPDATE cards SET due = due + ? WHERE queue = ? AND due >= ?
	`, by, domain.QueueNew, start)
	if err != nil {
		return fmt.Errorf("failed to shift new positions: %w", err)
	}
	return nil
}

// FindCards gathers cards matching a filtered-deck selector. Suspended,
// buried and already-borrowed cards never match.
func (db *DB) FindCards(sel scheduler.CardSelector) ([]*domain.Card, error) {
	var (
		where = []string{"c.queue >= 0", "c.original_deck = 0"}
		joins string
		args  []any
	)

	if sel.DeckName != "" {
		where = append(where, `c.deck_id IN (
			SELECT id FROM decks WHERE name = ? OR name LIKE ? ESCAPE '\'
		)`)
		args = append(args, sel.DeckName, likeEscape(sel.DeckName)+domain.DeckSeparator+"%")
	}
	if sel.NewOnly {
		where = append(where, "c.queue = ?")
		args = append(args, domain.QueueNew)
	}
	if sel.DueOnly {
		where = append(where, "c.queue = ?", "c.due <= ?")
		args = append(args, domain.QueueReview, sel.Today)
	}
	if sel.Tag != "" {
		joins = " JOIN notes n ON n.id = c.note_id"
		where = append(where, "' ' || n.tags || ' ' LIKE ?")
		args = append(args, "% "+sel.Tag+" %")
	}

	order := "c.due"
	switch sel.Order {
	case domain.OrderRandom:
		order = "RANDOM()"
	case domain.OrderIntervalDesc:
		order = "c.interval DESC"
	case domain.OrderAdded:
		order = "c.id"
	case domain.OrderLapses:
		order = "c.lapses DESC"
	}

	query := `SELECT ` + prefixColumns("c") + ` FROM cards c` + joins +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order
	if sel.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", sel.Limit)
	}
	return db.queryCards(query, args...)
}

func (db *DB) queryCards(query string, args ...any) ([]*domain.Card, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// placeholders builds a "?, ?, ..." list of n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// prefixColumns qualifies the card column list with a table alias.
func prefixColumns(alias string) string {
	cols := strings.Split(cardColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// likeEscape escapes LIKE wildcards in a literal prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
