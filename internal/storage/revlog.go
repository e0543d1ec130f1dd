package storage

import (
	"fmt"

	"github.com/memodeck/memodeck/internal/domain"
)

// AppendReview appends one row to the review log.
func (db *DB) AppendReview(e *domain.ReviewLogEntry) error {
	_, err := db.conn.Exec(`
		INSERT INTO revlog (id, card_id, usn, button, interval,
			last_interval, ease_factor, taken_millis, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.CardID, e.USN, e.Button, e.Interval,
		e.LastInterval, e.EaseFactor, e.TakenMillis, e.Kind,
	)
	if err != nil {
		return fmt.Errorf("failed to append review for card %d: %w", e.CardID, err)
	}
	return nil
}

// DeleteReview removes one review log row, as part of undoing an answer.
func (db *DB) DeleteReview(id int64) error {
	_, err := db.conn.Exec(`DELETE FROM revlog WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review %d: %w", id, err)
	}
	return nil
}

// ReviewsOfCard retrieves a card's review history, oldest first.
func (db *DB) ReviewsOfCard(cardID int64) ([]domain.ReviewLogEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, card_id, usn, button, interval, last_interval,
			ease_factor, taken_millis, kind
		FROM revlog WHERE card_id = ?
		ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews of card %d: %w", cardID, err)
	}
	defer rows.Close()

	var entries []domain.ReviewLogEntry
	for rows.Next() {
		var e domain.ReviewLogEntry
		if err := rows.Scan(
			&e.ID, &e.CardID, &e.USN, &e.Button, &e.Interval,
			&e.LastInterval, &e.EaseFactor, &e.TakenMillis, &e.Kind,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReviewCountSince counts reviews logged at or after the given
// epoch-millisecond id threshold, for today-so-far statistics.
func (db *DB) ReviewCountSince(minID int64) (int, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM revlog WHERE id >= ?
	`, minID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}
