package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/memodeck/memodeck/internal/domain"
	"github.com/memodeck/memodeck/internal/scheduler"
)

var validate = validator.New()

const deckColumns = `id, name, config_id, filtered, filtered_config,
	new_today, review_today, learn_today, today_stamp, modified, usn`

func scanDeck(row interface{ Scan(...any) error }) (*domain.Deck, error) {
	var d domain.Deck
	var fcfg sql.NullString
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.ConfigID,
		&d.Filtered,
		&fcfg,
		&d.NewToday,
		&d.ReviewToday,
		&d.LearnToday,
		&d.TodayStamp,
		&d.Modified,
		&d.USN,
	)
	if err != nil {
		return nil, err
	}
	if fcfg.Valid && fcfg.String != "" {
		var cfg domain.FilteredDeckConfig
		if err := json.Unmarshal([]byte(fcfg.String), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode filtered config of deck %d: %w", d.ID, err)
		}
		d.FilteredConfig = &cfg
	}
	return &d, nil
}

// Deck retrieves a deck by id.
func (db *DB) Deck(id int64) (*domain.Deck, error) {
	row := db.conn.QueryRow(`SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scheduler.ErrDeckNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deck %d: %w", id, err)
	}
	return d, nil
}

// DeckByName retrieves a deck by its full path name.
func (db *DB) DeckByName(name string) (*domain.Deck, error) {
	row := db.conn.QueryRow(`SELECT `+deckColumns+` FROM decks WHERE name = ?`, name)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scheduler.ErrDeckNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deck %q: %w", name, err)
	}
	return d, nil
}

// AllDecks retrieves every deck ordered by name.
func (db *DB) AllDecks() ([]*domain.Deck, error) {
	rows, err := db.conn.Query(`SELECT ` + deckColumns + ` FROM decks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query decks: %w", err)
	}
	defer rows.Close()

	var decks []*domain.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// InsertDeck inserts a new deck and returns it with its id assigned.
func (db *DB) InsertDeck(d *domain.Deck) error {
	fcfg, err := encodeFilteredConfig(d.FilteredConfig)
	if err != nil {
		return err
	}
	if d.Modified == 0 {
		d.Modified = time.Now().Unix()
	}
	res, err := db.conn.Exec(`
		INSERT INTO decks (name, config_id, filtered, filtered_config,
			new_today, review_today, learn_today, today_stamp, modified, usn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.Name, d.ConfigID, d.Filtered, fcfg,
		d.NewToday, d.ReviewToday, d.LearnToday, d.TodayStamp,
		d.Modified, d.USN,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck %q: %w", d.Name, err)
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get id of deck %q: %w", d.Name, err)
	}
	return nil
}

// UpdateDeck persists a deck's counters and configuration.
func (db *DB) UpdateDeck(d *domain.Deck) error {
	fcfg, err := encodeFilteredConfig(d.FilteredConfig)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		UPDATE decks
		SET name = ?, config_id = ?, filtered = ?, filtered_config = ?,
		    new_today = ?, review_today = ?, learn_today = ?, today_stamp = ?,
		    modified = ?, usn = ?
		WHERE id = ?
	`,
		d.Name, d.ConfigID, d.Filtered, fcfg,
		d.NewToday, d.ReviewToday, d.LearnToday, d.TodayStamp,
		d.Modified, d.USN,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deck %d: %w", d.ID, err)
	}
	return nil
}

func encodeFilteredConfig(cfg *domain.FilteredDeckConfig) (sql.NullString, error) {
	if cfg == nil {
		return sql.NullString{}, nil
	}
	blob, err := json.Marshal(cfg)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode filtered config: %w", err)
	}
	return sql.NullString{String: string(blob), Valid: true}, nil
}

// DeckConfig resolves an option group id, falling back to the built-in
// defaults when the id is unknown.
func (db *DB) DeckConfig(id int64) (domain.DeckConfig, error) {
	var blob string
	err := db.conn.QueryRow(`SELECT config FROM deck_configs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultDeckConfig(), nil
	}
	if err != nil {
		return domain.DeckConfig{}, fmt.Errorf("failed to find deck config %d: %w", id, err)
	}

	cfg := domain.DefaultDeckConfig()
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return domain.DeckConfig{}, fmt.Errorf("failed to decode deck config %d: %w", id, err)
	}
	cfg.ID = id
	return cfg, nil
}

// SaveDeckConfig validates and inserts or replaces an option group. A zero
// id assigns a fresh one.
func (db *DB) SaveDeckConfig(cfg *domain.DeckConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid deck config: %w", err)
	}
	if cfg.ID == 0 {
		var maxID int64
		if err := db.conn.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM deck_configs`).Scan(&maxID); err != nil {
			return fmt.Errorf("failed to allocate deck config id: %w", err)
		}
		cfg.ID = maxID + 1
	}
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode deck config %d: %w", cfg.ID, err)
	}
	if _, err := db.conn.Exec(`
		INSERT OR REPLACE INTO deck_configs (id, config)
		VALUES (?, ?)
	`, cfg.ID, string(blob)); err != nil {
		return fmt.Errorf("failed to save deck config %d: %w", cfg.ID, err)
	}
	return nil
}
