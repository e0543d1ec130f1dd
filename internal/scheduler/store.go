package scheduler

import "github.com/memodeck/memodeck/internal/domain"

// CardSelector is the fixed predicate set a filtered-deck search term
// compiles down to. There is deliberately no general query language; the
// storage collaborator interprets exactly these fields.
type CardSelector struct {
	// DeckName scopes the selection to a deck subtree. Empty means all decks.
	DeckName string
	// DueOnly keeps only cards due on or before Today.
	DueOnly bool
	// NewOnly keeps only new cards.
	NewOnly bool
	// Tag keeps only cards whose note carries the tag.
	Tag string
	// Today is the current day index, used by DueOnly.
	Today int
	// Order and Limit shape the result. Suspended, buried and
	// already-filtered cards are always excluded.
	Order domain.FilteredOrder
	Limit int
}

// Store is the persistence collaborator the scheduler mutates cards and the
// review log through. Implementations are not required to be safe for
// concurrent use; callers serialize access externally.
type Store interface {
	Card(id int64) (*domain.Card, error)
	UpdateCard(c *domain.Card) error
	CardsOfNote(noteID, exceptCard int64) ([]*domain.Card, error)
	CardsInDeck(deckID int64) ([]*domain.Card, error)

	Note(id int64) (*domain.Note, error)
	UpdateNote(n *domain.Note) error

	Deck(id int64) (*domain.Deck, error)
	DeckByName(name string) (*domain.Deck, error)
	AllDecks() ([]*domain.Deck, error)
	UpdateDeck(d *domain.Deck) error

	// DeckConfig resolves a config id, falling back to the default config
	// when the id is unknown.
	DeckConfig(id int64) (domain.DeckConfig, error)

	AppendReview(e *domain.ReviewLogEntry) error
	DeleteReview(id int64) error

	// Queue-building reads.
	NewCards(deckID int64, limit int) ([]*domain.Card, error)
	DueReviews(deckID int64, maxDay, limit int) ([]*domain.Card, error)
	DueLearning(deckIDs []int64, dueBefore int64) ([]*domain.Card, error)
	DueDayLearning(deckIDs []int64, maxDay int) ([]*domain.Card, error)

	// Filtered-deck gathering.
	FindCards(sel CardSelector) ([]*domain.Card, error)

	// New-card positioning.
	MaxNewPosition() (int, error)
	ShiftNewPositions(start, by int) error

	// NextUSN increments and returns the collection's sync sequence number.
	NextUSN() (int, error)
}
