package domain

// Card is the scheduling state of a single flashcard. One note produces one
// card per eligible template; cards are created by the ingest layer and only
// ever mutated (never deleted) by the scheduler.
type Card struct {
	ID          int64 // epoch-millisecond, time-ordered
	NoteID      int64
	DeckID      int64
	TemplateOrd int

	Type  CardType
	Queue CardQueue
	Due   Due
	// Interval is the current review interval in days. Zero until the card
	// has graduated at least once.
	Interval int
	// EaseFactor is fixed-point permille: 2500 means x2.5.
	EaseFactor int
	Reps       int
	Lapses     int
	Left       Left

	// OriginalDeck and OriginalDue are set while the card is on loan to a
	// filtered deck and restored when it is released. OriginalDeck != 0
	// iff the card is currently filtered.
	OriginalDeck int64
	OriginalDue  int64

	Flag     int // 0..7, informational only
	Modified int64
	USN      int
}

// Filtered reports whether the card is currently on loan to a filtered deck.
func (c *Card) Filtered() bool { return c.OriginalDeck != 0 }

// HomeDeck returns the deck whose configuration governs the card: the
// original deck while filtered, the current deck otherwise.
func (c *Card) HomeDeck() int64 {
	if c.OriginalDeck != 0 {
		return c.OriginalDeck
	}
	return c.DeckID
}

// Snapshot returns a copy of the card suitable for undo restoration.
func (c *Card) Snapshot() Card { return *c }

// Left holds the two step counters packed into the legacy `left` column:
// steps still reachable before today's cutoff, and steps remaining until
// graduation.
type Left struct {
	Today int
	Total int
}

// Pack encodes the counters into the single persisted integer.
func (l Left) Pack() int { return l.Today*1000 + l.Total }

// UnpackLeft splits the persisted integer back into the two counters.
func UnpackLeft(v int) Left { return Left{Today: v / 1000, Total: v % 1000} }

// ReviewLogEntry is one append-only row of the review log.
type ReviewLogEntry struct {
	ID     int64 // epoch-millisecond, time-ordered
	CardID int64
	USN    int
	Button Rating
	// Interval is the interval resulting from the answer: negative values
	// are seconds (intra-day learning), positive values are days.
	Interval     int
	LastInterval int
	EaseFactor   int
	TakenMillis  int
	Kind         ReviewKind
}
