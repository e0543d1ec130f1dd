package domain

import "strings"

// DeckSeparator joins deck path segments in a deck name.
const DeckSeparator = "::"

// Deck is a named container of cards. Filtered decks additionally carry a
// FilteredConfig and borrow their cards from other decks. The per-day
// counters belong to the day in TodayStamp and are reset lazily on rollover.
type Deck struct {
	ID       int64
	Name     string // "Parent::Child" path naming
	ConfigID int64

	Filtered       bool
	FilteredConfig *FilteredDeckConfig

	NewToday    int
	ReviewToday int
	LearnToday  int
	TodayStamp  int

	Modified int64
	USN      int
}

// RollCounters zeroes the per-day counters if they belong to an earlier day.
func (d *Deck) RollCounters(today int) {
	if d.TodayStamp != today {
		d.TodayStamp = today
		d.NewToday = 0
		d.ReviewToday = 0
		d.LearnToday = 0
	}
}

// IsAncestorOf reports whether d's name is a strict path prefix of name.
func (d *Deck) IsAncestorOf(name string) bool {
	return strings.HasPrefix(name, d.Name+DeckSeparator)
}

// AncestorNames returns the names of all strict ancestors of the given deck
// name, outermost first. "A::B::C" yields ["A", "A::B"].
func AncestorNames(name string) []string {
	var out []string
	for i := 0; i+len(DeckSeparator) <= len(name); i++ {
		if name[i:i+len(DeckSeparator)] == DeckSeparator {
			out = append(out, name[:i])
		}
	}
	return out
}

// NewCardOrder selects how new cards are ordered within the new queue.
type NewCardOrder int

const (
	// NewCardOrderDue presents new cards in insertion-position order.
	NewCardOrderDue NewCardOrder = iota
	// NewCardOrderRandom presents new cards in a deterministic per-note
	// shuffle so that sibling cards of one note stay adjacent.
	NewCardOrderRandom
)

// ReviewOrder selects the secondary ordering of the review queue; the
// primary order is always due day ascending.
type ReviewOrder int

const (
	// ReviewOrderShuffled breaks due-day ties with a deterministic
	// per-card shuffle.
	ReviewOrderShuffled ReviewOrder = iota
	// ReviewOrderIntervalDesc shows longer-interval cards first.
	ReviewOrderIntervalDesc
	// ReviewOrderIntervalAsc shows shorter-interval cards first.
	ReviewOrderIntervalAsc
)

// LeechAction is what happens when a card crosses the leech threshold.
type LeechAction int

const (
	LeechSuspend LeechAction = iota
	LeechTagOnly
)

// DeckConfig is a shareable group of scheduling options. Step delays are in
// minutes, matching the persisted format. The validate tags are enforced at
// config load and before any config write.
type DeckConfig struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// New cards.
	NewSteps           []float64    `json:"newSteps" validate:"dive,gt=0"`
	NewPerDay          int          `json:"newPerDay" validate:"gte=0"`
	InitialEase        int          `json:"initialEase" validate:"gte=1300"`
	GraduatingInterval int          `json:"graduatingInterval" validate:"gte=1"`
	EasyInterval       int          `json:"easyInterval" validate:"gte=1"`
	NewCardOrder       NewCardOrder `json:"newCardOrder" validate:"gte=0,lte=1"`

	// Reviews.
	ReviewsPerDay      int         `json:"reviewsPerDay" validate:"gte=0"`
	ReviewOrder        ReviewOrder `json:"reviewOrder" validate:"gte=0,lte=2"`
	IntervalMultiplier float64     `json:"intervalMultiplier" validate:"gt=0"`
	EasyBonus          float64     `json:"easyBonus" validate:"gte=1"`
	MaxInterval        int         `json:"maxInterval" validate:"gte=1"`
	HardFactor         float64     `json:"hardFactor" validate:"gte=0.5,lte=1.3"`

	// Lapses.
	LapseSteps       []float64   `json:"lapseSteps" validate:"dive,gt=0"`
	LapseMultiplier  float64     `json:"lapseMultiplier" validate:"gte=0,lte=1"`
	LapseMinInterval int         `json:"lapseMinInterval" validate:"gte=1"`
	LeechThreshold   int         `json:"leechThreshold" validate:"gte=0"`
	LeechAction      LeechAction `json:"leechAction" validate:"gte=0,lte=1"`

	// Burying.
	BuryNew     bool `json:"buryNew"`
	BuryReviews bool `json:"buryReviews"`

	// MaxAnswerSecs caps the time-taken recorded per answer.
	MaxAnswerSecs int `json:"maxAnswerSecs" validate:"gte=1"`
}

// DefaultDeckConfig returns the stock configuration new decks start with.
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		Name:               "Default",
		NewSteps:           []float64{1, 10},
		NewPerDay:          20,
		InitialEase:        2500,
		GraduatingInterval: 1,
		EasyInterval:       4,
		NewCardOrder:       NewCardOrderDue,
		ReviewsPerDay:      200,
		IntervalMultiplier: 1.0,
		EasyBonus:          1.3,
		MaxInterval:        36500,
		HardFactor:         1.2,
		LapseSteps:         []float64{10},
		LapseMultiplier:    0,
		LapseMinInterval:   1,
		LeechThreshold:     8,
		LeechAction:        LeechSuspend,
		BuryNew:            true,
		BuryReviews:        true,
		MaxAnswerSecs:      60,
	}
}

// FilteredOrder selects the display order of cards gathered into a
// filtered deck.
type FilteredOrder int

const (
	OrderOldestDue FilteredOrder = iota
	OrderRandom
	OrderIntervalDesc
	OrderAdded
	OrderLapses
)

// SearchTerm is one gather step of a filtered deck rebuild.
type SearchTerm struct {
	Search string        `json:"search"`
	Limit  int           `json:"limit" validate:"gte=1"`
	Order  FilteredOrder `json:"order" validate:"gte=0,lte=4"`
}

// FilteredDeckConfig configures a filtered (cram) deck.
type FilteredDeckConfig struct {
	SearchTerms []SearchTerm `json:"searchTerms" validate:"min=1,dive"`
	// Reschedule controls whether answers inside the filtered deck feed
	// back into the cards' normal schedule.
	Reschedule bool `json:"reschedule"`
	// CustomSteps, when non-empty, overrides the home deck's steps while
	// the card is in the filtered deck (legacy option).
	CustomSteps []float64 `json:"customSteps" validate:"dive,gt=0"`
	// PreviewDelay is the Again re-show delay in minutes for
	// non-rescheduling decks.
	PreviewDelay int `json:"previewDelay" validate:"gte=0"`
}
