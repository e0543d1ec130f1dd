package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/memodeck/memodeck/internal/domain"
)

// LeechTag is the tag attached to a note when a card leeches under the
// tag-only action.
const LeechTag = "leech"

// Options configures a Scheduler.
type Options struct {
	// Created is the collection creation time.
	Created time.Time
	// RolloverHour is the hour (0..23) at which a new study day begins.
	RolloverHour int
	// LookAhead pulls learning cards due slightly later into the queue
	// when nothing else is left. Zero means 20 minutes.
	LookAhead time.Duration
	// Now overrides the wall clock, for tests. Nil means time.Now.
	Now func() time.Time
	// Seed seeds the fuzzing source. Zero means seed from the clock.
	Seed int64
}

// Scheduler decides which card to study next and applies graded answers.
// It is single-writer: callers must serialize access externally.
type Scheduler struct {
	store     Store
	created   time.Time
	rollover  int
	lookAhead time.Duration
	now       func() time.Time
	rng       *rand.Rand

	selected int64
	queues   *cardQueues
	undo     undoState

	// unburyDay is the last day index buried cards were expired for, or -1
	// before the first queue build of the session.
	unburyDay int

	lastID int64
}

// New creates a Scheduler over the given store.
func New(store Store, opts Options) *Scheduler {
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	la := opts.LookAhead
	if la == 0 {
		la = 20 * time.Minute
	}
	seed := opts.Seed
	if seed == 0 {
		seed = nowFn().UnixNano()
	}
	return &Scheduler{
		store:     store,
		created:   opts.Created,
		rollover:  opts.RolloverHour,
		lookAhead: la,
		now:       nowFn,
		rng:       rand.New(rand.NewSource(seed)),
		unburyDay: -1,
	}
}

// Timing returns the current day index and next rollover cutoff.
func (s *Scheduler) Timing() Timing {
	return timingFor(s.now(), s.created, s.rollover)
}

// SelectDeck makes the given deck (and its descendants) the active study
// branch and invalidates the cached queues.
func (s *Scheduler) SelectDeck(id int64) error {
	if _, err := s.store.Deck(id); err != nil {
		return err
	}
	s.selected = id
	s.Reset()
	return nil
}

// SelectedDeck returns the id of the active deck branch.
func (s *Scheduler) SelectedDeck() int64 { return s.selected }

// Reset drops the cached queues. It must be called after any mutation made
// outside the scheduler before further queue reads.
func (s *Scheduler) Reset() { s.queues = nil }

// configFor resolves the deck config governing a card: the config of its
// home deck, so a card on loan to a filtered deck keeps its own options.
func (s *Scheduler) configFor(card *domain.Card) (domain.DeckConfig, error) {
	deck, err := s.store.Deck(card.HomeDeck())
	if err != nil {
		return domain.DeckConfig{}, err
	}
	return s.store.DeckConfig(deck.ConfigID)
}

// filteredConfigFor returns the filtered config of the deck the card is on
// loan to, or nil when the card is not filtered.
func (s *Scheduler) filteredConfigFor(card *domain.Card) (*domain.FilteredDeckConfig, error) {
	if !card.Filtered() {
		return nil, nil
	}
	deck, err := s.store.Deck(card.DeckID)
	if err != nil {
		return nil, err
	}
	if !deck.Filtered || deck.FilteredConfig == nil {
		return nil, nil
	}
	return deck.FilteredConfig, nil
}

// touch stamps a card as mutated: modification time and sync sequence number.
func (s *Scheduler) touch(card *domain.Card) error {
	usn, err := s.store.NextUSN()
	if err != nil {
		return err
	}
	card.USN = usn
	card.Modified = s.now().Unix()
	return nil
}

// nextLogID returns a unique, time-ordered review log id.
func (s *Scheduler) nextLogID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// bumpDeckCounters increments the served-today counter of the card's deck
// and every ancestor, so ancestor limit folds see child consumption.
func (s *Scheduler) bumpDeckCounters(deckID int64, queue domain.CardQueue, t Timing) error {
	deck, err := s.store.Deck(deckID)
	if err != nil {
		return err
	}
	decks := []*domain.Deck{deck}
	for _, name := range domain.AncestorNames(deck.Name) {
		parent, err := s.store.DeckByName(name)
		if err != nil {
			continue // gap in the tree, nothing to count against
		}
		decks = append(decks, parent)
	}
	for _, d := range decks {
		d.RollCounters(t.Today)
		switch queue {
		case domain.QueueNew:
			d.NewToday++
		case domain.QueueLearning, domain.QueueDayLearn:
			d.LearnToday++
		case domain.QueueReview:
			d.ReviewToday++
		}
		if err := s.store.UpdateDeck(d); err != nil {
			return err
		}
	}
	return nil
}

// refundDeckCounters reverses one bumpDeckCounters increment. Counters from
// a previous day are left alone; rolling over already discarded them.
func (s *Scheduler) refundDeckCounters(deckID int64, queue domain.CardQueue, t Timing) error {
	deck, err := s.store.Deck(deckID)
	if err != nil {
		return err
	}
	decks := []*domain.Deck{deck}
	for _, name := range domain.AncestorNames(deck.Name) {
		parent, err := s.store.DeckByName(name)
		if err != nil {
			continue
		}
		decks = append(decks, parent)
	}
	for _, d := range decks {
		if d.TodayStamp != t.Today {
			continue
		}
		switch queue {
		case domain.QueueNew:
			if d.NewToday > 0 {
				d.NewToday--
			}
		case domain.QueueLearning, domain.QueueDayLearn:
			if d.LearnToday > 0 {
				d.LearnToday--
			}
		case domain.QueueReview:
			if d.ReviewToday > 0 {
				d.ReviewToday--
			}
		}
		if err := s.store.UpdateDeck(d); err != nil {
			return err
		}
	}
	return nil
}

// checkLeech fires the leech action when the card's lapse count crosses the
// threshold, and again at every half-threshold after that. It reports
// whether the card must be suspended.
func (s *Scheduler) checkLeech(card *domain.Card, cfg domain.DeckConfig) (bool, error) {
	thresh := cfg.LeechThreshold
	if thresh == 0 || card.Lapses < thresh {
		return false, nil
	}
	half := thresh / 2
	if half < 1 {
		half = 1
	}
	if (card.Lapses-thresh)%half != 0 {
		return false, nil
	}

	note, err := s.store.Note(card.NoteID)
	if err == nil && note != nil {
		note.AddTag(LeechTag)
		note.Modified = s.now().Unix()
		if usn, uerr := s.store.NextUSN(); uerr == nil {
			note.USN = usn
		}
		if err := s.store.UpdateNote(note); err != nil {
			return false, err
		}
	}

	return cfg.LeechAction == domain.LeechSuspend, nil
}

// restoredQueue computes the queue a suspended or buried card returns to,
// from its type and due kind.
func restoredQueue(card *domain.Card) domain.CardQueue {
	switch card.Type {
	case domain.TypeNew:
		return domain.QueueNew
	case domain.TypeLearning, domain.TypeRelearning:
		if card.Due.Kind == domain.DueDay {
			return domain.QueueDayLearn
		}
		return domain.QueueLearning
	default:
		return domain.QueueReview
	}
}

func wrapCard(err error, id int64) error {
	return fmt.Errorf("card %d: %w", id, err)
}
