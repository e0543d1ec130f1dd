package scheduler

import (
	"math"
	"sort"

	"github.com/memodeck/memodeck/internal/domain"
)

// queueEntry is one (sort key, card id) pair in a runtime queue.
type queueEntry struct {
	key int64
	id  int64
}

// cardQueues is the in-memory cache of the three study queues. It is
// rebuilt from storage on demand and must be dropped after any external
// mutation.
type cardQueues struct {
	newQ    []queueEntry // key: position or per-note rank
	lrnQ    []queueEntry // key: due epoch second
	dayLrnQ []queueEntry // key: due day
	revQ    []queueEntry // key: due day packed with secondary order
	today   int
}

func (q *cardQueues) remove(id int64) {
	q.newQ = dropEntry(q.newQ, id)
	q.lrnQ = dropEntry(q.lrnQ, id)
	q.dayLrnQ = dropEntry(q.dayLrnQ, id)
	q.revQ = dropEntry(q.revQ, id)
}

func (q *cardQueues) pushLearning(id, dueStamp int64) {
	q.lrnQ = append(q.lrnQ, queueEntry{key: dueStamp, id: id})
	sortEntries(q.lrnQ)
}

func dropEntry(entries []queueEntry, id int64) []queueEntry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

func sortEntries(entries []queueEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
}

// Counts returns the remaining (new, learning, review) counts for the
// active deck branch.
func (s *Scheduler) Counts() (int, int, int, error) {
	if err := s.ensureQueues(); err != nil {
		return 0, 0, 0, err
	}
	q := s.queues
	return len(q.newQ), len(q.lrnQ) + len(q.dayLrnQ), len(q.revQ), nil
}

// NextCard pops the next card to study, or nil when the session is done.
// Entries whose card no longer satisfies the queue predicate (mutated
// behind the cache) are skipped silently.
func (s *Scheduler) NextCard() (*domain.Card, error) {
	if err := s.ensureQueues(); err != nil {
		return nil, err
	}
	q := s.queues
	now := s.now().Unix()
	horizon := s.now().Add(s.lookAhead).Unix()

	for {
		switch {
		case len(q.lrnQ) > 0 && q.lrnQ[0].key <= now:
			e := q.lrnQ[0]
			q.lrnQ = q.lrnQ[1:]
			if c := s.revalidate(e.id, func(c *domain.Card) bool {
				return (c.Queue == domain.QueueLearning || c.Queue == domain.QueuePreviewFiltered) &&
					c.Due.Value <= horizon
			}); c != nil {
				return c, nil
			}

		case len(q.dayLrnQ) > 0:
			e := q.dayLrnQ[0]
			q.dayLrnQ = q.dayLrnQ[1:]
			if c := s.revalidate(e.id, func(c *domain.Card) bool {
				return c.Queue == domain.QueueDayLearn && c.Due.Value <= int64(q.today)
			}); c != nil {
				return c, nil
			}

		case len(q.revQ) > 0:
			e := q.revQ[0]
			q.revQ = q.revQ[1:]
			if c := s.revalidate(e.id, func(c *domain.Card) bool {
				return c.Queue == domain.QueueReview && c.Due.Value <= int64(q.today)
			}); c != nil {
				return c, nil
			}

		case len(q.newQ) > 0:
			e := q.newQ[0]
			q.newQ = q.newQ[1:]
			if c := s.revalidate(e.id, func(c *domain.Card) bool {
				return c.Queue == domain.QueueNew
			}); c != nil {
				return c, nil
			}

		case len(q.lrnQ) > 0 && q.lrnQ[0].key <= horizon:
			e := q.lrnQ[0]
			q.lrnQ = q.lrnQ[1:]
			if c := s.revalidate(e.id, func(c *domain.Card) bool {
				return c.Queue == domain.QueueLearning || c.Queue == domain.QueuePreviewFiltered
			}); c != nil {
				return c, nil
			}

		default:
			return nil, nil
		}
	}
}

// revalidate refetches a popped candidate and checks it still belongs in
// the queue it was cached for. Returns nil to skip stale entries.
func (s *Scheduler) revalidate(id int64, pred func(*domain.Card) bool) *domain.Card {
	card, err := s.store.Card(id)
	if err != nil || card == nil {
		return nil
	}
	if !pred(card) {
		return nil
	}
	return card
}

func (s *Scheduler) ensureQueues() error {
	if s.queues != nil && s.queues.today == s.Timing().Today {
		return nil
	}
	return s.buildQueues()
}

// buildQueues fills the three queues for the active deck branch under the
// per-deck daily limits.
func (s *Scheduler) buildQueues() error {
	t := s.Timing()
	q := &cardQueues{today: t.Today}

	decks, byName, err := s.activeDecks()
	if err != nil {
		return err
	}
	if err := s.unburyExpired(decks, t); err != nil {
		return err
	}

	if len(decks) == 1 && decks[0].Filtered {
		if err := s.buildFilteredQueues(q, decks[0], t); err != nil {
			return err
		}
		s.queues = q
		return nil
	}

	remNew, remRev, err := s.remainingAllowances(decks, byName, t)
	if err != nil {
		return err
	}

	for _, deck := range decks {
		if deck.Filtered {
			continue
		}
		cfg, err := s.store.DeckConfig(deck.ConfigID)
		if err != nil {
			return err
		}

		lim := s.foldedLimit(deck, byName, remNew)
		if lim > 0 {
			cards, err := s.store.NewCards(deck.ID, lim)
			if err != nil {
				return err
			}
			for _, c := range cards {
				key := c.Due.Value
				if cfg.NewCardOrder == domain.NewCardOrderRandom {
					key = int64(shuffleRank(c.NoteID, t.Today))
				}
				q.newQ = append(q.newQ, queueEntry{key: key, id: c.ID})
			}
			s.consumeAllowance(deck, byName, remNew, len(cards))
		}

		lim = s.foldedLimit(deck, byName, remRev)
		if lim > 0 {
			cards, err := s.store.DueReviews(deck.ID, t.Today, lim)
			if err != nil {
				return err
			}
			for _, c := range cards {
				q.revQ = append(q.revQ, queueEntry{key: reviewKey(c, cfg.ReviewOrder, t.Today), id: c.ID})
			}
			s.consumeAllowance(deck, byName, remRev, len(cards))
		}
	}

	ids := make([]int64, 0, len(decks))
	for _, d := range decks {
		ids = append(ids, d.ID)
	}
	lrn, err := s.store.DueLearning(ids, t.DayCutoff)
	if err != nil {
		return err
	}
	for _, c := range lrn {
		q.lrnQ = append(q.lrnQ, queueEntry{key: c.Due.Value, id: c.ID})
	}
	dayLrn, err := s.store.DueDayLearning(ids, t.Today)
	if err != nil {
		return err
	}
	for _, c := range dayLrn {
		q.dayLrnQ = append(q.dayLrnQ, queueEntry{key: c.Due.Value, id: c.ID})
	}

	sortEntries(q.newQ)
	sortEntries(q.lrnQ)
	sortEntries(q.dayLrnQ)
	sortEntries(q.revQ)

	s.queues = q
	return nil
}

// unburyExpired restores buried cards in the given decks once the study day
// has moved past the day the session last expired them for. Burial lasts for
// the remainder of the day it happened on, never longer.
func (s *Scheduler) unburyExpired(decks []*domain.Deck, t Timing) error {
	prev := s.unburyDay
	s.unburyDay = t.Today
	if prev < 0 || prev == t.Today {
		return nil
	}

	for _, d := range decks {
		cards, err := s.store.CardsInDeck(d.ID)
		if err != nil {
			return err
		}
		for _, c := range cards {
			if !c.Queue.Buried() {
				continue
			}
			c.Queue = restoredQueue(c)
			if err := s.touch(c); err != nil {
				return err
			}
			if err := s.store.UpdateCard(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildFilteredQueues fills the queues for a selected filtered deck. Daily
// limits do not apply to borrowed cards.
func (s *Scheduler) buildFilteredQueues(q *cardQueues, deck *domain.Deck, t Timing) error {
	cards, err := s.store.CardsInDeck(deck.ID)
	if err != nil {
		return err
	}
	for _, c := range cards {
		switch c.Queue {
		case domain.QueueNew:
			q.newQ = append(q.newQ, queueEntry{key: c.Due.Value, id: c.ID})
		case domain.QueueLearning, domain.QueuePreviewFiltered:
			q.lrnQ = append(q.lrnQ, queueEntry{key: c.Due.Value, id: c.ID})
		case domain.QueueDayLearn:
			if c.Due.Value <= int64(t.Today) {
				q.dayLrnQ = append(q.dayLrnQ, queueEntry{key: c.Due.Value, id: c.ID})
			}
		case domain.QueueReview:
			if c.Due.Value <= int64(t.Today) {
				q.revQ = append(q.revQ, queueEntry{key: c.Due.Value, id: c.ID})
			}
		}
	}
	sortEntries(q.newQ)
	sortEntries(q.lrnQ)
	sortEntries(q.dayLrnQ)
	sortEntries(q.revQ)
	return nil
}

// activeDecks returns the selected deck and its descendants, excluding
// filtered decks other than the selection itself, plus a name index over
// all decks for ancestor walks.
func (s *Scheduler) activeDecks() ([]*domain.Deck, map[string]*domain.Deck, error) {
	all, err := s.store.AllDecks()
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]*domain.Deck, len(all))
	var selected *domain.Deck
	for _, d := range all {
		byName[d.Name] = d
		if d.ID == s.selected {
			selected = d
		}
	}
	if s.selected != 0 && selected == nil {
		return nil, nil, ErrDeckNotFound
	}

	var active []*domain.Deck
	for _, d := range all {
		switch {
		case selected == nil:
			if !d.Filtered {
				active = append(active, d)
			}
		case d.ID == selected.ID:
			active = append(active, d)
		case selected.IsAncestorOf(d.Name) && !d.Filtered:
			active = append(active, d)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })
	return active, byName, nil
}

// remainingAllowances computes each relevant deck's remaining new and
// review allowance for today: its configured limit minus what it has
// already served. Ancestors of active decks are included so limit folds
// can reach above the selection.
func (s *Scheduler) remainingAllowances(active []*domain.Deck, byName map[string]*domain.Deck, t Timing) (map[int64]int, map[int64]int, error) {
	remNew := make(map[int64]int)
	remRev := make(map[int64]int)

	add := func(d *domain.Deck) error {
		if _, ok := remNew[d.ID]; ok || d.Filtered {
			return nil
		}
		cfg, err := s.store.DeckConfig(d.ConfigID)
		if err != nil {
			return err
		}
		d.RollCounters(t.Today)
		remNew[d.ID] = max(0, cfg.NewPerDay-d.NewToday)
		remRev[d.ID] = max(0, cfg.ReviewsPerDay-d.ReviewToday)
		return nil
	}

	for _, d := range active {
		if err := add(d); err != nil {
			return nil, nil, err
		}
		for _, name := range domain.AncestorNames(d.Name) {
			if parent, ok := byName[name]; ok {
				if err := add(parent); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return remNew, remRev, nil
}

// foldedLimit is the ancestor-minimum fold: a deck's effective allowance is
// the minimum of its own remaining allowance and every ancestor's.
func (s *Scheduler) foldedLimit(deck *domain.Deck, byName map[string]*domain.Deck, remaining map[int64]int) int {
	lim, ok := remaining[deck.ID]
	if !ok {
		return 0
	}
	for _, name := range domain.AncestorNames(deck.Name) {
		parent, ok := byName[name]
		if !ok {
			continue
		}
		if r, ok := remaining[parent.ID]; ok && r < lim {
			lim = r
		}
	}
	return lim
}

// consumeAllowance charges served cards against the deck and all its
// ancestors, so later decks in the walk see the reduced allowance.
func (s *Scheduler) consumeAllowance(deck *domain.Deck, byName map[string]*domain.Deck, remaining map[int64]int, n int) {
	charge := func(id int64) {
		if r, ok := remaining[id]; ok {
			remaining[id] = max(0, r-n)
		}
	}
	charge(deck.ID)
	for _, name := range domain.AncestorNames(deck.Name) {
		if parent, ok := byName[name]; ok {
			charge(parent.ID)
		}
	}
}

// reviewKey packs (due day, secondary order) into one sortable key.
func reviewKey(c *domain.Card, order domain.ReviewOrder, today int) int64 {
	var secondary uint32
	switch order {
	case domain.ReviewOrderIntervalDesc:
		ivl := c.Interval
		if ivl > math.MaxInt32 {
			ivl = math.MaxInt32
		}
		secondary = uint32(math.MaxInt32 - ivl)
	case domain.ReviewOrderIntervalAsc:
		secondary = uint32(c.Interval)
	default:
		secondary = shuffleRank(c.ID, today)
	}
	return c.Due.Value<<32 | int64(secondary)
}
