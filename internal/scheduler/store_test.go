package scheduler

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/memodeck/memodeck/internal/domain"
)

// memStore is an in-memory Store for exercising the scheduler without a
// database. Reads return copies, like a real storage layer would.
type memStore struct {
	cards   map[int64]*domain.Card
	notes   map[int64]*domain.Note
	decks   map[int64]*domain.Deck
	configs map[int64]domain.DeckConfig
	revlog  []domain.ReviewLogEntry
	usn     int
}

func newMemStore() *memStore {
	m := &memStore{
		cards:   make(map[int64]*domain.Card),
		notes:   make(map[int64]*domain.Note),
		decks:   make(map[int64]*domain.Deck),
		configs: make(map[int64]domain.DeckConfig),
	}
	cfg := domain.DefaultDeckConfig()
	cfg.ID = 1
	m.configs[1] = cfg
	m.decks[1] = &domain.Deck{ID: 1, Name: "Default", ConfigID: 1}
	return m
}

func (m *memStore) addDeck(id int64, name string, cfg domain.DeckConfig) *domain.Deck {
	cfg.ID = id
	m.configs[id] = cfg
	d := &domain.Deck{ID: id, Name: name, ConfigID: id}
	m.decks[id] = d
	return d
}

func (m *memStore) addFilteredDeck(id int64, name string, fcfg domain.FilteredDeckConfig) *domain.Deck {
	d := &domain.Deck{ID: id, Name: name, ConfigID: 1, Filtered: true, FilteredConfig: &fcfg}
	m.decks[id] = d
	return d
}

func (m *memStore) addCard(c domain.Card) *domain.Card {
	if c.NoteID != 0 {
		if _, ok := m.notes[c.NoteID]; !ok {
			m.notes[c.NoteID] = &domain.Note{ID: c.NoteID}
		}
	}
	cp := c
	m.cards[c.ID] = &cp
	return &cp
}

func (m *memStore) Card(id int64) (*domain.Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) UpdateCard(c *domain.Card) error {
	cp := *c
	m.cards[c.ID] = &cp
	return nil
}

func (m *memStore) CardsOfNote(noteID, exceptCard int64) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range m.cards {
		if c.NoteID == noteID && c.ID != exceptCard {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

func (m *memStore) CardsInDeck(deckID int64) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range m.cards {
		if c.DeckID == deckID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortByID(out)
	return out, nil
}

func (m *memStore) Note(id int64) (*domain.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) UpdateNote(n *domain.Note) error {
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *memStore) Deck(id int64) (*domain.Deck, error) {
	d, ok := m.decks[id]
	if !ok {
		return nil, ErrDeckNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) DeckByName(name string) (*domain.Deck, error) {
	for _, d := range m.decks {
		if d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrDeckNotFound
}

func (m *memStore) AllDecks() ([]*domain.Deck, error) {
	var out []*domain.Deck
	for _, d := range m.decks {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateDeck(d *domain.Deck) error {
	cp := *d
	m.decks[d.ID] = &cp
	return nil
}

func (m *memStore) DeckConfig(id int64) (domain.DeckConfig, error) {
	if cfg, ok := m.configs[id]; ok {
		return cfg, nil
	}
	return domain.DefaultDeckConfig(), nil
}

func (m *memStore) AppendReview(e *domain.ReviewLogEntry) error {
	m.revlog = append(m.revlog, *e)
	return nil
}

func (m *memStore) DeleteReview(id int64) error {
	for i, e := range m.revlog {
		if e.ID == id {
			m.revlog = append(m.revlog[:i], m.revlog[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) NewCards(deckID int64, limit int) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range m.cards {
		if c.DeckID == deckID && c.Queue == domain.QueueNew {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Value < out[j].Due.Value })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) DueReviews(deckID int64, maxDay, limit int) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range m.cards {
		if c.DeckID == deckID && c.Queue == domain.QueueReview && c.Due.Value <= int64(maxDay) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Value < out[j].Due.Value })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) DueLearning(deckIDs []int64, dueBefore int64) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range m.cards {
		if !containsID(deckIDs, c.DeckID) {
			continue
		}
		if (c.Queue == domain.QueueLearning || c.Queue == domain.QueuePreviewFiltered) && c.Due.Value < dueBefore {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Value < out[j].Due.Value })
	return out, nil
}

func (m *memStore) DueDayLearning(deckIDs []int64, maxDay int) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range m.cards {
		if containsID(deckIDs, c.DeckID) && c.Queue == domain.QueueDayLearn && c.Due.Value <= int64(maxDay) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Due.Value < out[j].Due.Value })
	return out, nil
}

func (m *memStore) FindCards(sel CardSelector) ([]*domain.Card, error) {
	var deckIDs []int64
	if sel.DeckName != "" {
		for _, d := range m.decks {
			if d.Name == sel.DeckName || strings.HasPrefix(d.Name, sel.DeckName+domain.DeckSeparator) {
				deckIDs = append(deckIDs, d.ID)
			}
		}
	}

	var out []*domain.Card
	for _, c := range m.cards {
		if c.Filtered() || c.Queue == domain.QueueSuspended || c.Queue.Buried() {
			continue
		}
		if sel.DeckName != "" && !containsID(deckIDs, c.DeckID) {
			continue
		}
		if sel.NewOnly && c.Queue != domain.QueueNew {
			continue
		}
		if sel.DueOnly {
			due := c.Queue == domain.QueueReview && c.Due.Value <= int64(sel.Today)
			if !due {
				continue
			}
		}
		if sel.Tag != "" {
			n, ok := m.notes[c.NoteID]
			if !ok || !n.HasTag(sel.Tag) {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}

	switch sel.Order {
	case domain.OrderIntervalDesc:
		sort.Slice(out, func(i, j int) bool { return out[i].Interval > out[j].Interval })
	case domain.OrderLapses:
		sort.Slice(out, func(i, j int) bool { return out[i].Lapses > out[j].Lapses })
	case domain.OrderAdded:
		sortByID(out)
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].Due.Value < out[j].Due.Value })
	}
	if sel.Limit > 0 && len(out) > sel.Limit {
		out = out[:sel.Limit]
	}
	return out, nil
}

func (m *memStore) MaxNewPosition() (int, error) {
	maxPos := 0
	for _, c := range m.cards {
		if c.Queue == domain.QueueNew && int(c.Due.Value) > maxPos {
			maxPos = int(c.Due.Value)
		}
	}
	return maxPos, nil
}

func (m *memStore) ShiftNewPositions(start, by int) error {
	for _, c := range m.cards {
		if c.Queue == domain.QueueNew && int(c.Due.Value) >= start {
			c.Due = domain.Position(int(c.Due.Value) + by)
		}
	}
	return nil
}

func (m *memStore) NextUSN() (int, error) {
	m.usn++
	return m.usn, nil
}

func sortByID(cards []*domain.Card) {
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var (
	testCreated = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	testNow     = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

// newTestScheduler builds a scheduler with a fixed clock and seed.
func newTestScheduler(t *testing.T, store Store) *Scheduler {
	t.Helper()
	return New(store, Options{
		Created:      testCreated,
		RolloverHour: 4,
		Now:          func() time.Time { return testNow },
		Seed:         1,
	})
}

func mustCard(t *testing.T, store Store, id int64) *domain.Card {
	t.Helper()
	c, err := store.Card(id)
	if err != nil {
		t.Fatalf("Card(%d): %v", id, err)
	}
	return c
}
