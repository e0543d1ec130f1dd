package scheduler

import (
	"errors"

	"github.com/memodeck/memodeck/internal/domain"
)

// UnburyScope selects which buried cards an unbury operation touches.
type UnburyScope int

const (
	UnburyAll UnburyScope = iota
	UnburyManualOnly
	UnburySiblingOnly
)

// forEachCard applies op to every card in the batch, skipping cards that
// vanished mid-batch, and records one checkpoint undo entry covering all
// mutated cards.
func (s *Scheduler) forEachCard(ids []int64, name string, op func(*domain.Card) (bool, error)) error {
	var snaps []domain.Card
	for _, id := range ids {
		card, err := s.store.Card(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return wrapCard(err, id)
		}
		snap := card.Snapshot()
		changed, err := op(card)
		if err != nil {
			return wrapCard(err, id)
		}
		if !changed {
			continue
		}
		if err := s.touch(card); err != nil {
			return wrapCard(err, id)
		}
		if err := s.store.UpdateCard(card); err != nil {
			return wrapCard(err, id)
		}
		snaps = append(snaps, snap)
	}
	if len(snaps) > 0 {
		s.undo.pushCheckpoint(name, snaps)
		s.Reset()
	}
	return nil
}

// SuspendCards removes the cards from study until unsuspended. A card on
// loan to a filtered deck is first evicted back to its home deck.
func (s *Scheduler) SuspendCards(ids ...int64) error {
	return s.forEachCard(ids, "Suspend", func(card *domain.Card) (bool, error) {
		if card.Queue == domain.QueueSuspended {
			return false, nil
		}
		s.releaseFiltered(card)
		card.Queue = domain.QueueSuspended
		return true, nil
	})
}

// UnsuspendCards restores suspended cards to the queue implied by their type.
func (s *Scheduler) UnsuspendCards(ids ...int64) error {
	return s.forEachCard(ids, "Unsuspend", func(card *domain.Card) (bool, error) {
		if card.Queue != domain.QueueSuspended {
			return false, nil
		}
		card.Queue = restoredQueue(card)
		return true, nil
	})
}

// BuryCards hides the cards until unburied or the next day rollover.
func (s *Scheduler) BuryCards(ids ...int64) error {
	return s.forEachCard(ids, "Bury", func(card *domain.Card) (bool, error) {
		if card.Queue == domain.QueueSuspended || card.Queue.Buried() {
			return false, nil
		}
		card.Queue = domain.QueueManuallyBuried
		return true, nil
	})
}

// UnburyDeck restores buried cards in the deck branch, limited to the
// given scope.
func (s *Scheduler) UnburyDeck(deckID int64, scope UnburyScope) error {
	deck, err := s.store.Deck(deckID)
	if err != nil {
		return err
	}
	all, err := s.store.AllDecks()
	if err != nil {
		return err
	}

	var ids []int64
	for _, d := range all {
		if d.ID != deck.ID && !deck.IsAncestorOf(d.Name) {
			continue
		}
		cards, err := s.store.CardsInDeck(d.ID)
		if err != nil {
			return err
		}
		for _, c := range cards {
			if c.Queue.Buried() {
				ids = append(ids, c.ID)
			}
		}
	}

	return s.forEachCard(ids, "Unbury", func(card *domain.Card) (bool, error) {
		switch scope {
		case UnburyManualOnly:
			if card.Queue != domain.QueueManuallyBuried {
				return false, nil
			}
		case UnburySiblingOnly:
			if card.Queue != domain.QueueSiblingBuried {
				return false, nil
			}
		default:
			if !card.Queue.Buried() {
				return false, nil
			}
		}
		card.Queue = restoredQueue(card)
		return true, nil
	})
}

// ForgetCards resets the cards to new, at the end of the new-card order.
// Review history stays in the log.
func (s *Scheduler) ForgetCards(ids ...int64) error {
	pos, err := s.store.MaxNewPosition()
	if err != nil {
		return err
	}
	return s.forEachCard(ids, "Forget", func(card *domain.Card) (bool, error) {
		cfg, err := s.configFor(card)
		if err != nil {
			return false, err
		}
		s.releaseFiltered(card)
		pos++
		card.Type = domain.TypeNew
		card.Queue = domain.QueueNew
		card.Due = domain.Position(pos)
		card.Interval = 0
		card.EaseFactor = cfg.InitialEase
		card.Reps = 0
		card.Lapses = 0
		card.Left = domain.Left{}
		return true, nil
	})
}

// SetDueDate overrides a card's schedule to come due the given number of
// days from today, bypassing the state machine. New cards become review
// cards with an interval of at least one day.
func (s *Scheduler) SetDueDate(ids []int64, days int) error {
	t := s.Timing()
	return s.forEachCard(ids, "Set Due Date", func(card *domain.Card) (bool, error) {
		if card.Type == domain.TypeNew && card.EaseFactor == 0 {
			cfg, err := s.configFor(card)
			if err != nil {
				return false, err
			}
			card.EaseFactor = cfg.InitialEase
		}
		card.Type = domain.TypeReview
		card.Interval = max(1, days)
		card.Due = domain.Day(t.Today + days)
		if card.Queue != domain.QueueSuspended && !card.Queue.Buried() {
			card.Queue = domain.QueueReview
		}
		card.Left = domain.Left{}
		return true, nil
	})
}

// RepositionNewCards reassigns new-card positions starting at start with
// the given step, in the order the ids are given. When shiftExisting is
// set, other new cards at or after start are shifted out of the way first,
// preserving their relative order.
func (s *Scheduler) RepositionNewCards(ids []int64, start, step int, shiftExisting bool) error {
	if step < 1 {
		step = 1
	}
	if shiftExisting {
		if err := s.store.ShiftNewPositions(start, len(ids)*step); err != nil {
			return err
		}
	}
	pos := start
	return s.forEachCard(ids, "Reposition", func(card *domain.Card) (bool, error) {
		if card.Type != domain.TypeNew {
			return false, nil
		}
		card.Due = domain.Position(pos)
		pos += step
		return true, nil
	})
}
