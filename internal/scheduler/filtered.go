package scheduler

import (
	"fmt"
	"strings"

	"github.com/memodeck/memodeck/internal/domain"
)

// RebuildFilteredDeck gathers cards into a filtered deck according to its
// configured search terms. Cards already resident from a prior rebuild are
// preserved; newly gathered cards are borrowed from their home decks.
// Returns the number of cards added.
func (s *Scheduler) RebuildFilteredDeck(deckID int64) (int, error) {
	deck, err := s.store.Deck(deckID)
	if err != nil {
		return 0, err
	}
	if !deck.Filtered || deck.FilteredConfig == nil {
		return 0, ErrNotFiltered
	}
	fcfg := deck.FilteredConfig

	now := s.now()
	t := s.Timing()

	residents, err := s.store.CardsInDeck(deckID)
	if err != nil {
		return 0, err
	}
	seq := int64(len(residents))

	var snaps []domain.Card
	added := 0
	for _, term := range fcfg.SearchTerms {
		sel, err := parseSearch(term.Search)
		if err != nil {
			return 0, err
		}
		sel.Limit = term.Limit
		sel.Order = term.Order
		sel.Today = t.Today

		cards, err := s.store.FindCards(sel)
		if err != nil {
			return 0, err
		}
		for _, card := range cards {
			snaps = append(snaps, card.Snapshot())
			card.OriginalDeck = card.DeckID
			card.OriginalDue = card.Due.Encode()
			card.DeckID = deckID
			if !fcfg.Reschedule {
				// Display-only due in gather order; the real schedule
				// is parked in OriginalDue.
				card.Queue = domain.QueuePreviewFiltered
				card.Due = domain.Stamp(now.Unix() + seq)
			}
			seq++
			if err := s.touch(card); err != nil {
				return added, err
			}
			if err := s.store.UpdateCard(card); err != nil {
				return added, err
			}
			added++
		}
	}

	if len(snaps) > 0 {
		s.undo.pushCheckpoint("Rebuild Filtered Deck", snaps)
	}
	s.Reset()
	return added, nil
}

// EmptyFilteredDeck returns every borrowed card to its home deck. Cards
// whose due was displaced for display get their original due back;
// in-progress learning state survives the move.
func (s *Scheduler) EmptyFilteredDeck(deckID int64) error {
	deck, err := s.store.Deck(deckID)
	if err != nil {
		return err
	}
	if !deck.Filtered {
		return ErrNotFiltered
	}

	cards, err := s.store.CardsInDeck(deckID)
	if err != nil {
		return err
	}

	var snaps []domain.Card
	for _, card := range cards {
		snaps = append(snaps, card.Snapshot())
		s.releaseFiltered(card)
		if err := s.touch(card); err != nil {
			return err
		}
		if err := s.store.UpdateCard(card); err != nil {
			return err
		}
	}

	if len(snaps) > 0 {
		s.undo.pushCheckpoint("Empty Filtered Deck", snaps)
	}
	s.Reset()
	return nil
}

// parseSearch compiles a filtered-deck search term into the fixed selector
// predicate set. Supported tokens: deck:Name, is:due, is:new, tag:Name.
func parseSearch(search string) (CardSelector, error) {
	var sel CardSelector
	for _, tok := range strings.Fields(search) {
		switch {
		case strings.HasPrefix(tok, "deck:"):
			sel.DeckName = strings.TrimPrefix(tok, "deck:")
		case tok == "is:due":
			sel.DueOnly = true
		case tok == "is:new":
			sel.NewOnly = true
		case strings.HasPrefix(tok, "tag:"):
			sel.Tag = strings.TrimPrefix(tok, "tag:")
		default:
			return CardSelector{}, fmt.Errorf("%w: unsupported search term %q", ErrConfig, tok)
		}
	}
	return sel, nil
}
