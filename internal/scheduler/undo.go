package scheduler

import "github.com/memodeck/memodeck/internal/domain"

// reviewUndo reverses one answer: restore the card's prior snapshot, delete
// the log entry the answer appended, and give back the served-today counter.
type reviewUndo struct {
	card   domain.Card
	logID  int64
	deckID int64
	queue  domain.CardQueue
}

// checkpointUndo restores full prior snapshots of every card a coarser
// operation touched.
type checkpointUndo struct {
	name  string
	cards []domain.Card
}

// undoState holds the chainable review undos and the single most recent
// checkpoint. Pushing a checkpoint invalidates the review chain.
type undoState struct {
	reviews    []reviewUndo
	checkpoint *checkpointUndo
}

func (u *undoState) pushReview(snap domain.Card, logID, deckID int64, queue domain.CardQueue) {
	u.reviews = append(u.reviews, reviewUndo{card: snap, logID: logID, deckID: deckID, queue: queue})
}

func (u *undoState) pushCheckpoint(name string, snaps []domain.Card) {
	u.checkpoint = &checkpointUndo{name: name, cards: snaps}
	u.reviews = nil
}

// NextUndo describes the operation Undo would reverse, or "" when there is
// nothing to undo.
func (s *Scheduler) NextUndo() string {
	if len(s.undo.reviews) > 0 {
		return "Review"
	}
	if s.undo.checkpoint != nil {
		return s.undo.checkpoint.name
	}
	return ""
}

// Undo reverses the most recent mutation and returns its description.
// Review undos chain; a checkpoint is restored once the chain is exhausted.
func (s *Scheduler) Undo() (string, error) {
	if n := len(s.undo.reviews); n > 0 {
		last := s.undo.reviews[n-1]
		s.undo.reviews = s.undo.reviews[:n-1]
		if err := s.store.UpdateCard(&last.card); err != nil {
			return "", err
		}
		if err := s.store.DeleteReview(last.logID); err != nil {
			return "", err
		}
		if err := s.refundDeckCounters(last.deckID, last.queue, s.Timing()); err != nil {
			return "", err
		}
		s.Reset()
		return "Review", nil
	}

	if cp := s.undo.checkpoint; cp != nil {
		s.undo.checkpoint = nil
		for i := range cp.cards {
			if err := s.store.UpdateCard(&cp.cards[i]); err != nil {
				return "", err
			}
		}
		s.Reset()
		return cp.name, nil
	}

	return "", ErrNothingToUndo
}
