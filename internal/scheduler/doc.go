// Package scheduler decides which card to study next and how a graded
// answer mutates a card's long-term memory state.
//
// It implements a multi-state, multi-queue spaced-repetition engine:
// day-boundary arithmetic, per-branch daily limits, interval and ease
// formulas with fuzzing, leech detection, filtered (cram) decks, and fully
// reversible mutations. Persistence is delegated to a Store collaborator;
// the scheduler is single-writer and callers serialize access externally.
//
// Basic usage:
//
//	s := scheduler.New(store, scheduler.Options{Created: created})
//	card, err := s.NextCard()
//	if card != nil {
//	    err = s.AnswerCard(card.ID, domain.Good, takenMillis)
//	}
package scheduler
