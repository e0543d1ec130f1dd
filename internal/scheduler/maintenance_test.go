package scheduler

import (
	"testing"

	"github.com/memodeck/memodeck/internal/domain"
)

func TestSuspendUnsuspendRoundTrip(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	today := s.Timing().Today

	store.addCard(newCardIn(1, 10, 100, 3))
	store.addCard(reviewCardIn(1, 11, 101, 20, 2400, today+2))
	lrn := newCardIn(1, 12, 102, 0)
	lrn.Type = domain.TypeLearning
	lrn.Queue = domain.QueueLearning
	lrn.Due = domain.Stamp(testNow.Unix() + 60)
	store.addCard(lrn)

	if err := s.SuspendCards(10, 11, 12); err != nil {
		t.Fatalf("SuspendCards: %v", err)
	}
	for _, id := range []int64{10, 11, 12} {
		if c := mustCard(t, store, id); c.Queue != domain.QueueSuspended {
			t.Errorf("card %d queue = %v, want Suspended", id, c.Queue)
		}
	}

	if err := s.UnsuspendCards(10, 11, 12); err != nil {
		t.Fatalf("UnsuspendCards: %v", err)
	}
	wantQueues := map[int64]domain.CardQueue{
		10: domain.QueueNew,
		11: domain.QueueReview,
		12: domain.QueueLearning,
	}
	for id, want := range wantQueues {
		if c := mustCard(t, store, id); c.Queue != want {
			t.Errorf("card %d queue = %v, want %v", id, c.Queue, want)
		}
	}
	// Due survives the round trip.
	if c := mustCard(t, store, 11); c.Due.Value != int64(today+2) {
		t.Errorf("due = %v, want day %d", c.Due, today+2)
	}
}

func TestSuspendedDayLearnerResumesAsDayLearn(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	today := s.Timing().Today

	c := newCardIn(1, 10, 100, 0)
	c.Type = domain.TypeRelearning
	c.Queue = domain.QueueDayLearn
	c.Due = domain.Day(today + 1)
	c.Left = domain.Left{Total: 1}
	store.addCard(c)

	if err := s.SuspendCards(10); err != nil {
		t.Fatalf("SuspendCards: %v", err)
	}
	if err := s.UnsuspendCards(10); err != nil {
		t.Fatalf("UnsuspendCards: %v", err)
	}
	if got := mustCard(t, store, 10); got.Queue != domain.QueueDayLearn {
		t.Errorf("Queue = %v, want DayLearn", got.Queue)
	}
}

func TestBuryUnburyRestoresState(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	today := s.Timing().Today

	orig := reviewCardIn(1, 10, 100, 20, 2400, today)
	store.addCard(orig)

	if err := s.BuryCards(10); err != nil {
		t.Fatalf("BuryCards: %v", err)
	}
	if c := mustCard(t, store, 10); c.Queue != domain.QueueManuallyBuried {
		t.Fatalf("Queue = %v, want ManuallyBuried", c.Queue)
	}

	if err := s.UnburyDeck(1, UnburyAll); err != nil {
		t.Fatalf("UnburyDeck: %v", err)
	}
	c := mustCard(t, store, 10)
	if c.Type != orig.Type || c.Queue != orig.Queue || c.Due != orig.Due {
		t.Errorf("(type, queue, due) = (%v, %v, %v), want (%v, %v, %v)",
			c.Type, c.Queue, c.Due, orig.Type, orig.Queue, orig.Due)
	}
}

func TestUnburyScope(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)

	manual := newCardIn(1, 10, 100, 1)
	manual.Queue = domain.QueueManuallyBuried
	store.addCard(manual)
	sibling := newCardIn(1, 11, 101, 2)
	sibling.Queue = domain.QueueSiblingBuried
	store.addCard(sibling)

	if err := s.UnburyDeck(1, UnburySiblingOnly); err != nil {
		t.Fatalf("UnburyDeck: %v", err)
	}
	if c := mustCard(t, store, 10); c.Queue != domain.QueueManuallyBuried {
		t.Errorf("manually buried card touched by sibling-only unbury")
	}
	if c := mustCard(t, store, 11); c.Queue != domain.QueueNew {
		t.Errorf("sibling-buried card not restored: %v", c.Queue)
	}

	if err := s.UnburyDeck(1, UnburyManualOnly); err != nil {
		t.Fatalf("UnburyDeck: %v", err)
	}
	if c := mustCard(t, store, 10); c.Queue != domain.QueueNew {
		t.Errorf("manually buried card not restored: %v", c.Queue)
	}
}

func TestUnburyDeckScopedToBranch(t *testing.T) {
	store := newMemStore()
	other := store.addDeck(2, "Other", domain.DefaultDeckConfig())
	s := newTestScheduler(t, store)

	in := newCardIn(1, 10, 100, 1)
	in.Queue = domain.QueueManuallyBuried
	store.addCard(in)
	out := newCardIn(other.ID, 11, 101, 1)
	out.Queue = domain.QueueManuallyBuried
	store.addCard(out)

	if err := s.UnburyDeck(1, UnburyAll); err != nil {
		t.Fatalf("UnburyDeck: %v", err)
	}
	if c := mustCard(t, store, 10); c.Queue != domain.QueueNew {
		t.Errorf("in-branch card not unburied")
	}
	if c := mustCard(t, store, 11); c.Queue != domain.QueueManuallyBuried {
		t.Errorf("out-of-branch card unburied")
	}
}

func TestForgetCards(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	today := s.Timing().Today

	store.addCard(newCardIn(1, 10, 100, 7))
	seasoned := reviewCardIn(1, 11, 101, 120, 1900, today)
	seasoned.Reps = 40
	seasoned.Lapses = 3
	store.addCard(seasoned)

	if err := s.ForgetCards(11); err != nil {
		t.Fatalf("ForgetCards: %v", err)
	}
	c := mustCard(t, store, 11)
	if c.Type != domain.TypeNew || c.Queue != domain.QueueNew {
		t.Errorf("(type, queue) = (%v, %v), want New/New", c.Type, c.Queue)
	}
	if c.Due.Kind != domain.DuePosition || c.Due.Value != 8 {
		t.Errorf("Due = %v, want position 8 (after existing new cards)", c.Due)
	}
	if c.Interval != 0 || c.Reps != 0 || c.Lapses != 0 {
		t.Errorf("history not cleared: ivl %d reps %d lapses %d", c.Interval, c.Reps, c.Lapses)
	}
	if c.EaseFactor != 2500 {
		t.Errorf("EaseFactor = %d, want reset to starting ease", c.EaseFactor)
	}
}

func TestSetDueDate(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	today := s.Timing().Today

	store.addCard(newCardIn(1, 10, 100, 1))
	sus := reviewCardIn(1, 11, 101, 30, 2400, today+9)
	sus.Queue = domain.QueueSuspended
	store.addCard(sus)

	if err := s.SetDueDate([]int64{10, 11}, 5); err != nil {
		t.Fatalf("SetDueDate: %v", err)
	}
	c := mustCard(t, store, 10)
	if c.Type != domain.TypeReview || c.Queue != domain.QueueReview {
		t.Errorf("(type, queue) = (%v, %v), want Review/Review", c.Type, c.Queue)
	}
	if c.Due.Value != int64(today+5) || c.Interval != 5 {
		t.Errorf("due %v ivl %d, want day %d ivl 5", c.Due, c.Interval, today+5)
	}

	c = mustCard(t, store, 11)
	if c.Queue != domain.QueueSuspended {
		t.Errorf("suspended card reactivated by SetDueDate")
	}
	if c.Due.Value != int64(today+5) {
		t.Errorf("suspended card due = %v, want day %d", c.Due, today+5)
	}
}

func TestSetDueDateZeroDaysMinimumInterval(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	today := s.Timing().Today
	store.addCard(newCardIn(1, 10, 100, 1))

	if err := s.SetDueDate([]int64{10}, 0); err != nil {
		t.Fatalf("SetDueDate: %v", err)
	}
	c := mustCard(t, store, 10)
	if c.Interval != 1 {
		t.Errorf("Interval = %d, want floor 1", c.Interval)
	}
	if c.Due.Value != int64(today) {
		t.Errorf("Due = %v, want today (%d)", c.Due, today)
	}
}

func TestRepositionNewCards(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)

	store.addCard(newCardIn(1, 10, 100, 1))
	store.addCard(newCardIn(1, 11, 101, 2))
	store.addCard(newCardIn(1, 12, 102, 3))

	if err := s.RepositionNewCards([]int64{12, 10}, 1, 1, true); err != nil {
		t.Fatalf("RepositionNewCards: %v", err)
	}
	wantPos := map[int64]int64{12: 1, 10: 2, 11: 4}
	for id, want := range wantPos {
		if c := mustCard(t, store, id); c.Due.Value != want {
			t.Errorf("card %d position = %d, want %d", id, c.Due.Value, want)
		}
	}
}

func TestBatchSkipsMissingCards(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, store)
	store.addCard(newCardIn(1, 10, 100, 1))

	if err := s.SuspendCards(99, 10); err != nil {
		t.Fatalf("SuspendCards with missing id: %v", err)
	}
	if c := mustCard(t, store, 10); c.Queue != domain.QueueSuspended {
		t.Errorf("surviving card not suspended")
	}
}
