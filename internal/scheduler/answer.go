package scheduler

import (
	"time"

	"github.com/memodeck/memodeck/internal/domain"
)

// AnswerCard applies a graded answer to the card, appends one review log
// entry, and records a chainable undo entry. Invalid (queue, rating) pairs
// are rejected with ErrInvalidTransition and no mutation.
func (s *Scheduler) AnswerCard(id int64, rating domain.Rating, takenMillis int) error {
	if !rating.IsValid() {
		return ErrInvalidTransition
	}

	now := s.now()
	t := s.Timing()

	card, err := s.store.Card(id)
	if err != nil {
		return wrapCard(err, id)
	}
	if !card.Queue.Answerable() {
		return ErrInvalidTransition
	}

	cfg, err := s.configFor(card)
	if err != nil {
		return wrapCard(err, id)
	}
	fcfg, err := s.filteredConfigFor(card)
	if err != nil {
		return wrapCard(err, id)
	}

	snapshot := card.Snapshot()
	prevQueue := card.Queue
	servedDeck := card.DeckID
	lastInterval := card.Interval

	maxMillis := cfg.MaxAnswerSecs * 1000
	if takenMillis > maxMillis {
		takenMillis = maxMillis
	}
	if takenMillis < 0 {
		takenMillis = 0
	}

	var logInterval int
	var kind domain.ReviewKind

	card.Reps++
	switch {
	case card.Queue == domain.QueuePreviewFiltered:
		logInterval = s.answerPreview(card, rating, fcfg, now)
		kind = domain.KindFiltered

	case card.Type == domain.TypeNew:
		delays := s.learnDelays(card, cfg, fcfg)
		card.Type = domain.TypeLearning
		card.Left = startingLeft(delays, now, t.DayCutoff)
		logInterval, err = s.answerLearning(card, rating, cfg, fcfg, now, t)
		kind = domain.KindLearning

	case card.Type == domain.TypeLearning, card.Type == domain.TypeRelearning:
		kind = domain.KindLearning
		if card.Type == domain.TypeRelearning {
			kind = domain.KindRelearning
		}
		logInterval, err = s.answerLearning(card, rating, cfg, fcfg, now, t)

	default: // TypeReview
		logInterval, err = s.answerReview(card, rating, cfg, now, t)
		kind = domain.KindReview
	}
	if err != nil {
		return wrapCard(err, id)
	}

	entry := &domain.ReviewLogEntry{
		ID:           s.nextLogID(),
		CardID:       card.ID,
		Button:       rating,
		Interval:     logInterval,
		LastInterval: lastInterval,
		EaseFactor:   card.EaseFactor,
		TakenMillis:  takenMillis,
		Kind:         kind,
	}
	if entry.USN, err = s.store.NextUSN(); err != nil {
		return wrapCard(err, id)
	}
	if err := s.store.AppendReview(entry); err != nil {
		return wrapCard(err, id)
	}

	if err := s.touch(card); err != nil {
		return wrapCard(err, id)
	}
	if err := s.store.UpdateCard(card); err != nil {
		return wrapCard(err, id)
	}
	if err := s.bumpDeckCounters(servedDeck, prevQueue, t); err != nil {
		return wrapCard(err, id)
	}

	s.undo.pushReview(snapshot, entry.ID, servedDeck, prevQueue)

	if s.queues != nil {
		s.queues.remove(card.ID)
		// Intra-day learners and repeating preview cards come back within
		// the same session, so they re-enter the cache with their new due.
		if card.Queue == domain.QueueLearning || card.Queue == domain.QueuePreviewFiltered {
			s.queues.pushLearning(card.ID, card.Due.Value)
		}
	}

	if cfg.BuryNew || cfg.BuryReviews {
		if err := s.burySiblings(card, cfg); err != nil {
			return wrapCard(err, id)
		}
	}
	return nil
}

// learnDelays resolves the step list governing the card: lapse steps while
// relearning, new steps otherwise, with a filtered deck's custom steps
// overriding both while the card is on loan.
func (s *Scheduler) learnDelays(card *domain.Card, cfg domain.DeckConfig, fcfg *domain.FilteredDeckConfig) []time.Duration {
	if fcfg != nil && len(fcfg.CustomSteps) > 0 {
		return stepDelays(fcfg.CustomSteps)
	}
	if card.Type == domain.TypeRelearning {
		return stepDelays(cfg.LapseSteps)
	}
	return stepDelays(cfg.NewSteps)
}

// answerLearning advances a Learning or Relearning card through its steps.
func (s *Scheduler) answerLearning(card *domain.Card, rating domain.Rating, cfg domain.DeckConfig, fcfg *domain.FilteredDeckConfig, now time.Time, t Timing) (int, error) {
	delays := s.learnDelays(card, cfg, fcfg)

	switch rating {
	case domain.Again:
		card.Left = startingLeft(delays, now, t.DayCutoff)
		return s.scheduleLearnStep(card, delays, delays[0], now, t), nil

	case domain.Hard:
		cur := currentStepDelay(delays, card.Left.Total)
		next := nextStepDelay(delays, card.Left.Total)
		return s.scheduleLearnStep(card, delays, (cur+next)/2, now, t), nil

	case domain.Good:
		if card.Left.Total <= 1 {
			return s.graduate(card, false, cfg, t), nil
		}
		card.Left.Total--
		delay := delays[stepIndex(len(delays), card.Left.Total)]
		return s.scheduleLearnStep(card, delays, delay, now, t), nil

	case domain.Easy:
		return s.graduate(card, true, cfg, t), nil
	}
	return 0, ErrInvalidTransition
}

// scheduleLearnStep sets the card's next due from the given delay,
// re-expressing it at day granularity when it would cross the day cutoff.
// It returns the interval to log: negative seconds intra-day, else days.
func (s *Scheduler) scheduleLearnStep(card *domain.Card, delays []time.Duration, delay time.Duration, now time.Time, t Timing) int {
	dueStamp := now.Add(delay).Unix()
	if dueStamp < t.DayCutoff {
		card.Queue = domain.QueueLearning
		card.Due = domain.Stamp(dueStamp)
		card.Left.Today = stepsReachableToday(remainingDelays(delays, card.Left.Total), now, t.DayCutoff)
		return -int(delay.Seconds())
	}

	days := 1 + int((dueStamp-t.DayCutoff)/86400)
	card.Queue = domain.QueueDayLearn
	card.Due = domain.Day(t.Today + days)
	card.Left.Today = 0
	return days
}

// remainingDelays slices off the steps the card has already passed.
func remainingDelays(delays []time.Duration, leftTotal int) []time.Duration {
	i := len(delays) - leftTotal
	if i < 0 {
		i = 0
	}
	if i > len(delays) {
		i = len(delays)
	}
	return delays[i:]
}

// graduate moves a Learning or Relearning card into Review. A relearning
// card keeps the interval and ease computed at lapse time (minimum one
// day); a learning card takes the configured graduating or easy interval
// and the starting ease.
func (s *Scheduler) graduate(card *domain.Card, easy bool, cfg domain.DeckConfig, t Timing) int {
	if card.Type == domain.TypeRelearning {
		if card.Interval < 1 {
			card.Interval = 1
		}
	} else {
		card.Interval = cfg.GraduatingInterval
		if easy {
			card.Interval = cfg.EasyInterval
		}
		card.EaseFactor = cfg.InitialEase
	}
	if card.Interval > cfg.MaxInterval {
		card.Interval = cfg.MaxInterval
	}

	card.Type = domain.TypeReview
	card.Queue = domain.QueueReview
	card.Due = domain.Day(t.Today + card.Interval)
	card.Left = domain.Left{}

	if card.Filtered() {
		// Graduation sends the card straight home with the new schedule.
		card.DeckID = card.OriginalDeck
		card.OriginalDeck = 0
		card.OriginalDue = 0
	}
	return card.Interval
}

// answerReview applies a graded answer to a Review card.
func (s *Scheduler) answerReview(card *domain.Card, rating domain.Rating, cfg domain.DeckConfig, now time.Time, t Timing) (int, error) {
	dueDay := int(card.Due.Value)
	if card.Filtered() && card.OriginalDue != 0 {
		dueDay = int(card.OriginalDue)
	}
	overdue := t.Today - dueDay
	if overdue < 0 {
		overdue = 0
	}

	if rating == domain.Again {
		return s.rescheduleLapse(card, cfg, now, t)
	}

	hard, good, easy := reviewIntervals(card.Interval, overdue, card.EaseFactor, cfg)
	var ivl int
	switch rating {
	case domain.Hard:
		ivl = hard
	case domain.Good:
		ivl = fuzzInterval(good, s.rng)
	default: // Easy
		ivl = fuzzInterval(easy, s.rng)
	}
	if ivl > cfg.MaxInterval {
		ivl = cfg.MaxInterval
	}

	card.EaseFactor = easeAfter(card.EaseFactor, rating)
	card.Interval = ivl
	card.Queue = domain.QueueReview
	card.Due = domain.Day(t.Today + ivl)

	if card.Filtered() {
		// A successful review persists home immediately.
		card.DeckID = card.OriginalDeck
		card.OriginalDeck = 0
		card.OriginalDue = 0
	}
	return ivl, nil
}

// rescheduleLapse handles Review + Again: lapse bookkeeping, leech
// detection, and the move into relearning when lapse steps are configured.
func (s *Scheduler) rescheduleLapse(card *domain.Card, cfg domain.DeckConfig, now time.Time, t Timing) (int, error) {
	card.Lapses++
	card.EaseFactor = easeAfter(card.EaseFactor, domain.Again)
	card.Interval = lapseInterval(card.Interval, cfg)

	suspend, err := s.checkLeech(card, cfg)
	if err != nil {
		return 0, err
	}

	var logInterval int
	if len(cfg.LapseSteps) > 0 {
		delays := stepDelays(cfg.LapseSteps)
		card.Type = domain.TypeRelearning
		card.Left = startingLeft(delays, now, t.DayCutoff)
		logInterval = s.scheduleLearnStep(card, delays, delays[0], now, t)
	} else {
		// No relearning steps: stay in review at the lapsed interval.
		card.Queue = domain.QueueReview
		card.Due = domain.Day(t.Today + card.Interval)
		logInterval = card.Interval
	}

	if suspend {
		card.Queue = domain.QueueSuspended
	}
	return logInterval, nil
}

// answerPreview handles a card borrowed without rescheduling: Again shows
// it once more after the preview delay, anything better releases it home
// with its schedule untouched.
func (s *Scheduler) answerPreview(card *domain.Card, rating domain.Rating, fcfg *domain.FilteredDeckConfig, now time.Time) int {
	delayMins := 10
	if fcfg != nil && fcfg.PreviewDelay > 0 {
		delayMins = fcfg.PreviewDelay
	}

	if rating == domain.Again {
		delay := time.Duration(delayMins) * time.Minute
		card.Due = domain.Stamp(now.Add(delay).Unix())
		return -int(delay.Seconds())
	}

	s.releaseFiltered(card)
	return card.Interval
}

// releaseFiltered returns a borrowed card to its home deck. Cards whose due
// was displaced for display (preview queue) get their original due back;
// cards mid-learning keep their live schedule.
func (s *Scheduler) releaseFiltered(card *domain.Card) {
	if !card.Filtered() {
		return
	}
	card.DeckID = card.OriginalDeck
	if card.Queue == domain.QueuePreviewFiltered {
		card.Due = domain.DecodeDue(card.Type, domain.QueueSuspended, card.OriginalDue)
	}
	card.OriginalDeck = 0
	card.OriginalDue = 0
	card.Queue = restoredQueue(card)
}

// burySiblings hides the answered card's siblings from the new and review
// queues for the rest of the session.
func (s *Scheduler) burySiblings(card *domain.Card, cfg domain.DeckConfig) error {
	sibs, err := s.store.CardsOfNote(card.NoteID, card.ID)
	if err != nil {
		return err
	}
	for _, sib := range sibs {
		bury := (sib.Queue == domain.QueueNew && cfg.BuryNew) ||
			(sib.Queue == domain.QueueReview && cfg.BuryReviews)
		if !bury {
			continue
		}
		sib.Queue = domain.QueueSiblingBuried
		if err := s.touch(sib); err != nil {
			return err
		}
		if err := s.store.UpdateCard(sib); err != nil {
			return err
		}
		if s.queues != nil {
			s.queues.remove(sib.ID)
		}
	}
	return nil
}
