package scheduler

import (
	"time"

	"github.com/memodeck/memodeck/internal/domain"
)

// minEase is the floor the ease factor can never drop below.
const minEase = 1300

const (
	againEasePenalty = 200
	hardEasePenalty  = 150
	easyEaseBonus    = 150
)

// reviewIntervals computes the Hard/Good/Easy interval ladder for a review
// card. The overdue bonus feeds into Good (half) and Easy (full) but never
// Hard, and each rung is strictly above the previous one so a better answer
// always schedules further out.
func reviewIntervals(interval, overdue, ease int, cfg domain.DeckConfig) (hard, good, easy int) {
	factor := float64(ease) / 1000.0

	hard = constrainInterval(float64(interval)*cfg.HardFactor, cfg, interval)
	good = constrainInterval(float64(interval+overdue/2)*factor, cfg, hard)
	easy = constrainInterval(float64(interval+overdue)*factor*cfg.EasyBonus, cfg, good)
	return hard, good, easy
}

// constrainInterval applies the global interval multiplier, keeps the result
// strictly greater than prev, and clamps to [1, MaxInterval].
func constrainInterval(ivl float64, cfg domain.DeckConfig, prev int) int {
	out := int(ivl * cfg.IntervalMultiplier)
	if out <= prev {
		out = prev + 1
	}
	if out < 1 {
		out = 1
	}
	if out > cfg.MaxInterval {
		out = cfg.MaxInterval
	}
	return out
}

// lapseInterval computes the interval a review card falls back to on Again.
func lapseInterval(interval int, cfg domain.DeckConfig) int {
	out := int(float64(interval) * cfg.LapseMultiplier)
	if out < cfg.LapseMinInterval {
		out = cfg.LapseMinInterval
	}
	if out > cfg.MaxInterval {
		out = cfg.MaxInterval
	}
	return out
}

// easeAfter applies the rating's ease adjustment, floored at minEase.
func easeAfter(ease int, rating domain.Rating) int {
	switch rating {
	case domain.Again:
		ease -= againEasePenalty
	case domain.Hard:
		ease -= hardEasePenalty
	case domain.Easy:
		ease += easyEaseBonus
	}
	if ease < minEase {
		ease = minEase
	}
	return ease
}

// stepDelays converts configured step minutes into durations. An empty list
// falls back to a single one-minute step rather than corrupting state.
func stepDelays(minutes []float64) []time.Duration {
	if len(minutes) == 0 {
		return []time.Duration{time.Minute}
	}
	out := make([]time.Duration, len(minutes))
	for i, m := range minutes {
		out[i] = time.Duration(m * float64(time.Minute))
	}
	return out
}

// startingLeft computes the packed step counters for a card entering the
// step list from the top: total steps remaining, and how many of those are
// still reachable before the day cutoff.
func startingLeft(delays []time.Duration, now time.Time, cutoff int64) domain.Left {
	return domain.Left{
		Today: stepsReachableToday(delays, now, cutoff),
		Total: len(delays),
	}
}

// stepsReachableToday counts how many of the given delays, taken in
// sequence starting now, come due before the day cutoff.
func stepsReachableToday(delays []time.Duration, now time.Time, cutoff int64) int {
	t := now
	n := 0
	for _, d := range delays {
		t = t.Add(d)
		if t.Unix() >= cutoff {
			break
		}
		n++
	}
	return n
}

// currentStepDelay returns the delay of the step the card is currently
// holding on, given the full delay list and steps remaining to graduation.
func currentStepDelay(delays []time.Duration, leftTotal int) time.Duration {
	return delays[stepIndex(len(delays), leftTotal)]
}

// nextStepDelay returns the delay of the following step, or the current one
// when the card is on the last step.
func nextStepDelay(delays []time.Duration, leftTotal int) time.Duration {
	i := stepIndex(len(delays), leftTotal) + 1
	if i >= len(delays) {
		i = len(delays) - 1
	}
	return delays[i]
}

func stepIndex(n, leftTotal int) int {
	i := n - leftTotal
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}
