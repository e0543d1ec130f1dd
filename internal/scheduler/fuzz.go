package scheduler

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// fuzzBounds returns the inclusive [min, max] band an interval may be
// randomized within. Very short intervals get no band; the band then widens
// as an absolute number of days while narrowing in relative terms.
func fuzzBounds(interval int) (int, int) {
	if interval < 2 {
		return interval, interval
	}
	if interval == 2 {
		return 2, 3
	}

	var spread int
	switch {
	case interval < 7:
		spread = int(math.Round(float64(interval) * 0.25))
	case interval < 30:
		spread = max(2, int(math.Round(float64(interval)*0.15)))
	default:
		spread = max(4, int(math.Round(float64(interval)*0.05)))
	}
	spread = max(spread, 1)
	return interval - spread, interval + spread
}

// fuzzInterval draws an interval from the fuzz band using the given source.
func fuzzInterval(interval int, rng *rand.Rand) int {
	lo, hi := fuzzBounds(interval)
	if lo >= hi {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// shuffleRank is a deterministic pseudo-random rank, a pure function of
// (id, seed), stable within a day when seeded with the day index. New cards
// in random mode rank by note ID so siblings share a rank; shuffled reviews
// rank by card ID so siblings spread out.
func shuffleRank(id int64, seed int) uint32 {
	h := fnv.New32a()
	var buf [12]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
	for i := 0; i < 4; i++ {
		buf[8+i] = byte(seed >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum32()
}
