package domain

import "fmt"

// DueKind tags the interpretation of a card's due value, which the legacy
// file format overloads on a single integer column keyed by queue.
type DueKind int

const (
	// DuePosition is an insertion-order position (queue New).
	DuePosition DueKind = iota
	// DueStamp is an epoch-second timestamp (intra-day learning, preview).
	DueStamp
	// DueDay is a day index relative to collection creation (review and
	// day-granularity learning).
	DueDay
)

// Due is the tagged variant behind the overloaded `due` column.
type Due struct {
	Kind  DueKind
	Value int64
}

// Position returns a new-queue due holding an insertion-order position.
func Position(p int) Due { return Due{Kind: DuePosition, Value: int64(p)} }

// Stamp returns a learning due holding an epoch-second timestamp.
func Stamp(epoch int64) Due { return Due{Kind: DueStamp, Value: epoch} }

// Day returns a review due holding a day index.
func Day(d int) Due { return Due{Kind: DueDay, Value: int64(d)} }

// Encode flattens the variant to the raw integer the storage layer persists.
func (d Due) Encode() int64 { return d.Value }

// DecodeDue rebuilds the variant from the raw persisted integer. The kind is
// a function of (queue, type) exactly as the legacy format defines it:
// position for new cards, timestamp for intra-day learning, day index for
// everything scheduled at day granularity. Suspended and buried cards keep
// the interpretation of the type they will resume as.
func DecodeDue(typ CardType, queue CardQueue, raw int64) Due {
	switch queue {
	case QueueNew:
		return Due{Kind: DuePosition, Value: raw}
	case QueueLearning, QueuePreviewFiltered:
		return Due{Kind: DueStamp, Value: raw}
	case QueueReview, QueueDayLearn:
		return Due{Kind: DueDay, Value: raw}
	}
	// Suspended or buried: fall back to the card type.
	switch typ {
	case TypeNew:
		return Due{Kind: DuePosition, Value: raw}
	case TypeLearning, TypeRelearning:
		// Large values are epoch stamps; small ones are day indexes left
		// behind by day-granularity learning.
		if raw >= 1e9 {
			return Due{Kind: DueStamp, Value: raw}
		}
		return Due{Kind: DueDay, Value: raw}
	default:
		return Due{Kind: DueDay, Value: raw}
	}
}

func (d Due) String() string {
	switch d.Kind {
	case DuePosition:
		return fmt.Sprintf("pos %d", d.Value)
	case DueStamp:
		return fmt.Sprintf("stamp %d", d.Value)
	default:
		return fmt.Sprintf("day %d", d.Value)
	}
}
