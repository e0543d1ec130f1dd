package domain

import (
	"encoding"
	"fmt"
)

// CardType is the long-term learning stage of a card.
type CardType int

const (
	TypeNew CardType = iota
	TypeLearning
	TypeReview
	TypeRelearning
)

var typeNames = [...]string{"New", "Learning", "Review", "Relearning"}

// String returns the type name, or "CardType(n)" for invalid values.
func (t CardType) String() string {
	if t >= TypeNew && t <= TypeRelearning {
		return typeNames[t]
	}
	return fmt.Sprintf("CardType(%d)", int(t))
}

// CardQueue selects which runtime queue (if any) a card belongs to. The
// numeric values are part of the persisted file format and must not change.
type CardQueue int

const (
	QueueNew             CardQueue = 0
	QueueLearning        CardQueue = 1
	QueueReview          CardQueue = 2
	QueueDayLearn        CardQueue = 3
	QueuePreviewFiltered CardQueue = 4
	QueueSuspended       CardQueue = -1
	QueueSiblingBuried   CardQueue = -2
	QueueManuallyBuried  CardQueue = -3
)

// String returns the queue name, or "CardQueue(n)" for invalid values.
func (q CardQueue) String() string {
	switch q {
	case QueueNew:
		return "New"
	case QueueLearning:
		return "Learning"
	case QueueReview:
		return "Review"
	case QueueDayLearn:
		return "DayLearn"
	case QueuePreviewFiltered:
		return "PreviewFiltered"
	case QueueSuspended:
		return "Suspended"
	case QueueSiblingBuried:
		return "SiblingBuried"
	case QueueManuallyBuried:
		return "ManuallyBuried"
	}
	return fmt.Sprintf("CardQueue(%d)", int(q))
}

// Buried reports whether the queue is one of the buried states.
func (q CardQueue) Buried() bool {
	return q == QueueSiblingBuried || q == QueueManuallyBuried
}

// Answerable reports whether a card in this queue may be answered at all.
func (q CardQueue) Answerable() bool {
	switch q {
	case QueueNew, QueueLearning, QueueReview, QueueDayLearn, QueuePreviewFiltered:
		return true
	}
	return false
}

// Rating is the user's self-graded recall quality.
type Rating int

const (
	Again Rating = iota + 1 // complete failure to recall
	Hard                    // recalled with significant difficulty
	Good                    // recalled with some effort
	Easy                    // recalled effortlessly
)

var (
	ratingNames  = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}
	ratingByName = map[string]Rating{"Again": Again, "Hard": Hard, "Good": Good, "Easy": Easy}
)

var (
	_ fmt.Stringer             = Rating(0)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// IsValid reports whether r is a valid rating (Again through Easy).
func (r Rating) IsValid() bool { return r >= Again && r <= Easy }

// String returns the rating name, or "Rating(n)" for invalid values.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("domain: invalid rating: %d", int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, ok := ratingByName[string(text)]
	if !ok {
		return fmt.Errorf("domain: invalid rating: %q", text)
	}
	*r = v
	return nil
}

// ReviewKind classifies a review log entry.
type ReviewKind int

const (
	KindLearning ReviewKind = iota
	KindReview
	KindRelearning
	KindFiltered
)

var kindNames = [...]string{"Learning", "Review", "Relearning", "Filtered"}

// String returns the kind name, or "ReviewKind(n)" for invalid values.
func (k ReviewKind) String() string {
	if k >= KindLearning && k <= KindFiltered {
		return kindNames[k]
	}
	return fmt.Sprintf("ReviewKind(%d)", int(k))
}
