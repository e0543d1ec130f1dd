package scheduler

import "errors"

// Sentinel errors for the scheduler package.
// Use errors.Is to check: errors.Is(err, scheduler.ErrNotFound)
var (
	ErrNotFound          = errors.New("scheduler: card not found")
	ErrDeckNotFound      = errors.New("scheduler: deck not found")
	ErrInvalidTransition = errors.New("scheduler: rating not valid for card queue")
	ErrNotFiltered       = errors.New("scheduler: deck is not a filtered deck")
	ErrConfig            = errors.New("scheduler: invalid deck configuration")
	ErrNothingToUndo     = errors.New("scheduler: nothing to undo")
)
