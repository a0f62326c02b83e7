package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Collectors stamp checkpoints and compute "published after" cutoffs from it.
var clock = clockwork.NewRealClock()

// Clock returns the active time source.
func Clock() clockwork.Clock {
	return clock
}

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
