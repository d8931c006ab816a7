package game

import (
	"fmt"
	"time"
)

// DefaultClockSeconds is each seat's starting budget.
const DefaultClockSeconds = 3600

// Elapsed returns the whole seconds between a and b, ignoring which one is
// later. Clock skew between the channel and this host can put a read
// receipt after the move it precedes.
// Counted in Unix seconds: time.Duration saturates near 292 years.
func Elapsed(a, b time.Time) int {
	if b.Before(a) {
		a, b = b, a
	}
	secs := b.Unix() - a.Unix()
	if b.Nanosecond() < a.Nanosecond() {
		secs--
	}
	return int(secs)
}

// Charge computes the seconds spent on a turn and the budget left after it.
// A zero reference means the seat never received a board, which costs
// nothing. after may be negative; the caller treats that as a timeout.
func Charge(remaining int, reference, submittedAt time.Time) (elapsed, after int) {
	if !reference.IsZero() {
		elapsed = Elapsed(reference, submittedAt)
	}
	return elapsed, remaining - elapsed
}

// FormatBudget renders a clock budget for participants: whole minutes from
// one minute upward, seconds below that.
func FormatBudget(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minutes", seconds/60)
	}
	return fmt.Sprintf("%d seconds", seconds)
}
