package conflict

import (
	"fmt"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
)

// DeterministicOrdering puts the earlier-due task first. Same-day tasks are
// compared by due time, with no due time meaning end of day; remaining ties
// go to the task created first.
func DeterministicOrdering(a, b *models.Task) string {
	first, second, reason := order(a, b)
	return fmt.Sprintf("Complete %q first, then %q. %s", first.Label(), second.Label(), reason)
}

func order(a, b *models.Task) (first, second *models.Task, reason string) {
	if c := a.DueDate.Compare(b.DueDate); c != 0 {
		if c < 0 {
			return a, b, fmt.Sprintf("%q is due sooner, on %s.", a.Label(), a.DueDate)
		}
		return b, a, fmt.Sprintf("%q is due sooner, on %s.", b.Label(), b.DueDate)
	}

	am, bm := dueMinutes(a), dueMinutes(b)
	switch {
	case am < bm:
		return a, b, fmt.Sprintf("%q is due earlier, at %s.", a.Label(), a.DueTime.Display())
	case bm < am:
		return b, a, fmt.Sprintf("%q is due earlier, at %s.", b.Label(), b.DueTime.Display())
	}

	if addedBefore(b, a) {
		return b, a, fmt.Sprintf("%q was added first.", b.Label())
	}
	return a, b, fmt.Sprintf("%q was added first.", a.Label())
}

// addedBefore reports whether a was created before b. A zero CreatedAt marks
// a task that has not been stored yet, which is newer than any stored task.
func addedBefore(a, b *models.Task) bool {
	switch {
	case a.CreatedAt.IsZero():
		return false
	case b.CreatedAt.IsZero():
		return true
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func dueMinutes(t *models.Task) int {
	if t.DueTime == nil {
		return calendar.MinutesPerDay
	}
	return t.DueTime.Minutes()
}
