package scheduler

import "time"

// Clock provides the current instant. Injecting it keeps every temporal
// branch of the scheduler testable without sleeping or touching the
// system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

func (c systemClock) Now() time.Time {
	if c.loc != nil {
		return time.Now().In(c.loc)
	}
	return time.Now()
}

// SystemClock returns a Clock backed by time.Now in the given location.
// A nil location means local time.
func SystemClock(loc *time.Location) Clock {
	return systemClock{loc: loc}
}
