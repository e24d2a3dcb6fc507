package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time within a day, minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (want HH:MM)", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// seconds since midnight.
func (t TimeOfDay) seconds() int { return t.Hour*3600 + t.Minute*60 }

// On anchors the time of day to the calendar date of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

// Hours is a store's (open, close) pair for one weekday.
type Hours struct {
	Open  TimeOfDay
	Close TimeOfDay
}

// Policy is the full scheduling policy, supplied at construction.
// It is never mutated by the scheduler.
type Policy struct {
	// DailyQuota caps completions per calendar day.
	DailyQuota int

	// WindowStart/WindowEnd bound the bot's own operating hours, which are
	// distinct from (and narrower than) store opening hours.
	WindowStart TimeOfDay
	WindowEnd   TimeOfDay

	// StoreHours is indexed by time.Weekday (Sunday = 0).
	StoreHours [7]Hours

	// VisitLookback bounds how far back a synthesized visit time may land
	// behind "now".
	VisitLookback time.Duration
}

// DefaultPolicy mirrors the production questionnaire rules: 6 runs per day
// inside 11:30-21:38, store open 09:00-22:30 (23:00 Friday and Saturday),
// visits backdated at most one hour.
func DefaultPolicy() Policy {
	std := Hours{Open: TimeOfDay{9, 0}, Close: TimeOfDay{22, 30}}
	late := Hours{Open: TimeOfDay{9, 0}, Close: TimeOfDay{23, 0}}

	var hours [7]Hours
	for d := time.Sunday; d <= time.Saturday; d++ {
		hours[d] = std
	}
	hours[time.Friday] = late
	hours[time.Saturday] = late

	return Policy{
		DailyQuota:    6,
		WindowStart:   TimeOfDay{11, 30},
		WindowEnd:     TimeOfDay{21, 38},
		StoreHours:    hours,
		VisitLookback: time.Hour,
	}
}

func (p Policy) validate() error {
	if p.DailyQuota <= 0 {
		return fmt.Errorf("daily quota must be > 0")
	}
	if p.WindowStart.seconds() >= p.WindowEnd.seconds() {
		return fmt.Errorf("window start %s must be before window end %s", p.WindowStart, p.WindowEnd)
	}
	if p.VisitLookback <= 0 {
		return fmt.Errorf("visit lookback must be > 0")
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		h := p.StoreHours[d]
		if h.Open.seconds() >= h.Close.seconds() {
			return fmt.Errorf("%s: store open %s must be before close %s", d, h.Open, h.Close)
		}
	}
	return nil
}
