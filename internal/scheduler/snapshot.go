package scheduler

import "time"

// Snapshot is a read-only aggregate for display (status commands, reports).
type Snapshot struct {
	Now        time.Time
	TodayCount int
	DailyQuota int
	Remaining  int

	CanRun bool
	Reason string

	NextRun    time.Time
	HasNextRun bool

	CompletedTimes []string

	WindowStart string
	WindowEnd   string
}

// Status returns the current scheduler snapshot. Triggers the day-rollover
// check but has no other side effects.
func (s *Scheduler) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	canRun, reason := s.canRunLocked()
	next, hasNext := s.nextRunLocked()

	return Snapshot{
		Now:            s.clock.Now(),
		TodayCount:     s.todayCount,
		DailyQuota:     s.policy.DailyQuota,
		Remaining:      s.policy.DailyQuota - s.todayCount,
		CanRun:         canRun,
		Reason:         reason,
		NextRun:        next,
		HasNextRun:     hasNext,
		CompletedTimes: append([]string(nil), s.completedTimes...),
		WindowStart:    s.policy.WindowStart.String(),
		WindowEnd:      s.policy.WindowEnd.String(),
	}
}
