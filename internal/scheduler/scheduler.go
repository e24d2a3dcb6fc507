package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	logx "surveybot/pkg/logx"
)

// Reasons returned by CanRunNow. Stable strings: callers and tests match
// on them, and they show up in status output.
const (
	ReasonOK          = "OK"
	ReasonQuota       = "quota reached"
	ReasonTooEarly    = "too early"
	ReasonTooLate     = "too late"
	ReasonStoreClosed = "store closed"
)

// Visit is the synthesized "when did you visit" answer: the three strings
// typed into the form plus the drawn instant.
type Visit struct {
	Date   string // DD/MM/YYYY
	Hour   string // 24h, zero-padded
	Minute string // zero-padded
	At     time.Time
}

// Scheduler gates questionnaire execution. It assumes a single control
// loop as writer; the mutex only protects read-only Status() calls from
// other goroutines (reports, notifiers).
type Scheduler struct {
	mu sync.Mutex

	log    logx.Logger
	clock  Clock
	rng    *rand.Rand
	policy Policy
	path   string

	todayCount     int
	lastReset      time.Time // midnight of the day the counters apply to
	completedTimes []string
	nextScheduled  time.Time // advisory cache only; zero means unset
}

type Option func(*Scheduler)

func WithClock(c Clock) Option        { return func(s *Scheduler) { s.clock = c } }
func WithLogger(l logx.Logger) Option { return func(s *Scheduler) { s.log = l } }
func WithRand(r *rand.Rand) Option    { return func(s *Scheduler) { s.rng = r } }

// New builds a scheduler persisting to path and loads any prior state.
func New(path string, policy Policy, opts ...Option) (*Scheduler, error) {
	if err := policy.validate(); err != nil {
		return nil, fmt.Errorf("scheduler policy: %w", err)
	}
	s := &Scheduler{
		log:    logx.Nop(),
		clock:  SystemClock(nil),
		policy: policy,
		path:   path,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.load()
	return s, nil
}

// CanRunNow reports whether a questionnaire may start right now and why
// not otherwise. First failing check wins. No side effects beyond the
// day-rollover reset.
func (s *Scheduler) CanRunNow() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canRunLocked()
}

func (s *Scheduler) canRunLocked() (bool, string) {
	s.rollover()

	now := s.clock.Now()
	sec := secondsOfDay(now)

	if s.todayCount >= s.policy.DailyQuota {
		return false, ReasonQuota
	}
	if sec < s.policy.WindowStart.seconds() {
		return false, ReasonTooEarly
	}
	if sec > s.policy.WindowEnd.seconds() {
		return false, ReasonTooLate
	}
	hours := s.policy.StoreHours[now.Weekday()]
	if sec < hours.Open.seconds() || sec > hours.Close.seconds() {
		return false, ReasonStoreClosed
	}
	return true, ReasonOK
}

// NextRunTime computes when the next run may happen. Inside the window it
// spreads the remaining quota across the operating hours with a ±30%
// jitter around the average interval, clamped to the window end. The
// second return is false only when no valid slot exists (defensive).
func (s *Scheduler) NextRunTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunLocked()
}

func (s *Scheduler) nextRunLocked() (time.Time, bool) {
	s.rollover()

	now := s.clock.Now()
	sec := secondsOfDay(now)

	// Quota reached or past the window: tomorrow at window start.
	if s.todayCount >= s.policy.DailyQuota || sec > s.policy.WindowEnd.seconds() {
		return s.policy.WindowStart.On(now.AddDate(0, 0, 1)), true
	}
	// Before the window: today at window start.
	if sec < s.policy.WindowStart.seconds() {
		return s.policy.WindowStart.On(now), true
	}

	remaining := s.policy.DailyQuota - s.todayCount
	if remaining <= 0 {
		return time.Time{}, false
	}

	windowMinutes := float64(s.policy.WindowEnd.seconds()-s.policy.WindowStart.seconds()) / 60
	avg := windowMinutes / float64(s.policy.DailyQuota)
	lo := int(avg * 0.7)
	hi := int(avg * 1.3)
	if lo < 5 {
		lo = 5
	}
	if hi < lo {
		hi = lo
	}
	delay := lo + s.rng.Intn(hi-lo+1)

	next := now.Add(time.Duration(delay) * time.Minute)
	end := s.policy.WindowEnd.On(now)
	if next.After(end) {
		next = end
	}
	s.log.Debug("next run computed", logx.Int("delay_min", delay), logx.Time("next", next))
	return next, true
}

// VisitTimestamp synthesizes a plausible visit time: never in the future,
// never before the window start of the current day, at most VisitLookback
// behind now, drawn uniformly at one-minute granularity. Returns false
// when no valid range exists; callers must treat that as a hard stop for
// the step, not retry in a hot loop.
func (s *Scheduler) VisitTimestamp() (Visit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	end := now
	start := now.Add(-s.policy.VisitLookback)
	if botStart := s.policy.WindowStart.On(now); start.Before(botStart) {
		start = botStart
	}
	if !start.Before(end) {
		s.log.Warn("no valid visit time range",
			logx.Time("start", start), logx.Time("end", end))
		return Visit{}, false
	}

	spanMinutes := int(end.Sub(start).Minutes())
	var at time.Time
	if spanMinutes < 1 {
		at = now
	} else {
		at = start.Add(time.Duration(s.rng.Intn(spanMinutes+1)) * time.Minute)
	}

	v := Visit{
		Date:   at.Format("02/01/2006"),
		Hour:   at.Format("15"),
		Minute: at.Format("04"),
		At:     at,
	}
	s.log.Info("visit time synthesized",
		logx.Time("visit", at),
		logx.Time("range_start", start),
		logx.Time("range_end", end))
	return v, true
}

// RecordCompletion increments today's counter, appends the wall-clock
// completion time, and persists before returning.
func (s *Scheduler) RecordCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover()
	s.todayCount++
	at := s.clock.Now().Format(clockLayout)
	s.completedTimes = append(s.completedTimes, at)
	s.save()
	s.log.Info("questionnaire recorded",
		logx.Int("today_count", s.todayCount),
		logx.Int("quota", s.policy.DailyQuota),
		logx.String("at", at))
}

// SetNextScheduled persists the announced next run time. A zero time
// clears it. The value is an advisory cache for restarts and status
// display; the loop always recomputes.
func (s *Scheduler) SetNextScheduled(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScheduled = t
	s.save()
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
