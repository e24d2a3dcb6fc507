package scheduler

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// wed is a Wednesday well inside the default store hours.
var wed = time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)

func newTestScheduler(t *testing.T, clk *fakeClock, policy Policy) *Scheduler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scheduler_state.json")
	s, err := New(path, policy,
		WithClock(clk),
		WithRand(rand.New(rand.NewSource(1))),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func at(base time.Time, hour, min int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), hour, min, 0, 0, base.Location())
}

func TestCanRunNowChecks(t *testing.T) {
	t.Parallel()

	// Narrow store hours so the "store closed" branch is reachable while
	// inside the bot window.
	narrow := DefaultPolicy()
	for d := range narrow.StoreHours {
		narrow.StoreHours[d] = Hours{Open: TimeOfDay{12, 0}, Close: TimeOfDay{21, 0}}
	}

	tests := []struct {
		name   string
		policy Policy
		now    time.Time
		count  int
		want   bool
		reason string
	}{
		{name: "ok inside window", policy: DefaultPolicy(), now: at(wed, 12, 0), want: true, reason: ReasonOK},
		{name: "quota reached wins over time", policy: DefaultPolicy(), now: at(wed, 12, 0), count: 6, want: false, reason: ReasonQuota},
		{name: "one before quota still allowed", policy: DefaultPolicy(), now: at(wed, 12, 0), count: 5, want: true, reason: ReasonOK},
		{name: "one minute before window start", policy: DefaultPolicy(), now: at(wed, 11, 29), want: false, reason: ReasonTooEarly},
		{name: "exactly at window start", policy: DefaultPolicy(), now: at(wed, 11, 30), want: true, reason: ReasonOK},
		{name: "exactly at window end", policy: DefaultPolicy(), now: at(wed, 21, 38), want: true, reason: ReasonOK},
		{name: "one second past window end", policy: DefaultPolicy(), now: at(wed, 21, 38).Add(time.Second), want: false, reason: ReasonTooLate},
		{name: "late evening", policy: DefaultPolicy(), now: at(wed, 22, 0), want: false, reason: ReasonTooLate},
		{name: "store closed inside bot window", policy: narrow, now: at(wed, 11, 45), want: false, reason: ReasonStoreClosed},
		{name: "store open inside bot window", policy: narrow, now: at(wed, 12, 30), want: true, reason: ReasonOK},
		{name: "quota wins over too early", policy: DefaultPolicy(), now: at(wed, 8, 0), count: 6, want: false, reason: ReasonQuota},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clk := &fakeClock{t: tt.now}
			s := newTestScheduler(t, clk, tt.policy)
			s.todayCount = tt.count
			s.lastReset = dateOf(tt.now)

			got, reason := s.CanRunNow()
			if got != tt.want || reason != tt.reason {
				t.Fatalf("CanRunNow() = (%v, %q), want (%v, %q)", got, reason, tt.want, tt.reason)
			}
		})
	}
}

func TestNextRunTimeQuotaReached(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 14, 0)}
	s := newTestScheduler(t, clk, DefaultPolicy())
	s.todayCount = 6
	s.lastReset = dateOf(clk.t)

	next, ok := s.NextRunTime()
	if !ok {
		t.Fatal("NextRunTime() returned no slot")
	}
	want := at(wed.AddDate(0, 0, 1), 11, 30)
	if !next.Equal(want) {
		t.Fatalf("NextRunTime() = %v, want tomorrow at window start %v", next, want)
	}
}

func TestNextRunTimeBeforeWindow(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 9, 0)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	next, ok := s.NextRunTime()
	if !ok {
		t.Fatal("NextRunTime() returned no slot")
	}
	if want := at(wed, 11, 30); !next.Equal(want) {
		t.Fatalf("NextRunTime() = %v, want today at window start %v", next, want)
	}
}

func TestNextRunTimeAfterWindow(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 22, 30)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	next, ok := s.NextRunTime()
	if !ok {
		t.Fatal("NextRunTime() returned no slot")
	}
	want := at(wed.AddDate(0, 0, 1), 11, 30)
	if !next.Equal(want) {
		t.Fatalf("NextRunTime() = %v, want tomorrow at window start %v", next, want)
	}
}

func TestNextRunTimeInsideWindowBounds(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 13, 0)}
	s := newTestScheduler(t, clk, DefaultPolicy())
	s.todayCount = 2
	s.lastReset = dateOf(clk.t)

	end := at(wed, 21, 38)
	for i := 0; i < 200; i++ {
		next, ok := s.NextRunTime()
		if !ok {
			t.Fatal("NextRunTime() returned no slot inside window")
		}
		if !next.After(clk.t) {
			t.Fatalf("NextRunTime() = %v, not after now %v", next, clk.t)
		}
		if next.After(end) {
			t.Fatalf("NextRunTime() = %v, past window end %v", next, end)
		}
		// Delay floor: at least 5 minutes out.
		if next.Sub(clk.t) < 5*time.Minute {
			t.Fatalf("NextRunTime() = %v, closer than 5m to now", next)
		}
	}
}

func TestVisitTimestampBounds(t *testing.T) {
	t.Parallel()
	// 10 minutes into the window: lookback clamps to window start, so the
	// draw range is [11:30, 11:40].
	clk := &fakeClock{t: at(wed, 11, 40)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	start := at(wed, 11, 30)
	for i := 0; i < 200; i++ {
		v, ok := s.VisitTimestamp()
		if !ok {
			t.Fatal("VisitTimestamp() returned no range")
		}
		if v.At.After(clk.t) {
			t.Fatalf("visit %v is in the future (now %v)", v.At, clk.t)
		}
		if v.At.Before(start) {
			t.Fatalf("visit %v precedes window start %v", v.At, start)
		}
	}
}

func TestVisitTimestampFormat(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 15, 7)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	v, ok := s.VisitTimestamp()
	if !ok {
		t.Fatal("VisitTimestamp() returned no range")
	}
	if got := v.At.Format("02/01/2006"); v.Date != got {
		t.Fatalf("Date = %q, want %q", v.Date, got)
	}
	if got := v.At.Format("15"); v.Hour != got {
		t.Fatalf("Hour = %q, want %q", v.Hour, got)
	}
	if got := v.At.Format("04"); v.Minute != got {
		t.Fatalf("Minute = %q, want %q", v.Minute, got)
	}
}

func TestVisitTimestampNoValidRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "exactly at window start", now: at(wed, 11, 30)},
		{name: "before window start", now: at(wed, 10, 0)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clk := &fakeClock{t: tt.now}
			s := newTestScheduler(t, clk, DefaultPolicy())
			if _, ok := s.VisitTimestamp(); ok {
				t.Fatal("VisitTimestamp() returned a value; want hard stop")
			}
		})
	}
}

func TestVisitTimestampLookbackFloor(t *testing.T) {
	t.Parallel()
	// Deep inside the window the floor is now-lookback, not window start.
	clk := &fakeClock{t: at(wed, 18, 0)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	floor := clk.t.Add(-time.Hour)
	for i := 0; i < 200; i++ {
		v, ok := s.VisitTimestamp()
		if !ok {
			t.Fatal("VisitTimestamp() returned no range")
		}
		if v.At.Before(floor) {
			t.Fatalf("visit %v exceeds lookback floor %v", v.At, floor)
		}
	}
}

func TestDayRolloverResetsAndIsIdempotent(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 12, 0)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	s.RecordCompletion()
	s.RecordCompletion()
	s.SetNextScheduled(at(wed, 15, 0))
	if s.todayCount != 2 {
		t.Fatalf("todayCount = %d, want 2", s.todayCount)
	}

	// Next day: first entry point resets everything.
	clk.t = clk.t.AddDate(0, 0, 1)
	if ok, reason := s.CanRunNow(); !ok {
		t.Fatalf("CanRunNow() after rollover = (false, %q), want allowed", reason)
	}
	if s.todayCount != 0 || len(s.completedTimes) != 0 || !s.nextScheduled.IsZero() {
		t.Fatalf("rollover did not reset state: count=%d times=%d next=%v",
			s.todayCount, len(s.completedTimes), s.nextScheduled)
	}

	// Second call on the same day is a no-op.
	s.RecordCompletion()
	if _, _ = s.CanRunNow(); s.todayCount != 1 {
		t.Fatalf("todayCount = %d after same-day rollover check, want 1", s.todayCount)
	}
}

func TestRecordCompletionAppendsExactlyOne(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 13, 42)}
	s := newTestScheduler(t, clk, DefaultPolicy())

	s.RecordCompletion()
	if s.todayCount != 1 {
		t.Fatalf("todayCount = %d, want 1", s.todayCount)
	}
	if len(s.completedTimes) != 1 || s.completedTimes[0] != "13:42:00" {
		t.Fatalf("completedTimes = %v, want [13:42:00]", s.completedTimes)
	}
}

func TestStatusSnapshot(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{t: at(wed, 12, 0)}
	s := newTestScheduler(t, clk, DefaultPolicy())
	s.RecordCompletion()

	st := s.Status()
	if st.TodayCount != 1 || st.DailyQuota != 6 || st.Remaining != 5 {
		t.Fatalf("counters = %d/%d remaining %d", st.TodayCount, st.DailyQuota, st.Remaining)
	}
	if !st.CanRun || st.Reason != ReasonOK {
		t.Fatalf("CanRun = (%v, %q), want (true, OK)", st.CanRun, st.Reason)
	}
	if !st.HasNextRun {
		t.Fatal("snapshot missing next run")
	}
	if st.WindowStart != "11:30" || st.WindowEnd != "21:38" {
		t.Fatalf("window = %s-%s", st.WindowStart, st.WindowEnd)
	}
}

func TestPolicyValidation(t *testing.T) {
	t.Parallel()
	bad := DefaultPolicy()
	bad.WindowStart, bad.WindowEnd = bad.WindowEnd, bad.WindowStart
	if _, err := New(filepath.Join(t.TempDir(), "s.json"), bad); err == nil {
		t.Fatal("expected error for inverted window")
	}

	zero := DefaultPolicy()
	zero.DailyQuota = 0
	if _, err := New(filepath.Join(t.TempDir(), "s.json"), zero); err == nil {
		t.Fatal("expected error for zero quota")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	got, err := ParseTimeOfDay("21:38")
	if err != nil {
		t.Fatalf("ParseTimeOfDay: %v", err)
	}
	if got.Hour != 21 || got.Minute != 38 {
		t.Fatalf("unexpected result: %v", got)
	}
	for _, bad := range []string{"24:00", "12:60", "nope", ""} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("ParseTimeOfDay(%q): expected error", bad)
		}
	}
}
