package scheduler

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestStatePersistsAcrossRestart(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &fakeClock{t: at(wed, 12, 0)}

	s1, err := New(path, DefaultPolicy(), WithClock(clk), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s1.RecordCompletion()
	clk.t = at(wed, 14, 30)
	s1.RecordCompletion()
	s1.SetNextScheduled(at(wed, 16, 0))

	s2, err := New(path, DefaultPolicy(), WithClock(clk), WithRand(rand.New(rand.NewSource(2))))
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	if s2.todayCount != 2 {
		t.Fatalf("todayCount after restart = %d, want 2", s2.todayCount)
	}
	if len(s2.completedTimes) != 2 || s2.completedTimes[0] != "12:00:00" || s2.completedTimes[1] != "14:30:00" {
		t.Fatalf("completedTimes after restart = %v", s2.completedTimes)
	}
	if !s2.nextScheduled.Equal(at(wed, 16, 0)) {
		t.Fatalf("nextScheduled after restart = %v", s2.nextScheduled)
	}
	if !s2.lastReset.Equal(dateOf(wed)) {
		t.Fatalf("lastReset after restart = %v", s2.lastReset)
	}
}

func TestStateFileShape(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &fakeClock{t: at(wed, 13, 5)}

	s, err := New(path, DefaultPolicy(), WithClock(clk), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.RecordCompletion()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("state file not valid JSON: %v", err)
	}

	if got, _ := raw["today_count"].(float64); got != 1 {
		t.Fatalf("today_count = %v, want 1", raw["today_count"])
	}
	if got, _ := raw["last_reset_date"].(string); got != "2026-03-04" {
		t.Fatalf("last_reset_date = %v", raw["last_reset_date"])
	}
	times, _ := raw["completed_times"].([]any)
	if len(times) != 1 || times[0] != "13:05:00" {
		t.Fatalf("completed_times = %v", raw["completed_times"])
	}
	if v, present := raw["next_scheduled_time"]; !present || v != nil {
		t.Fatalf("next_scheduled_time = %v, want null", v)
	}
	if got, _ := raw["last_update"].(string); got == "" {
		t.Fatal("last_update missing")
	}
}

func TestCorruptStateFallsBackToFresh(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	clk := &fakeClock{t: at(wed, 12, 0)}
	s, err := New(path, DefaultPolicy(), WithClock(clk), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New with corrupt state: %v", err)
	}
	if s.todayCount != 0 || len(s.completedTimes) != 0 {
		t.Fatalf("corrupt state not reset: count=%d times=%v", s.todayCount, s.completedTimes)
	}
	if ok, reason := s.CanRunNow(); !ok {
		t.Fatalf("CanRunNow() = (false, %q) after fresh fallback", reason)
	}
}

func TestStaleStateRollsOverOnLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")

	// State written "yesterday" at full quota.
	yesterday := wed.AddDate(0, 0, -1)
	clk := &fakeClock{t: at(yesterday, 20, 0)}
	s1, err := New(path, DefaultPolicy(), WithClock(clk), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 6; i++ {
		s1.RecordCompletion()
	}
	if ok, reason := s1.CanRunNow(); ok || reason != ReasonQuota {
		t.Fatalf("CanRunNow() = (%v, %q), want quota reached", ok, reason)
	}

	// Restart the next day: loaded counters must be discarded on first use.
	clk2 := &fakeClock{t: at(wed, 12, 0)}
	s2, err := New(path, DefaultPolicy(), WithClock(clk2), WithRand(rand.New(rand.NewSource(2))))
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	if ok, reason := s2.CanRunNow(); !ok {
		t.Fatalf("CanRunNow() = (false, %q), want allowed after rollover", reason)
	}
	if s2.todayCount != 0 || len(s2.completedTimes) != 0 {
		t.Fatalf("stale counters survived rollover: count=%d times=%v", s2.todayCount, s2.completedTimes)
	}
}

func TestRolloverPersistsImmediately(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	clk := &fakeClock{t: at(wed, 12, 0)}
	s, err := New(path, DefaultPolicy(), WithClock(clk), WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.RecordCompletion()

	clk.t = clk.t.AddDate(0, 0, 1)
	_, _ = s.CanRunNow() // triggers rollover + save

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var ds diskState
	if err := json.Unmarshal(b, &ds); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if ds.TodayCount != 0 || len(ds.CompletedTimes) != 0 {
		t.Fatalf("rollover not persisted: %+v", ds)
	}
	if ds.LastResetDate != clk.t.Format(dateLayout) {
		t.Fatalf("last_reset_date = %s, want %s", ds.LastResetDate, clk.t.Format(dateLayout))
	}
}
