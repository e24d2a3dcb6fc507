package scheduler

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	logx "surveybot/pkg/logx"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
	clockLayout     = "15:04:05"
)

// diskState is the persisted JSON shape. Field names are part of the
// on-disk contract; do not rename.
type diskState struct {
	TodayCount        int      `json:"today_count"`
	LastResetDate     string   `json:"last_reset_date"`
	CompletedTimes    []string `json:"completed_times"`
	NextScheduledTime *string  `json:"next_scheduled_time"`
	LastUpdate        string   `json:"last_update"`
}

// load reads the state file into memory. Missing or corrupt files degrade
// to a fresh state for today; only the warning is kept.
func (s *Scheduler) load() {
	now := s.clock.Now()
	s.todayCount = 0
	s.lastReset = dateOf(now)
	s.completedTimes = nil
	s.nextScheduled = time.Time{}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("no scheduler state file; starting fresh", logx.String("path", s.path))
		} else {
			s.log.Warn("scheduler state unreadable; starting fresh", logx.String("path", s.path), logx.Err(err))
		}
		return
	}

	var ds diskState
	if err := json.Unmarshal(b, &ds); err != nil {
		s.log.Warn("scheduler state corrupt; starting fresh", logx.String("path", s.path), logx.Err(err))
		return
	}

	if ds.TodayCount > 0 {
		s.todayCount = ds.TodayCount
	}
	if d, err := time.ParseInLocation(dateLayout, ds.LastResetDate, now.Location()); err == nil {
		s.lastReset = d
	}
	s.completedTimes = append([]string(nil), ds.CompletedTimes...)
	if ds.NextScheduledTime != nil {
		if t, err := time.ParseInLocation(timestampLayout, *ds.NextScheduledTime, now.Location()); err == nil {
			s.nextScheduled = t
		}
	}

	s.log.Info("scheduler state loaded",
		logx.Int("today_count", s.todayCount),
		logx.String("last_reset_date", s.lastReset.Format(dateLayout)),
		logx.Int("completed", len(s.completedTimes)))
}

// save writes the state file atomically (temp + rename). Failures are
// logged and swallowed: in-memory state stays authoritative for this
// process lifetime.
func (s *Scheduler) save() {
	ds := diskState{
		TodayCount:     s.todayCount,
		LastResetDate:  s.lastReset.Format(dateLayout),
		CompletedTimes: s.completedTimes,
		LastUpdate:     s.clock.Now().Format(timestampLayout),
	}
	if ds.CompletedTimes == nil {
		ds.CompletedTimes = []string{}
	}
	if !s.nextScheduled.IsZero() {
		v := s.nextScheduled.Format(timestampLayout)
		ds.NextScheduledTime = &v
	}

	b, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		s.log.Error("scheduler state marshal failed", logx.Err(err))
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Error("scheduler state dir create failed", logx.String("dir", dir), logx.Err(err))
			return
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		s.log.Error("scheduler state write failed", logx.String("path", tmp), logx.Err(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Error("scheduler state rename failed", logx.String("path", s.path), logx.Err(err))
	}
}

// rollover resets counters when the calendar date has moved past
// lastReset. Idempotent within a day; persists immediately on reset so a
// crash right after cannot resurrect yesterday's quota.
func (s *Scheduler) rollover() {
	today := dateOf(s.clock.Now())
	if today.Equal(s.lastReset) {
		return
	}
	s.todayCount = 0
	s.lastReset = today
	s.completedTimes = nil
	s.nextScheduled = time.Time{}
	s.save()
	s.log.Info("new day; counters reset", logx.String("date", today.Format(dateLayout)))
}

// dateOf truncates t to midnight in t's location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
