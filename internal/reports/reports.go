// Package reports emits a daily end-of-day summary through the notifier.
package reports

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"surveybot/internal/notifier"
	"surveybot/internal/scheduler"
	"surveybot/internal/storage"
	logx "surveybot/pkg/logx"
)

const defaultSpec = "0 22 * * *"

// recentWindow caps how many history rows the summary inspects.
const recentWindow = 50

type Config struct {
	Enabled bool
	Spec    string // cron spec, default "0 22 * * *"
}

// Service schedules the summary job. Safe to construct with a nil store;
// the summary then covers scheduler state only.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	sched  *scheduler.Scheduler
	store  storage.Store // may be nil
	notify notifier.Notifier

	parser cron.Parser
	c      *cron.Cron
}

func New(cfg Config, loc *time.Location, sched *scheduler.Scheduler, store storage.Store, notify notifier.Notifier, log logx.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		log:    log,
		cfg:    cfg,
		loc:    loc,
		sched:  sched,
		store:  store,
		notify: notify,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.c != nil {
		return nil
	}

	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		spec = defaultSpec
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	if _, err := c.AddFunc(spec, func() { s.emit(ctx) }); err != nil {
		return fmt.Errorf("reports: bad cron spec %q: %w", spec, err)
	}
	c.Start()
	s.c = c
	s.log.Info("daily report scheduled", logx.String("spec", spec), logx.String("tz", s.loc.String()))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("daily report stopped")
}

func (s *Service) emit(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	text := s.build(ctx)
	if err := s.notify.Notify(ctx, notifier.Event{Kind: notifier.KindSummary, Priority: 1, Text: text}); err != nil {
		s.log.Warn("daily report delivery failed", logx.Err(err))
	}
}

// build renders the summary from the scheduler snapshot and, when a store
// is wired, the day's run history.
func (s *Service) build(ctx context.Context) string {
	st := s.sched.Status()

	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary %s\n", st.Now.In(s.loc).Format("02/01/2006"))
	fmt.Fprintf(&b, "Completed: %d/%d", st.TodayCount, st.DailyQuota)
	if len(st.CompletedTimes) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(st.CompletedTimes, ", "))
	}
	b.WriteByte('\n')

	if s.store != nil {
		if runs, err := s.store.RecentRuns(ctx, recentWindow); err != nil {
			s.log.Warn("report history read failed", logx.Err(err))
		} else {
			success, failure := tallyDay(runs, st.Now.In(s.loc))
			fmt.Fprintf(&b, "Attempts today: %d ok, %d failed\n", success, failure)
		}
	}

	if st.HasNextRun {
		fmt.Fprintf(&b, "Next run: %s", st.NextRun.In(s.loc).Format("02/01/2006 15:04"))
	} else {
		b.WriteString("Next run: none scheduled")
	}
	return b.String()
}

func tallyDay(runs []storage.RunRecord, day time.Time) (success, failure int) {
	y, m, d := day.Date()
	for _, r := range runs {
		ry, rm, rd := r.At.In(day.Location()).Date()
		if ry != y || rm != m || rd != d {
			continue
		}
		switch r.Outcome {
		case storage.OutcomeSuccess:
			success++
		case storage.OutcomeFailure:
			failure++
		}
	}
	return success, failure
}
