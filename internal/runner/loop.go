package runner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"surveybot/internal/notifier"
	"surveybot/internal/reviews"
	"surveybot/internal/scheduler"
	"surveybot/internal/storage"
	logx "surveybot/pkg/logx"
)

// defaultCategories is the pool the loop draws a service category from
// for each pass.
var defaultCategories = []string{
	reviews.CategoryKioskDineIn,
	reviews.CategoryKioskTakeaway,
	reviews.CategoryCounterDineIn,
	reviews.CategoryCounterTakeaway,
	reviews.CategoryDrive,
}

// Loop runs questionnaire passes whenever the scheduler allows one.
// Single goroutine; the scheduler is its only writer, per the
// single-writer assumption of the state file.
type Loop struct {
	log     logx.Logger
	sched   *scheduler.Scheduler
	driver  Driver
	reviews *reviews.Manager
	notify  notifier.Notifier // may be nil
	store   storage.Store     // may be nil

	clock scheduler.Clock
	rng   *rand.Rand

	// pollInterval bounds every wait so cancellation and wall-clock jumps
	// are noticed promptly.
	pollInterval time.Duration

	categories []string

	quotaAnnounced bool
}

type LoopOption func(*Loop)

func WithNotifier(n notifier.Notifier) LoopOption { return func(l *Loop) { l.notify = n } }
func WithStore(s storage.Store) LoopOption        { return func(l *Loop) { l.store = s } }
func WithLoopClock(c scheduler.Clock) LoopOption  { return func(l *Loop) { l.clock = c } }
func WithLoopRand(r *rand.Rand) LoopOption        { return func(l *Loop) { l.rng = r } }
func WithPollInterval(d time.Duration) LoopOption { return func(l *Loop) { l.pollInterval = d } }
func WithCategories(cats []string) LoopOption     { return func(l *Loop) { l.categories = cats } }

func NewLoop(log logx.Logger, sched *scheduler.Scheduler, driver Driver, rev *reviews.Manager, opts ...LoopOption) *Loop {
	l := &Loop{
		log:          log,
		sched:        sched,
		driver:       driver,
		reviews:      rev,
		clock:        scheduler.SystemClock(nil),
		pollInterval: time.Second,
		categories:   defaultCategories,
	}
	for _, o := range opts {
		o(l)
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return l
}

// Run blocks until ctx is done, executing passes whenever allowed.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("control loop started", logx.String("driver", l.driver.Name()))
	for ctx.Err() == nil {
		allowed, reason := l.sched.CanRunNow()
		if !allowed {
			l.idle(ctx, reason)
			continue
		}
		l.quotaAnnounced = false

		l.runOnce(ctx)

		// Space out the next pass regardless of outcome.
		if next, ok := l.sched.NextRunTime(); ok {
			l.sched.SetNextScheduled(next)
			l.log.Info("next pass scheduled", logx.Time("next", next))
			l.waitUntil(ctx, next)
		} else {
			l.wait(ctx, l.pollInterval)
		}
	}
	l.log.Info("control loop stopped")
	return ctx.Err()
}

// idle handles a disallowed cycle: announce quota once per day, persist
// the predicted next slot, and wait for it.
func (l *Loop) idle(ctx context.Context, reason string) {
	next, ok := l.sched.NextRunTime()
	if !ok {
		l.log.Warn("no next run slot; retrying shortly", logx.String("reason", reason))
		l.wait(ctx, l.pollInterval)
		return
	}
	l.sched.SetNextScheduled(next)

	if reason == scheduler.ReasonQuota && !l.quotaAnnounced {
		l.quotaAnnounced = true
		st := l.sched.Status()
		l.send(ctx, notifier.Event{
			Kind:     notifier.KindQuota,
			Priority: 3,
			Text: fmt.Sprintf("Daily quota reached (%d/%d). Next run %s.",
				st.TodayCount, st.DailyQuota, next.Format("02/01/2006 15:04")),
		})
	}

	l.log.Debug("not allowed now; waiting",
		logx.String("reason", reason), logx.Time("next", next))
	l.waitUntil(ctx, next)
}

// runOnce executes a single questionnaire pass.
func (l *Loop) runOnce(ctx context.Context) {
	visit, ok := l.sched.VisitTimestamp()
	if !ok {
		// No plausible visit window: hard stop for this cycle.
		l.log.Warn("no valid visit window; skipping cycle")
		l.wait(ctx, l.pollInterval)
		return
	}

	category := l.categories[l.rng.Intn(len(l.categories))]
	review := l.reviews.Pick(category)

	start := l.clock.Now()
	res, err := l.driver.Run(ctx, visit, review)
	if err != nil {
		l.log.Error("questionnaire pass failed",
			logx.String("driver", l.driver.Name()),
			logx.String("category", review.Category),
			logx.Err(err))
		l.appendRun(ctx, storage.RunRecord{
			At:       start,
			Outcome:  storage.OutcomeFailure,
			Category: review.Category,
			VisitAt:  visit.At,
			TookMS:   res.Took.Milliseconds(),
			Steps:    res.Steps,
			Error:    err.Error(),
		})
		l.send(ctx, notifier.Event{
			Kind:     notifier.KindFailure,
			Priority: 5,
			Text:     fmt.Sprintf("Questionnaire failed (%s): %v", review.Category, err),
		})
		return
	}

	l.sched.RecordCompletion()
	l.appendRun(ctx, storage.RunRecord{
		At:       start,
		Outcome:  storage.OutcomeSuccess,
		Category: review.Category,
		VisitAt:  visit.At,
		TookMS:   res.Took.Milliseconds(),
		Steps:    res.Steps,
	})

	st := l.sched.Status()
	l.send(ctx, notifier.Event{
		Kind:     notifier.KindSuccess,
		Priority: 1,
		Text: fmt.Sprintf("Questionnaire %d/%d completed (%s, %d steps, %s).",
			st.TodayCount, st.DailyQuota, review.Category, res.Steps, res.Took.Round(time.Second)),
	})

	// Announce the quota the moment the last slot of the day is used.
	if st.TodayCount >= st.DailyQuota {
		l.quotaAnnounced = true
		text := fmt.Sprintf("Daily quota reached (%d/%d).", st.TodayCount, st.DailyQuota)
		if next, ok := l.sched.NextRunTime(); ok {
			text += fmt.Sprintf(" Next run %s.", next.Format("02/01/2006 15:04"))
		}
		l.send(ctx, notifier.Event{Kind: notifier.KindQuota, Priority: 3, Text: text})
	}
}

func (l *Loop) appendRun(ctx context.Context, r storage.RunRecord) {
	if l.store == nil {
		return
	}
	if err := l.store.AppendRun(ctx, r); err != nil {
		l.log.Warn("run history append failed", logx.Err(err))
	}
}

func (l *Loop) send(ctx context.Context, ev notifier.Event) {
	if l.notify == nil {
		return
	}
	_ = l.notify.Notify(ctx, ev)
}

// waitUntil sleeps until t, re-arming at most every pollInterval so
// cancellation takes effect within one interval and suspend/resume clock
// jumps are picked up.
func (l *Loop) waitUntil(ctx context.Context, t time.Time) {
	for ctx.Err() == nil {
		remaining := t.Sub(l.clock.Now())
		if remaining <= 0 {
			return
		}
		if remaining > l.pollInterval {
			remaining = l.pollInterval
		}
		l.wait(ctx, remaining)
	}
}

func (l *Loop) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
