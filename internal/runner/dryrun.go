package runner

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"surveybot/internal/reviews"
	"surveybot/internal/scheduler"
	logx "surveybot/pkg/logx"
)

// DryRunConfig paces the simulated pass. Zero values get defaults.
type DryRunConfig struct {
	SurveyURL      string
	RestaurantCode string

	StepPauseMin   time.Duration // default 1s
	StepPauseMax   time.Duration // default 3s
	MinRunDuration time.Duration // 0 disables padding; a too-fast pass looks robotic
}

// DryRun walks the questionnaire's step sequence without touching a
// browser: each step logs and pauses inside the configured bounds. It
// exists to exercise the scheduler/loop/notifier wiring end to end.
type DryRun struct {
	cfg DryRunConfig
	log logx.Logger
	rng *rand.Rand
}

func NewDryRun(cfg DryRunConfig, log logx.Logger) *DryRun {
	if cfg.StepPauseMin <= 0 {
		cfg.StepPauseMin = time.Second
	}
	if cfg.StepPauseMax < cfg.StepPauseMin {
		cfg.StepPauseMax = 3 * time.Second
		if cfg.StepPauseMax < cfg.StepPauseMin {
			cfg.StepPauseMax = cfg.StepPauseMin
		}
	}
	if cfg.MinRunDuration < 0 {
		cfg.MinRunDuration = 0
	}
	return &DryRun{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *DryRun) Name() string { return "dryrun" }

// Run walks the base steps, the branch for the review's service category,
// and the final steps, mirroring the production questionnaire flow.
func (d *DryRun) Run(ctx context.Context, visit scheduler.Visit, review reviews.Review) (Result, error) {
	start := time.Now()
	steps := stepsFor(review.Category)

	d.log.Info("questionnaire pass starting",
		logx.String("url", d.cfg.SurveyURL),
		logx.String("restaurant", d.cfg.RestaurantCode),
		logx.String("category", review.Category),
		logx.String("visit", visit.Date+" "+visit.Hour+":"+visit.Minute),
		logx.Int("steps", len(steps)))

	for i, name := range steps {
		if err := d.pause(ctx); err != nil {
			return Result{Steps: i, Took: time.Since(start)}, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		d.log.Debug("step done", logx.Int("step", i+1), logx.String("name", name))
	}

	// Pad to the minimum duration so each pass takes a human-plausible time.
	if remaining := d.cfg.MinRunDuration - time.Since(start); remaining > 0 {
		t := time.NewTimer(remaining)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Result{Steps: len(steps), Took: time.Since(start)}, ctx.Err()
		case <-t.C:
		}
	}

	took := time.Since(start)
	d.log.Info("questionnaire pass finished",
		logx.Int("steps", len(steps)),
		logx.Duration("took", took))
	return Result{Steps: len(steps), Took: took}, nil
}

func (d *DryRun) pause(ctx context.Context) error {
	span := d.cfg.StepPauseMax - d.cfg.StepPauseMin
	wait := d.cfg.StepPauseMin
	if span > 0 {
		wait += time.Duration(d.rng.Int63n(int64(span) + 1))
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// stepsFor returns the step sequence for a service category: the four base
// steps, a category-dependent branch, then the four final steps.
func stepsFor(category string) []string {
	steps := []string{
		"start survey",
		"age selection",
		"ticket info",
		"order location",
	}
	switch {
	case strings.HasPrefix(category, "borne_") || strings.HasPrefix(category, "comptoir_"):
		steps = append(steps, "consumption type", "pickup location")
	case strings.HasPrefix(category, "cc_"):
		steps = append(steps, "click and collect pickup")
	}
	return append(steps,
		"satisfaction and comment",
		"dimension ratings",
		"order accuracy",
		"problem encountered",
	)
}
