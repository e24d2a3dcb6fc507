// Package runner owns the control loop: it gates each questionnaire pass
// through the scheduler, drives an opaque survey driver, records the
// outcome, and waits (interruptibly) for the next slot.
package runner

import (
	"context"
	"time"

	"surveybot/internal/reviews"
	"surveybot/internal/scheduler"
)

// Result reports a finished driver pass.
type Result struct {
	Steps int
	Took  time.Duration
}

// Driver fills one questionnaire. The scheduler and the loop know nothing
// about how: a driver may steer a browser, call an API, or simulate.
// It must honor ctx cancellation between steps.
type Driver interface {
	Name() string
	Run(ctx context.Context, visit scheduler.Visit, review reviews.Review) (Result, error)
}
