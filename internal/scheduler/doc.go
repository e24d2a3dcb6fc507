// Package scheduler gates questionnaire runs against a daily quota and a
// time-window policy, predicts the next allowed run, and synthesizes a
// plausible backdated visit timestamp for the survey form.
//
// The scheduler is a pure function of (now, persisted counters): it has no
// explicit states, and the only transition is the lazy day-rollover reset
// performed on every entry point. State is persisted to a small JSON file
// after every mutation; a missing or corrupt file degrades to a fresh state
// for today and is never fatal.
package scheduler
