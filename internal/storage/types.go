package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free append-only JSON Lines backend
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Outcome values for RunRecord.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RunRecord records one questionnaire attempt.
// Keep it compact and schema-stable.
type RunRecord struct {
	At       time.Time `json:"at"`
	Outcome  string    `json:"outcome"`
	Category string    `json:"category,omitempty"`
	VisitAt  time.Time `json:"visit_at,omitempty"`
	TookMS   int64     `json:"took_ms,omitempty"`
	Steps    int       `json:"steps,omitempty"`
	Error    string    `json:"error,omitempty"`
}
