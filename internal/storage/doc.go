// Package storage persists the run history (one record per questionnaire
// attempt) behind a small Store interface with file and sqlite drivers.
//
// This is history only: the scheduler's own JSON state file remains
// authoritative for quota accounting. A disabled store is represented by a
// nil Store, which callers must tolerate.
package storage
