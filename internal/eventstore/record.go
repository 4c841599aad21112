// Package eventstore keeps an append-only history of sync runs in SQLite.
package eventstore

import (
	"time"

	"github.com/google/uuid"
)

// Outcome values recorded for a run.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeConflict  = "conflict"
	OutcomeFailed    = "failed"
)

// Record is one sync operation.
type Record struct {
	ID         int64         `json:"id" yaml:"id"`
	RunID      string        `json:"run_id" yaml:"run_id"`
	Operation  string        `json:"operation" yaml:"operation"` // pull, push, checkout
	Outcome    string        `json:"outcome" yaml:"outcome"`
	Repository string        `json:"repository" yaml:"repository"` // working copy path
	URL        string        `json:"url,omitempty" yaml:"url,omitempty"`
	Branch     string        `json:"branch,omitempty" yaml:"branch,omitempty"`
	HeadBefore string        `json:"head_before,omitempty" yaml:"head_before,omitempty"`
	HeadAfter  string        `json:"head_after,omitempty" yaml:"head_after,omitempty"`
	Commits    int           `json:"commits" yaml:"commits"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
}

// NewRunID returns an identifier grouping the records of one command or watch tick.
func NewRunID() string { return uuid.NewString() }
