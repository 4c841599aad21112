package metrics

import "time"

// ResultLabel enumerates sync operation outcomes for counters.
type ResultLabel string

const (
	ResultChanged   ResultLabel = "changed"   // working copy or remote moved
	ResultUnchanged ResultLabel = "unchanged" // no-op
	ResultConflict  ResultLabel = "conflict"  // divergence or blocking local changes
	ResultFailed    ResultLabel = "failed"
)

// Operation names used as metric labels.
const (
	OpClone    = "clone"
	OpFetch    = "fetch"
	OpPull     = "pull"
	OpPush     = "push"
	OpCheckout = "checkout"
)

// Recorder defines observability hooks for repository sync operations.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveSyncDuration(op string, d time.Duration, result ResultLabel)
	IncSyncResult(op string, result ResultLabel)
	AddCommitsApplied(n int)
	SetDivergence(ahead, behind int)
	IncRetry(op string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSyncDuration(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncSyncResult(string, ResultLabel)                      {}
func (NoopRecorder) AddCommitsApplied(int)                                  {}
func (NoopRecorder) SetDivergence(int, int)                                 {}
func (NoopRecorder) IncRetry(string)                                        {}
