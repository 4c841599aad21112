package reposync

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docsync/internal/eventstore"
	"git.home.luguber.info/inful/docsync/internal/git"
	"git.home.luguber.info/inful/docsync/internal/notify"
	"git.home.luguber.info/inful/docsync/internal/versioning"
)

// Service is the canonical interface for sync runs.
type Service interface {
	// Sync pulls the source working copy, optionally moves it to a ref,
	// resolves the project version and optionally publishes local changes.
	Sync(ctx context.Context, req SyncRequest) (*SyncResult, error)

	// Checkout moves the source working copy to ref.
	Checkout(ctx context.Context, ref string) (*CheckoutResult, error)

	// Publish commits and pushes the publish working copy.
	Publish(ctx context.Context, message string) (*git.PushResult, error)

	// Status reports branch, upstream and divergence of the source working copy.
	Status(ctx context.Context, fetch bool) (git.SyncStatus, error)

	// Version evaluates the version script in the source tree.
	Version(ctx context.Context) (versioning.Info, error)

	// History returns recorded runs, newest first. An empty path returns all.
	History(ctx context.Context, path string, limit int) ([]eventstore.Record, error)

	// LastPublished returns the last head announced for the source repository,
	// or nil when notifications are disabled or nothing was published yet.
	LastPublished(ctx context.Context) (*notify.SyncState, error)
}

// Trigger names what started a run.
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerSchedule Trigger = "schedule"
)

// SyncRequest contains the inputs of one sync run.
type SyncRequest struct {
	// Clean removes the source working copy and clones it again.
	Clean bool

	// Ref overrides source.ref; the working copy is checked out at it after pulling.
	Ref string

	// Push commits and pushes the publish working copy after pulling.
	Push bool

	// Message overrides publish.message.
	Message string

	Trigger Trigger
}

// SyncResult contains the outcome of a sync run. Fields of steps that did
// not run are nil.
type SyncResult struct {
	RunID  string
	Status RunStatus

	Pull     *git.PullResult
	Checkout *CheckoutResult
	Version  *versioning.Info
	Push     *git.PushResult

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// CheckoutResult reports where HEAD was before and after a checkout.
type CheckoutResult struct {
	Ref      string
	Previous git.CommitRef
	Current  git.CommitRef
	Moved    bool
}

// RunStatus represents the outcome of a sync run.
type RunStatus string

const (
	// RunStatusChanged indicates the run moved a working copy or the remote.
	RunStatusChanged RunStatus = "changed"

	// RunStatusUnchanged indicates everything was already in sync.
	RunStatusUnchanged RunStatus = "unchanged"

	// RunStatusConflict indicates divergence or local changes blocked the run.
	RunStatusConflict RunStatus = "conflict"

	// RunStatusFailed indicates the run encountered an error.
	RunStatusFailed RunStatus = "failed"

	// RunStatusCancelled indicates the run was cancelled.
	RunStatusCancelled RunStatus = "cancelled"
)

// IsSuccess returns true if the run completed without error.
func (s RunStatus) IsSuccess() bool {
	return s == RunStatusChanged || s == RunStatusUnchanged
}
