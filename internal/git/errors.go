package git

import (
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

var (
	// ErrDiverged reports that the active branch and its upstream both have commits the other lacks.
	ErrDiverged = errors.New("local branch and upstream have diverged")
	// ErrUncommittedChanges reports tracked files modified in the working copy.
	ErrUncommittedChanges = errors.New("working copy has uncommitted changes")
	// ErrNoActiveBranch reports a detached HEAD.
	ErrNoActiveBranch = errors.New("HEAD is not on a branch")
	// ErrRefNotFound reports a ref that resolves to no branch, tag or commit.
	ErrRefNotFound = errors.New("reference not found")
	// ErrNoUpstream reports that the upstream branch is missing on the remote.
	ErrNoUpstream = errors.New("upstream branch not found")
	// ErrPathNotEmpty reports a clone target that already holds files but no repository.
	ErrPathNotEmpty = errors.New("destination path exists and is not an empty directory")
)

// CloneError is returned when the working copy could not be created from the remote.
type CloneError struct {
	URL  string
	Path string
	Err  error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone %s into %s: %v", e.URL, e.Path, e.Err)
}
func (e *CloneError) Unwrap() error { return e.Err }

// Category implements errors.Categorized.
func (e *CloneError) Category() ferrors.ErrorCategory { return transportCategory(e.Err) }

// BindingError is returned when an existing path is not a usable working copy.
type BindingError struct {
	Path string
	Err  error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("bind working copy %s: %v", e.Path, e.Err)
}
func (e *BindingError) Unwrap() error { return e.Err }

// Category implements errors.Categorized.
func (e *BindingError) Category() ferrors.ErrorCategory { return ferrors.CategoryGit }

// FetchError wraps failures retrieving remote state.
type FetchError struct {
	Remote string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Remote, e.URL, e.Err)
}
func (e *FetchError) Unwrap() error { return e.Err }

// Category implements errors.Categorized.
func (e *FetchError) Category() ferrors.ErrorCategory { return transportCategory(e.Err) }

// SyncConflictError is returned when local state prevents a fast-forward.
type SyncConflictError struct {
	Branch   string
	Upstream string
	Ahead    int
	Behind   int
	Err      error
}

func (e *SyncConflictError) Error() string {
	if errors.Is(e.Err, ErrDiverged) {
		return fmt.Sprintf("%s and %s have diverged (%d ahead, %d behind)", e.Branch, e.Upstream, e.Ahead, e.Behind)
	}
	if e.Branch == "" {
		return fmt.Sprintf("cannot sync: %v", e.Err)
	}
	return fmt.Sprintf("cannot sync %s with %s: %v", e.Branch, e.Upstream, e.Err)
}
func (e *SyncConflictError) Unwrap() error { return e.Err }

// Category implements errors.Categorized.
func (e *SyncConflictError) Category() ferrors.ErrorCategory { return ferrors.CategoryConflict }

// PushError is returned when local commits could not be delivered to the remote.
// Commit holds the local commit created before the rejection, if any.
type PushError struct {
	Remote string
	Branch string
	Commit CommitRef
	Err    error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push %s to %s: %v", e.Branch, e.Remote, e.Err)
}
func (e *PushError) Unwrap() error { return e.Err }

// Category implements errors.Categorized.
func (e *PushError) Category() ferrors.ErrorCategory {
	if errors.Is(e.Err, ErrNoActiveBranch) || isNonFastForward(e.Err) {
		return ferrors.CategoryConflict
	}
	return transportCategory(e.Err)
}

// CheckoutError is returned when a ref could not be checked out. HEAD and files are untouched.
type CheckoutError struct {
	Ref CommitRef
	Err error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout %s: %v", e.Ref, e.Err)
}
func (e *CheckoutError) Unwrap() error { return e.Err }

// Category implements errors.Categorized.
func (e *CheckoutError) Category() ferrors.ErrorCategory {
	switch {
	case errors.Is(e.Err, ErrRefNotFound):
		return ferrors.CategoryNotFound
	case errors.Is(e.Err, ErrUncommittedChanges):
		return ferrors.CategoryConflict
	}
	return ferrors.CategoryGit
}
