package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// SyncStatus describes the working copy relative to its upstream.
type SyncStatus struct {
	Branch       string // empty when HEAD is detached
	Upstream     string
	Head         CommitRef
	UpstreamHead CommitRef // empty when the upstream ref is unknown
	Ahead        int
	Behind       int
	Dirty        bool // tracked files modified
}

// Diverged reports whether both sides have commits the other lacks.
func (s SyncStatus) Diverged() bool { return s.Ahead > 0 && s.Behind > 0 }

// Status reports branch, upstream and divergence. With fetch set the remote
// is contacted first; otherwise the last fetched state is used.
func (r *Repository) Status(ctx context.Context, fetch bool) (SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, branch, err := r.headState()
	if err != nil {
		return SyncStatus{}, fmt.Errorf("read HEAD: %w", err)
	}
	st := SyncStatus{Branch: branch, Head: ref(head)}

	wtStatus, err := r.wt.Status()
	if err != nil {
		return st, fmt.Errorf("working copy status: %w", err)
	}
	modified, _ := splitStatus(wtStatus)
	st.Dirty = len(modified) > 0

	if branch == "" {
		return st, nil
	}
	remote, upRef := r.upstream(branch)
	st.Upstream = upRef.Short()
	if fetch {
		if err := r.fetch(ctx, remote); err != nil {
			return st, err
		}
	}
	up, err := r.repo.Reference(upRef, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.UpstreamHead = ref(up.Hash())
	ahead, behind, err := r.divergence(ctx, head, up.Hash())
	if err != nil {
		return st, err
	}
	st.Ahead, st.Behind = ahead, len(behind)
	r.opts.recorder.SetDivergence(st.Ahead, st.Behind)
	return st, nil
}
