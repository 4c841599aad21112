package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
)

// PullResult reports what a pull did.
type PullResult struct {
	Changed  bool
	Commits  []Commit // active..upstream, newest first
	Branch   string
	Upstream string
	Previous CommitRef
	Current  CommitRef
}

// Pull fetches the upstream of the active branch and fast-forwards onto it.
// A branch that is only ahead, or level, is left alone. Divergence, blocking
// local changes and a detached HEAD are reported as *SyncConflictError.
func (r *Repository) Pull(ctx context.Context) (PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()
	res, err := r.pull(ctx)
	r.observe(metrics.OpPull, start, res.Changed, err)
	if err == nil && res.Changed {
		r.opts.recorder.AddCommitsApplied(len(res.Commits))
	}
	return res, err
}

// Fetch updates the remote-tracking refs of the bound remote without touching
// HEAD or the working copy.
func (r *Repository) Fetch(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetch(ctx, r.opts.remote)
}

func (r *Repository) pull(ctx context.Context) (PullResult, error) {
	head, branch, err := r.headState()
	if err != nil {
		return PullResult{}, fmt.Errorf("read HEAD: %w", err)
	}
	if branch == "" {
		return PullResult{Previous: ref(head), Current: ref(head)}, &SyncConflictError{Err: ErrNoActiveBranch}
	}
	remote, upRef := r.upstream(branch)
	res := PullResult{Branch: branch, Upstream: upRef.Short(), Previous: ref(head), Current: ref(head)}

	if err := r.fetch(ctx, remote); err != nil {
		return res, err
	}
	up, err := r.repo.Reference(upRef, true)
	if err != nil {
		return res, &FetchError{Remote: remote, URL: r.remoteURL(remote), Err: fmt.Errorf("%w: %s", ErrNoUpstream, upRef.Short())}
	}

	ahead, behind, err := r.divergence(ctx, head, up.Hash())
	if err != nil {
		return res, fmt.Errorf("compare %s with %s: %w", branch, upRef.Short(), err)
	}
	r.opts.recorder.SetDivergence(ahead, len(behind))

	if len(behind) == 0 {
		slog.Info("Already up to date", logfields.Path(r.path), logfields.Branch(branch), logfields.Ahead(ahead))
		return res, nil
	}
	if ahead > 0 {
		return res, &SyncConflictError{Branch: branch, Upstream: upRef.Short(), Ahead: ahead, Behind: len(behind), Err: ErrDiverged}
	}
	if err := r.checkWorkingCopy(up.Hash()); err != nil {
		return res, &SyncConflictError{Branch: branch, Upstream: upRef.Short(), Behind: len(behind), Err: err}
	}

	res.Commits = summarize(behind)
	for _, c := range res.Commits {
		slog.Info("Incoming commit", logfields.Commit(c.Hash.String()), slog.String("summary", c.Summary))
	}
	if err := r.fastForward(branch, head, up.Hash()); err != nil {
		return res, err
	}
	res.Changed = true
	res.Current = ref(up.Hash())
	slog.Info("Fast-forwarded", logfields.Path(r.path), logfields.Branch(branch),
		logfields.From(res.Previous.String()), logfields.To(res.Current.String()), logfields.Count(len(res.Commits)))
	return res, nil
}

// fastForward updates the changed files and index, then moves branch to target.
func (r *Repository) fastForward(branch string, head, target plumbing.Hash) error {
	if err := r.switchTree(head, target); err != nil {
		return fmt.Errorf("fast-forward %s: %w", branch, err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), target)); err != nil {
		return fmt.Errorf("fast-forward %s: %w", branch, err)
	}
	return nil
}

func (r *Repository) fetch(ctx context.Context, remote string) error {
	url := r.remoteURL(remote)
	start := time.Now()
	err := r.withRetry(ctx, metrics.OpFetch, func() error {
		ferr := r.repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: remote,
			Auth:       r.auth,
			Depth:      r.opts.depth,
			Progress:   r.opts.progress,
		})
		if errors.Is(ferr, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return classifyTransportError("fetch", url, ferr)
	})
	if err != nil {
		r.observe(metrics.OpFetch, start, false, err)
		return &FetchError{Remote: remote, URL: url, Err: err}
	}
	r.opts.recorder.ObserveSyncDuration(metrics.OpFetch, time.Since(start), metrics.ResultUnchanged)
	slog.Debug("Fetched", logfields.Remote(remote), logfields.URL(url))
	return nil
}

// checkWorkingCopy refuses to move onto target when tracked files are
// modified or an untracked file would be overwritten.
func (r *Repository) checkWorkingCopy(target plumbing.Hash) error {
	status, err := r.wt.Status()
	if err != nil {
		return fmt.Errorf("working copy status: %w", err)
	}
	modified, untracked := splitStatus(status)
	if len(modified) > 0 {
		return fmt.Errorf("%w: %s", ErrUncommittedChanges, listPaths(modified))
	}
	if len(untracked) == 0 || target.IsZero() {
		return nil
	}
	commit, err := r.repo.CommitObject(target)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return err
	}
	var clobbered []string
	for _, p := range untracked {
		if _, ferr := tree.FindEntry(p); ferr == nil {
			clobbered = append(clobbered, p)
		}
	}
	if len(clobbered) > 0 {
		return fmt.Errorf("%w: untracked files would be overwritten: %s", ErrUncommittedChanges, listPaths(clobbered))
	}
	return nil
}

// splitStatus separates tracked changes from untracked files, both sorted.
func splitStatus(status git.Status) (modified, untracked []string) {
	for p, s := range status {
		switch {
		case s.Staging == git.Untracked && s.Worktree == git.Untracked:
			untracked = append(untracked, p)
		case s.Staging == git.Unmodified && s.Worktree == git.Unmodified:
		default:
			modified = append(modified, p)
		}
	}
	sort.Strings(modified)
	sort.Strings(untracked)
	return modified, untracked
}

func listPaths(paths []string) string {
	const limit = 5
	if len(paths) <= limit {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(paths[:limit], ", "), len(paths)-limit)
}

func (r *Repository) remoteURL(name string) string {
	remote, err := r.repo.Remote(name)
	if err != nil || len(remote.Config().URLs) == 0 {
		return r.url
	}
	return remote.Config().URLs[0]
}

// observe records duration and outcome for op.
func (r *Repository) observe(op string, start time.Time, changed bool, err error) {
	result := metrics.ResultUnchanged
	switch {
	case err != nil && errors.As(err, new(*SyncConflictError)):
		result = metrics.ResultConflict
	case err != nil:
		result = metrics.ResultFailed
	case changed:
		result = metrics.ResultChanged
	}
	r.opts.recorder.ObserveSyncDuration(op, time.Since(start), result)
	r.opts.recorder.IncSyncResult(op, result)
}

func ref(h plumbing.Hash) CommitRef {
	if h.IsZero() {
		return ""
	}
	return CommitRef(h.String())
}
