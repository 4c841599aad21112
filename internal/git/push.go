package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
)

// PushResult reports what a push did.
type PushResult struct {
	Committed bool      // a new commit was created from working copy changes
	Commit    CommitRef // HEAD after committing
	Branch    string
	UpToDate  bool // remote already had HEAD
}

// Push stages every change in the working copy (additions, modifications,
// deletions), commits them with message and pushes the active branch to the
// bound remote. With nothing to commit the branch is still pushed. Rejections
// are returned as *PushError and never retried.
func (r *Repository) Push(ctx context.Context, message string) (PushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()
	res, err := r.push(ctx, message)
	r.observe(metrics.OpPush, start, res.Committed || (err == nil && !res.UpToDate), err)
	return res, err
}

func (r *Repository) push(ctx context.Context, message string) (PushResult, error) {
	head, branch, err := r.headState()
	if err != nil {
		return PushResult{}, fmt.Errorf("read HEAD: %w", err)
	}
	if branch == "" {
		return PushResult{}, &PushError{Remote: r.opts.remote, Err: ErrNoActiveBranch}
	}
	res := PushResult{Branch: branch, Commit: ref(head)}

	if err := r.wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return res, fmt.Errorf("stage changes: %w", err)
	}
	sig := &object.Signature{Name: r.opts.authorName, Email: r.opts.authorEmail, When: time.Now()}
	hash, err := r.wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	switch {
	case errors.Is(err, git.ErrEmptyCommit):
		slog.Info("Nothing to commit", logfields.Path(r.path), logfields.Branch(branch))
	case err != nil:
		return res, fmt.Errorf("commit: %w", err)
	default:
		res.Committed = true
		res.Commit = ref(hash)
		slog.Info("Committed changes", logfields.Path(r.path), logfields.Commit(hash.String()), slog.String("message", summary(message)))
	}
	if res.Commit == "" {
		// Unborn branch with an empty tree: there is nothing to deliver.
		res.UpToDate = true
		return res, nil
	}

	remote, remoteBranch := r.pushTarget(branch)
	url := r.remoteURL(remote)
	spec := config.RefSpec(fmt.Sprintf("%s:%s", plumbing.NewBranchReferenceName(branch), remoteBranch))
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       r.auth,
		Progress:   r.opts.progress,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		res.UpToDate = true
		slog.Info("Remote already up to date", logfields.Remote(remote), logfields.Branch(branch))
		return res, nil
	}
	if err != nil {
		return res, &PushError{Remote: remote, Branch: branch, Commit: res.Commit, Err: classifyTransportError("push", url, err)}
	}
	slog.Info("Pushed", logfields.Remote(remote), logfields.Branch(branch), logfields.Commit(res.Commit.String()))
	return res, nil
}

// pushTarget returns the remote and remote branch ref the active branch pushes to.
func (r *Repository) pushTarget(branch string) (string, plumbing.ReferenceName) {
	if cfg, err := r.repo.Config(); err == nil {
		if b, ok := cfg.Branches[branch]; ok && b.Remote != "" && b.Remote != "." && b.Merge != "" {
			return b.Remote, b.Merge
		}
	}
	return r.opts.remote, plumbing.NewBranchReferenceName(branch)
}
