package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
)

// target is a resolved checkout destination.
type target struct {
	branch   plumbing.ReferenceName // set when HEAD should follow a local branch
	hash     plumbing.Hash
	create   bool   // create branch at hash
	tracking string // remote-tracking ref the new branch follows (remote/branch)
}

// Checkout switches the working copy to ref: a local branch, a remote-tracking
// branch (a local branch tracking it is created), a tag, or any revision
// expression. Tags and hashes leave HEAD detached. On error HEAD and files are
// unchanged.
func (r *Repository) Checkout(ctx context.Context, ref CommitRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()
	changed, err := r.checkout(ctx, ref)
	r.observe(metrics.OpCheckout, start, changed, err)
	return err
}

func (r *Repository) checkout(ctx context.Context, ref CommitRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &CheckoutError{Ref: ref, Err: err}
	}
	name := strings.TrimSpace(ref.String())
	if name == "" {
		return false, &CheckoutError{Ref: ref, Err: ErrRefNotFound}
	}
	t, err := r.resolve(name)
	if err != nil {
		return false, &CheckoutError{Ref: ref, Err: err}
	}

	head, branch, err := r.headState()
	if err != nil {
		return false, &CheckoutError{Ref: ref, Err: err}
	}
	if !t.create && head == t.hash && t.branch.Short() == branch {
		slog.Debug("Already at ref", logfields.Ref(name), logfields.Commit(head.String()))
		return false, nil
	}

	if err := r.checkWorkingCopy(t.hash); err != nil {
		return false, &CheckoutError{Ref: ref, Err: err}
	}

	if err := r.switchTree(head, t.hash); err != nil {
		return false, &CheckoutError{Ref: ref, Err: err}
	}
	if err := r.moveHead(t); err != nil {
		return false, &CheckoutError{Ref: ref, Err: err}
	}
	if t.create && t.tracking != "" {
		r.track(t.branch.Short(), t.tracking)
	}
	slog.Info("Checked out", logfields.Path(r.path), logfields.Ref(name), logfields.Commit(t.hash.String()),
		logfields.Branch(t.branch.Short()))
	return true, nil
}

// moveHead points HEAD at t, creating the branch first when asked to.
func (r *Repository) moveHead(t target) error {
	if t.branch == "" {
		return r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, t.hash))
	}
	if t.create {
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(t.branch, t.hash)); err != nil {
			return fmt.Errorf("create branch %s: %w", t.branch.Short(), err)
		}
	}
	return r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, t.branch))
}

// resolve finds ref in order: local branch, remote-tracking branch, tag, revision.
func (r *Repository) resolve(name string) (target, error) {
	if b, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true); err == nil {
		return target{branch: b.Name(), hash: b.Hash()}, nil
	}

	remoteName, branchName := r.opts.remote, name
	if i := strings.IndexByte(name, '/'); i > 0 {
		if _, err := r.repo.Remote(name[:i]); err == nil {
			remoteName, branchName = name[:i], name[i+1:]
		}
	}
	if rb, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branchName), true); err == nil {
		local := plumbing.NewBranchReferenceName(branchName)
		if existing, lerr := r.repo.Reference(local, true); lerr == nil {
			// remote/x given while local x exists: follow the local branch only when it matches.
			if existing.Hash() != rb.Hash() {
				return target{hash: rb.Hash()}, nil
			}
			return target{branch: local, hash: existing.Hash()}, nil
		}
		return target{branch: local, hash: rb.Hash(), create: true, tracking: remoteName + "/" + branchName}, nil
	}

	if tag, err := r.repo.Reference(plumbing.NewTagReferenceName(name), true); err == nil {
		h, perr := r.peel(tag.Hash())
		if perr != nil {
			return target{}, perr
		}
		return target{hash: h}, nil
	}

	h, err := r.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return target{}, fmt.Errorf("%w: %s", ErrRefNotFound, name)
	}
	peeled, err := r.peel(*h)
	if err != nil {
		return target{}, err
	}
	return target{hash: peeled}, nil
}

// peel follows annotated tags down to the commit they point at.
func (r *Repository) peel(h plumbing.Hash) (plumbing.Hash, error) {
	for range 10 {
		tag, err := r.repo.TagObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			break
		}
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if tag.TargetType != plumbing.CommitObject && tag.TargetType != plumbing.TagObject {
			return plumbing.ZeroHash, fmt.Errorf("%w: tag %s does not point at a commit", ErrRefNotFound, tag.Name)
		}
		h = tag.Target
	}
	if _, err := r.repo.CommitObject(h); err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrRefNotFound, h)
		}
		return plumbing.ZeroHash, err
	}
	return h, nil
}

// track writes branch.<name>.remote/merge so later pulls follow the remote branch.
func (r *Repository) track(branch, tracking string) {
	remote, merge, _ := strings.Cut(tracking, "/")
	cfg, err := r.repo.Config()
	if err != nil {
		slog.Warn("Could not read repository config", logfields.Error(err))
		return
	}
	cfg.Branches[branch] = &config.Branch{Name: branch, Remote: remote, Merge: plumbing.NewBranchReferenceName(merge)}
	if err := r.repo.SetConfig(cfg); err != nil {
		slog.Warn("Could not record branch tracking", logfields.Branch(branch), logfields.Error(err))
	}
}
