package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	appcfg "git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/retry"
)

// DefaultRemote is the remote name bound when none is configured.
const DefaultRemote = "origin"

// CommitRef names a revision: a branch, a tag, a remote-tracking branch or any
// expression go-git can resolve (full or abbreviated hash, HEAD~1).
type CommitRef string

func (c CommitRef) String() string { return string(c) }

// Commit summarizes a commit for reporting.
type Commit struct {
	Hash    CommitRef
	Summary string
	Author  string
	When    time.Time
}

// Repository is a handle bound to one local working copy and its remote.
// Operations on a handle are serialized.
type Repository struct {
	mu   sync.Mutex
	path string
	url  string

	repo *git.Repository
	wt   *git.Worktree
	auth transport.AuthMethod
	opts options
}

type options struct {
	clean       bool
	auth        *appcfg.AuthConfig
	branch      string
	remote      string
	depth       int
	progress    io.Writer
	policy      retry.Policy
	recorder    metrics.Recorder
	authorName  string
	authorEmail string
}

// Option configures Open.
type Option func(*options)

// WithClean removes an existing working copy before cloning.
func WithClean(clean bool) Option { return func(o *options) { o.clean = clean } }

// WithAuth sets credentials for clone, fetch and push.
func WithAuth(a *appcfg.AuthConfig) Option { return func(o *options) { o.auth = a } }

// WithBranch selects the branch checked out after a fresh clone.
func WithBranch(b string) Option { return func(o *options) { o.branch = b } }

// WithRemoteName overrides the bound remote (default origin).
func WithRemoteName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.remote = name
		}
	}
}

// WithDepth limits clone and fetch history; 0 means full history.
func WithDepth(d int) Option { return func(o *options) { o.depth = d } }

// WithProgress streams remote sideband output (clone/fetch/push progress).
func WithProgress(w io.Writer) Option { return func(o *options) { o.progress = w } }

// WithRetryPolicy sets the policy applied to clone and fetch.
func WithRetryPolicy(p retry.Policy) Option { return func(o *options) { o.policy = p } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithSignature sets the author and committer identity used by Push.
func WithSignature(name, email string) Option {
	return func(o *options) {
		if name != "" {
			o.authorName = name
		}
		if email != "" {
			o.authorEmail = email
		}
	}
}

func defaultOptions() options {
	return options{
		remote:      DefaultRemote,
		policy:      retry.Disabled(),
		recorder:    metrics.NoopRecorder{},
		authorName:  "docsync",
		authorEmail: "docsync@localhost",
	}
}

// Open binds a handle to the working copy at localPath. When remoteURL is
// non-empty and no working copy exists (or clean is set) the remote is
// cloned first. An empty remoteURL binds an existing working copy only.
func Open(ctx context.Context, localPath, remoteURL string, opts ...Option) (*Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	path, err := filepath.Abs(localPath)
	if err != nil {
		return nil, &BindingError{Path: localPath, Err: err}
	}
	r := &Repository{path: path, url: remoteURL, opts: o}

	r.auth, err = getAuth(o.auth)
	if err != nil {
		if remoteURL != "" {
			return nil, &CloneError{URL: remoteURL, Path: path, Err: classifyTransportError("clone", remoteURL, err)}
		}
		return nil, &BindingError{Path: path, Err: err}
	}

	if remoteURL != "" {
		if err := r.cloneIfNeeded(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.bind(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) cloneIfNeeded(ctx context.Context) error {
	if r.opts.clean {
		if err := removeWorkingCopy(r.path); err != nil {
			return &CloneError{URL: r.url, Path: r.path, Err: err}
		}
	}
	exists, err := hasGitDir(r.path)
	if err != nil {
		return &CloneError{URL: r.url, Path: r.path, Err: err}
	}
	if exists {
		return nil
	}
	if err := ensureCloneTarget(r.path); err != nil {
		return &CloneError{URL: r.url, Path: r.path, Err: err}
	}

	start := time.Now()
	slog.Info("Cloning repository", logfields.URL(r.url), logfields.Path(r.path), logfields.Branch(r.opts.branch))
	cloneOpts := &git.CloneOptions{
		URL:        r.url,
		RemoteName: r.opts.remote,
		Auth:       r.auth,
		Depth:      r.opts.depth,
		Progress:   r.opts.progress,
		Tags:       git.AllTags,
	}
	if r.opts.branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(r.opts.branch)
	}
	err = r.withRetry(ctx, metrics.OpClone, func() error {
		_, cerr := git.PlainCloneContext(ctx, r.path, false, cloneOpts)
		return classifyTransportError("clone", r.url, cerr)
	})
	if err != nil {
		r.opts.recorder.ObserveSyncDuration(metrics.OpClone, time.Since(start), metrics.ResultFailed)
		r.opts.recorder.IncSyncResult(metrics.OpClone, metrics.ResultFailed)
		return &CloneError{URL: r.url, Path: r.path, Err: err}
	}
	r.opts.recorder.ObserveSyncDuration(metrics.OpClone, time.Since(start), metrics.ResultChanged)
	r.opts.recorder.IncSyncResult(metrics.OpClone, metrics.ResultChanged)
	slog.Info("Repository cloned", logfields.Path(r.path), logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return nil
}

func (r *Repository) bind() error {
	repo, err := git.PlainOpen(r.path)
	if err != nil {
		return &BindingError{Path: r.path, Err: err}
	}
	wt, err := repo.Worktree()
	if err != nil {
		return &BindingError{Path: r.path, Err: err}
	}
	remote, err := repo.Remote(r.opts.remote)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return &BindingError{Path: r.path, Err: fmt.Errorf("remote %q: %w", r.opts.remote, err)}
		}
		return &BindingError{Path: r.path, Err: err}
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		if r.url == "" {
			r.url = urls[0]
		} else if urls[0] != r.url {
			slog.Warn("Working copy remote differs from configured URL",
				logfields.Path(r.path), logfields.Remote(r.opts.remote), slog.String("configured", r.url), slog.String("actual", urls[0]))
		}
	}
	r.repo, r.wt = repo, wt
	slog.Debug("Working copy bound", logfields.Path(r.path), logfields.Remote(r.opts.remote), logfields.URL(r.url))
	return nil
}

// Path returns the absolute working copy path.
func (r *Repository) Path() string { return r.path }

// URL returns the remote URL, taken from the working copy when Open was given none.
func (r *Repository) URL() string { return r.url }

// Remote returns the bound remote name.
func (r *Repository) Remote() string { return r.opts.remote }

// Head returns the commit HEAD points at.
func (r *Repository) Head() (CommitRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	return CommitRef(ref.Hash().String()), nil
}

// headState returns the HEAD hash (zero for an unborn branch) and the active branch name ("" when detached).
func (r *Repository) headState() (plumbing.Hash, string, error) {
	ref, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return plumbing.ZeroHash, "", err
	}
	if ref.Type() == plumbing.HashReference {
		return ref.Hash(), "", nil
	}
	branch := ref.Target().Short()
	resolved, err := r.repo.Reference(ref.Target(), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, branch, nil
	}
	if err != nil {
		return plumbing.ZeroHash, branch, err
	}
	return resolved.Hash(), branch, nil
}

// upstream returns the remote and remote-tracking ref the branch follows.
// Branch tracking config wins; otherwise <remote>/<branch>.
func (r *Repository) upstream(branch string) (string, plumbing.ReferenceName) {
	if cfg, err := r.repo.Config(); err == nil {
		if b, ok := cfg.Branches[branch]; ok && b.Remote != "" && b.Remote != "." && b.Merge != "" {
			return b.Remote, plumbing.NewRemoteReferenceName(b.Remote, b.Merge.Short())
		}
	}
	return r.opts.remote, plumbing.NewRemoteReferenceName(r.opts.remote, branch)
}
