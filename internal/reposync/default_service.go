package reposync

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/eventstore"
	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/git"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/notify"
	"git.home.luguber.info/inful/docsync/internal/observability"
	"git.home.luguber.info/inful/docsync/internal/retry"
	"git.home.luguber.info/inful/docsync/internal/versioning"
)

// Opener binds or clones a working copy.
type Opener func(ctx context.Context, path, url string, opts ...git.Option) (*git.Repository, error)

// DefaultService is the standard implementation of Service.
type DefaultService struct {
	mu     sync.Mutex // guards cfg and source
	runMu  sync.Mutex // serializes runs
	cfg    *config.Config
	source *git.Repository

	opener    Opener
	recorder  metrics.Recorder
	store     eventstore.Store
	publisher notify.Publisher
	resolver  versioning.Resolver
}

// NewService creates a DefaultService with history and notifications disabled.
func NewService(cfg *config.Config) *DefaultService {
	return &DefaultService{
		cfg:       cfg,
		opener:    git.Open,
		recorder:  metrics.NoopRecorder{},
		store:     eventstore.NopStore{},
		publisher: notify.NoopPublisher{},
		resolver:  versioning.NewResolver(cfg.Version),
	}
}

// WithOpener allows injecting a custom repository opener (for testing).
func (s *DefaultService) WithOpener(o Opener) *DefaultService {
	s.opener = o
	return s
}

// WithRecorder sets the metrics recorder passed to every repository handle.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithStore sets the history store.
func (s *DefaultService) WithStore(st eventstore.Store) *DefaultService {
	if st != nil {
		s.store = st
	}
	return s
}

// WithPublisher sets the event publisher.
func (s *DefaultService) WithPublisher(p notify.Publisher) *DefaultService {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithResolver sets the version resolver.
func (s *DefaultService) WithResolver(r versioning.Resolver) *DefaultService {
	s.resolver = r
	return s
}

// Config returns the configuration runs currently use.
func (s *DefaultService) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// UpdateConfig swaps the configuration. The cached source handle is dropped
// so the next run binds with the new settings.
func (s *DefaultService) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.source = nil
	s.resolver.Command = cfg.Version.Command
}

// sourceRepo returns the cached source handle, opening (and cloning) it on
// first use. source.clean only applies to that first open so a long running
// watcher does not re-clone on every tick.
func (s *DefaultService) sourceRepo(ctx context.Context, clean bool) (*git.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source != nil && !clean {
		return s.source, nil
	}
	src := s.cfg.Source
	repo, err := s.opener(ctx, src.Path, src.URL,
		git.WithClean(clean || (s.source == nil && src.Clean)),
		git.WithAuth(src.Auth),
		git.WithBranch(src.Branch),
		git.WithRemoteName(src.Remote),
		git.WithDepth(src.Depth),
		git.WithRetryPolicy(retry.FromConfig(s.cfg.Retry)),
		git.WithRecorder(s.recorder),
	)
	if err != nil {
		return nil, err
	}
	s.source = repo
	return repo, nil
}

func (s *DefaultService) publishRepo(ctx context.Context, cfg *config.Config) (*git.Repository, error) {
	p := cfg.Publish
	if !p.Enabled || p.Path == "" {
		return nil, ErrPublishDisabled
	}
	return s.opener(ctx, p.Path, "",
		git.WithAuth(p.Auth),
		git.WithRemoteName(p.Remote),
		git.WithSignature(p.AuthorName, p.AuthorEmail),
		git.WithRecorder(s.recorder),
	)
}

// Sync executes a complete run: pull, checkout, version, push.
func (s *DefaultService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	cfg := s.Config()
	start := time.Now()
	result := &SyncResult{RunID: eventstore.NewRunID(), StartTime: start}
	ctx = s.runContext(ctx, result.RunID, cfg.Source.Path, req.Trigger)

	finish := func(status RunStatus, err error) (*SyncResult, error) {
		result.Status = status
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		attrs := []slog.Attr{slog.String("status", string(status)), logfields.DurationMS(float64(result.Duration.Milliseconds()))}
		if err != nil {
			observability.ErrorContext(ctx, "Sync run failed", append(attrs, logfields.Error(err))...)
			return result, err
		}
		observability.InfoContext(ctx, "Sync run completed", attrs...)
		return result, nil
	}

	observability.InfoContext(ctx, "Sync run started", logfields.URL(cfg.Source.URL))

	repo, err := s.sourceRepo(ctx, req.Clean)
	if err != nil {
		s.report(ctx, operationReport{op: metrics.OpPull, path: cfg.Source.Path, url: cfg.Source.URL, err: err})
		return finish(statusFor(err), err)
	}

	ref := req.Ref
	if ref == "" {
		ref = cfg.Source.Ref
	}

	changed := false
	if st, err := repo.Status(ctx, false); err == nil && st.Branch == "" && ref != "" {
		// Pinned to a tag or commit: refresh remote refs, then move to ref below.
		if err := repo.Fetch(ctx); err != nil {
			s.report(ctx, operationReport{op: metrics.OpPull, path: repo.Path(), url: repo.URL(), err: err})
			return finish(statusFor(err), err)
		}
	} else {
		pull, err := s.pull(ctx, repo)
		result.Pull = &pull
		if err != nil {
			return finish(statusFor(err), err)
		}
		changed = pull.Changed
	}

	if ref != "" {
		co, err := s.checkout(ctx, repo, ref)
		result.Checkout = co
		if err != nil {
			return finish(statusFor(err), err)
		}
		changed = changed || co.Moved
	}

	if _, statErr := os.Stat(cfg.Version.File); statErr == nil {
		info, err := s.resolver.Resolve(ctx, versioning.RequestFor(cfg.Version, repo.Path()))
		if err != nil {
			return finish(RunStatusFailed, err)
		}
		result.Version = &info
	} else {
		observability.DebugContext(ctx, "No version script in source tree", logfields.Path(cfg.Version.File))
	}

	if req.Push {
		push, err := s.publish(ctx, cfg, req.Message)
		result.Push = push
		if err != nil {
			return finish(statusFor(err), err)
		}
		changed = changed || !push.UpToDate
	}

	if changed {
		return finish(RunStatusChanged, nil)
	}
	return finish(RunStatusUnchanged, nil)
}

func (s *DefaultService) pull(ctx context.Context, repo *git.Repository) (git.PullResult, error) {
	ctx = observability.WithOperation(ctx, metrics.OpPull)
	start := time.Now()
	res, err := repo.Pull(ctx)
	s.report(ctx, operationReport{
		op: metrics.OpPull, path: repo.Path(), url: repo.URL(), branch: res.Branch,
		before: res.Previous, after: res.Current, commits: len(res.Commits),
		changed: res.Changed, start: start, err: err,
	})
	if err == nil && res.Changed {
		for _, c := range res.Commits {
			observability.InfoContext(ctx, c.Summary, logfields.Commit(c.Hash.String()), slog.String("author", c.Author))
		}
	}
	return res, err
}

func (s *DefaultService) checkout(ctx context.Context, repo *git.Repository, ref string) (*CheckoutResult, error) {
	ctx = observability.WithOperation(ctx, metrics.OpCheckout)
	start := time.Now()
	co := &CheckoutResult{Ref: ref}
	co.Previous, _ = repo.Head()
	err := repo.Checkout(ctx, git.CommitRef(ref))
	co.Current, _ = repo.Head()
	co.Moved = err == nil && co.Current != co.Previous
	s.report(ctx, operationReport{
		op: metrics.OpCheckout, path: repo.Path(), url: repo.URL(), branch: ref,
		before: co.Previous, after: co.Current, changed: co.Moved, start: start, err: err,
	})
	return co, err
}

func (s *DefaultService) publish(ctx context.Context, cfg *config.Config, message string) (*git.PushResult, error) {
	ctx = observability.WithOperation(ctx, metrics.OpPush)
	if message == "" {
		message = cfg.Publish.Message
	}
	start := time.Now()
	repo, err := s.publishRepo(ctx, cfg)
	if err != nil {
		s.report(ctx, operationReport{op: metrics.OpPush, path: cfg.Publish.Path, start: start, err: err})
		return nil, err
	}
	before, _ := repo.Head()
	res, err := repo.Push(ctx, message)
	after := res.Commit
	if after == "" {
		after, _ = repo.Head()
	}
	commits := 0
	if res.Committed {
		commits = 1
	}
	s.report(ctx, operationReport{
		op: metrics.OpPush, path: repo.Path(), url: repo.URL(), branch: res.Branch,
		before: before, after: after, commits: commits,
		changed: !res.UpToDate, start: start, err: err,
	})
	return &res, err
}

// Checkout moves the source working copy to ref.
func (s *DefaultService) Checkout(ctx context.Context, ref string) (*CheckoutResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	cfg := s.Config()
	ctx = s.runContext(ctx, eventstore.NewRunID(), cfg.Source.Path, TriggerCLI)
	repo, err := s.sourceRepo(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.checkout(ctx, repo, ref)
}

// Publish commits and pushes the publish working copy.
func (s *DefaultService) Publish(ctx context.Context, message string) (*git.PushResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	cfg := s.Config()
	ctx = s.runContext(ctx, eventstore.NewRunID(), cfg.Publish.Path, TriggerCLI)
	return s.publish(ctx, cfg, message)
}

// Status reports the state of the source working copy.
func (s *DefaultService) Status(ctx context.Context, fetch bool) (git.SyncStatus, error) {
	repo, err := s.sourceRepo(ctx, false)
	if err != nil {
		return git.SyncStatus{}, err
	}
	return repo.Status(ctx, fetch)
}

// Version evaluates the version script of the source tree.
func (s *DefaultService) Version(ctx context.Context) (versioning.Info, error) {
	cfg := s.Config()
	s.mu.Lock()
	resolver := s.resolver
	s.mu.Unlock()
	return resolver.Resolve(ctx, versioning.RequestFor(cfg.Version, cfg.Source.Path))
}

// History returns recorded runs, newest first.
func (s *DefaultService) History(ctx context.Context, path string, limit int) ([]eventstore.Record, error) {
	if path == "" {
		return s.store.Recent(ctx, limit)
	}
	return s.store.ByRepository(ctx, path, limit)
}

// LastPublished returns the last announced head of the source repository.
func (s *DefaultService) LastPublished(ctx context.Context) (*notify.SyncState, error) {
	reader, ok := s.publisher.(notify.StateReader)
	if !ok {
		return nil, nil
	}
	cfg := s.Config()
	return reader.LastState(ctx, cfg.Source.URL, cfg.Source.Path)
}

func (s *DefaultService) runContext(ctx context.Context, runID, path string, trigger Trigger) context.Context {
	if trigger == "" {
		trigger = TriggerCLI
	}
	ctx = observability.WithRunID(ctx, runID)
	ctx = observability.WithRepository(ctx, path)
	return observability.WithTrigger(ctx, string(trigger))
}

// operationReport is the outcome of one repository operation, fanned out to
// history and the event bus.
type operationReport struct {
	op      string
	path    string
	url     string
	branch  string
	before  git.CommitRef
	after   git.CommitRef
	commits int
	changed bool
	start   time.Time
	err     error
}

func (s *DefaultService) report(ctx context.Context, r operationReport) {
	rec := eventstore.Record{
		RunID:      observability.GetContext(ctx).RunID,
		Operation:  r.op,
		Outcome:    outcomeFor(r.changed, r.err),
		Repository: r.path,
		URL:        r.url,
		Branch:     r.branch,
		HeadBefore: r.before.String(),
		HeadAfter:  r.after.String(),
		Commits:    r.commits,
	}
	if !r.start.IsZero() {
		rec.Duration = time.Since(r.start)
	}
	if r.err != nil {
		rec.Error = r.err.Error()
	}
	if err := s.store.Append(ctx, rec); err != nil {
		observability.WarnContext(ctx, "Failed to record sync history", logfields.Error(err))
	}

	evType, ok := eventFor(r.op, r.changed, r.err)
	if !ok {
		return
	}
	ev := notify.NewEvent(evType, r.url, r.path)
	ev.Branch = r.branch
	ev.From = r.before.String()
	ev.To = r.after.String()
	ev.Commits = r.commits
	if r.err != nil {
		ev.Error = r.err.Error()
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		observability.WarnContext(ctx, "Failed to publish sync event", logfields.Error(err))
	}
}

func outcomeFor(changed bool, err error) string {
	switch {
	case err != nil && ferrors.GetCategory(err) == ferrors.CategoryConflict:
		return eventstore.OutcomeConflict
	case err != nil:
		return eventstore.OutcomeFailed
	case changed:
		return eventstore.OutcomeChanged
	default:
		return eventstore.OutcomeUnchanged
	}
}

func eventFor(op string, changed bool, err error) (notify.EventType, bool) {
	if err != nil {
		return notify.EventSyncFailed, true
	}
	if !changed {
		return "", false
	}
	switch op {
	case metrics.OpPull:
		return notify.EventPulled, true
	case metrics.OpPush:
		return notify.EventPushed, true
	case metrics.OpCheckout:
		return notify.EventCheckedOut, true
	}
	return "", false
}

func statusFor(err error) RunStatus {
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return RunStatusCancelled
	case ferrors.GetCategory(err) == ferrors.CategoryConflict:
		return RunStatusConflict
	default:
		return RunStatusFailed
	}
}
