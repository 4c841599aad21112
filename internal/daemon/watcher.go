package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/reposync"
	"git.home.luguber.info/inful/docsync/internal/services"
)

const syncJobName = "sync"

// Syncer runs one sync. *reposync.DefaultService satisfies it.
type Syncer interface {
	Sync(ctx context.Context, req reposync.SyncRequest) (*reposync.SyncResult, error)
}

// Watcher pulls the source repository on a fixed interval. Runs never
// overlap: a tick that fires while the previous run is still going is
// skipped and the schedule continues from the next interval.
type Watcher struct {
	mu        sync.Mutex
	scheduler gocron.Scheduler
	job       gocron.Job
	syncer    Syncer
	interval  time.Duration
	request   reposync.SyncRequest

	ctx    context.Context
	cancel context.CancelFunc

	runs       int
	lastRun    time.Time
	lastStatus reposync.RunStatus
	lastErr    error
	onRun      func(*reposync.SyncResult, error)
}

// NewWatcher creates a watcher that calls syncer with req every interval.
func NewWatcher(syncer Syncer, interval time.Duration, req reposync.SyncRequest) (*Watcher, error) {
	if interval <= 0 {
		return nil, errors.ValidationError(fmt.Sprintf("watch interval must be positive, got %s", interval)).Build()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.DaemonError("failed to create scheduler").WithCause(err).Build()
	}
	req.Trigger = reposync.TriggerSchedule
	return &Watcher{scheduler: s, syncer: syncer, interval: interval, request: req}, nil
}

// OnRun registers a callback invoked after every scheduled run.
func (w *Watcher) OnRun(fn func(*reposync.SyncResult, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRun = fn
}

func (w *Watcher) Name() string { return "watcher" }

func (w *Watcher) Dependencies() []string { return nil }

// Start schedules the sync job, running it once right away.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Ticks outlive the start context.
	w.ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))

	job, err := w.scheduler.NewJob(w.definition(), gocron.NewTask(w.tick), w.jobOptions()...)
	if err != nil {
		w.cancel()
		return errors.DaemonError("failed to schedule sync job").WithCause(err).Build()
	}
	w.job = job
	w.scheduler.Start()
	slog.Info("Watching source repository", logfields.Interval(w.interval.String()))
	return nil
}

// Stop shuts the scheduler down and cancels a run in progress.
func (w *Watcher) Stop(context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	slog.Info("Stopping watcher")
	if err := w.scheduler.Shutdown(); err != nil {
		return errors.DaemonError("failed to stop scheduler").WithCause(err).Build()
	}
	return nil
}

// Reschedule changes the interval of the running job. The next run happens
// one new interval from now.
func (w *Watcher) Reschedule(interval time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if interval <= 0 {
		return errors.ValidationError(fmt.Sprintf("watch interval must be positive, got %s", interval)).Build()
	}
	if interval == w.interval {
		return nil
	}
	prev := w.interval
	w.interval = interval
	if w.job == nil {
		return nil
	}
	job, err := w.scheduler.Update(w.job.ID(), w.definition(), gocron.NewTask(w.tick),
		gocron.WithName(syncJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithContext(w.ctx),
	)
	if err != nil {
		w.interval = prev
		return errors.DaemonError("failed to reschedule sync job").WithCause(err).Build()
	}
	w.job = job
	slog.Info("Watch interval changed", logfields.Interval(interval.String()), slog.String("previous", prev.String()))
	return nil
}

// RunNow triggers an extra run without changing the schedule.
func (w *Watcher) RunNow() error {
	w.mu.Lock()
	job := w.job
	w.mu.Unlock()
	if job == nil {
		return errors.DaemonError("watcher not started").Build()
	}
	return job.RunNow()
}

// Interval returns the current schedule interval.
func (w *Watcher) Interval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// Runs returns the number of completed runs.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// NextRun returns when the job runs next.
func (w *Watcher) NextRun() (time.Time, error) {
	w.mu.Lock()
	job := w.job
	w.mu.Unlock()
	if job == nil {
		return time.Time{}, errors.DaemonError("watcher not started").Build()
	}
	return job.NextRun()
}

// Health is unhealthy while the last run failed for a reason other than a
// conflict; conflicts need a person, not a restart.
func (w *Watcher) Health() services.HealthStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.job == nil:
		return services.Unhealthy("not started")
	case w.lastErr != nil && w.lastStatus != reposync.RunStatusConflict:
		return services.Unhealthy(w.lastErr.Error())
	default:
		return services.Healthy()
	}
}

func (w *Watcher) definition() gocron.JobDefinition {
	return gocron.DurationJob(w.interval)
}

func (w *Watcher) jobOptions() []gocron.JobOption {
	return []gocron.JobOption{
		gocron.WithName(syncJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithContext(w.ctx),
	}
}

// tick is the scheduled task; gocron passes the job context.
func (w *Watcher) tick(ctx context.Context) {
	w.mu.Lock()
	req := w.request
	w.mu.Unlock()

	start := time.Now()
	res, err := w.syncer.Sync(ctx, req)

	w.mu.Lock()
	w.runs++
	w.lastRun = start
	w.lastErr = err
	if res != nil {
		w.lastStatus = res.Status
	}
	onRun := w.onRun
	w.mu.Unlock()

	if err != nil {
		slog.Warn("Scheduled sync failed", logfields.Error(err), logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	}
	if onRun != nil {
		onRun(res, err)
	}
}
