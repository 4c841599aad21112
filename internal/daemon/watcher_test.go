package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/reposync"
)

// fakeSyncer counts calls and returns a configurable outcome.
type fakeSyncer struct {
	calls atomic.Int32

	mu      sync.Mutex
	status  reposync.RunStatus
	err     error
	lastReq reposync.SyncRequest
}

func (f *fakeSyncer) Sync(_ context.Context, req reposync.SyncRequest) (*reposync.SyncResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	status := f.status
	if status == "" {
		status = reposync.RunStatusUnchanged
	}
	return &reposync.SyncResult{Status: status}, f.err
}

func (f *fakeSyncer) fail(status reposync.RunStatus, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.err = status, err
}

func (f *fakeSyncer) request() reposync.SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func startWatcher(t *testing.T, s Syncer, interval time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(s, interval, reposync.SyncRequest{Clean: true})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })
	return w
}

func TestNewWatcherRejectsNonPositiveInterval(t *testing.T) {
	_, err := NewWatcher(&fakeSyncer{}, 0, reposync.SyncRequest{})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))
}

func TestWatcherRunsImmediatelyWithScheduleTrigger(t *testing.T) {
	s := &fakeSyncer{}
	w := startWatcher(t, s, time.Hour)

	require.Eventually(t, func() bool { return w.Runs() == 1 }, 5*time.Second, 10*time.Millisecond)
	req := s.request()
	assert.Equal(t, reposync.TriggerSchedule, req.Trigger)
	assert.True(t, req.Clean)
	assert.True(t, w.Health().IsHealthy())

	next, err := w.NextRun()
	require.NoError(t, err)
	assert.True(t, next.After(time.Now().Add(30*time.Minute)))
}

func TestWatcherRunNow(t *testing.T) {
	s := &fakeSyncer{}
	w := startWatcher(t, s, time.Hour)
	require.Eventually(t, func() bool { return w.Runs() == 1 }, 5*time.Second, 10*time.Millisecond)

	var seen atomic.Int32
	w.OnRun(func(*reposync.SyncResult, error) { seen.Add(1) })
	require.NoError(t, w.RunNow())
	require.Eventually(t, func() bool { return w.Runs() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), seen.Load())
}

func TestWatcherRunNowBeforeStart(t *testing.T) {
	w, err := NewWatcher(&fakeSyncer{}, time.Minute, reposync.SyncRequest{})
	require.NoError(t, err)
	require.Error(t, w.RunNow())
	assert.False(t, w.Health().IsHealthy())
}

func TestWatcherReschedule(t *testing.T) {
	w := startWatcher(t, &fakeSyncer{}, time.Hour)
	require.Eventually(t, func() bool { return w.Runs() >= 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Reschedule(2*time.Hour))
	assert.Equal(t, 2*time.Hour, w.Interval())

	next, err := w.NextRun()
	require.NoError(t, err)
	assert.True(t, next.After(time.Now().Add(90*time.Minute)), "next run %s", next)

	require.Error(t, w.Reschedule(-time.Second))
	assert.Equal(t, 2*time.Hour, w.Interval())
}

func TestWatcherHealthIgnoresConflicts(t *testing.T) {
	s := &fakeSyncer{}
	s.fail(reposync.RunStatusConflict, errors.NewError(errors.CategoryConflict, "diverged").Build())
	w := startWatcher(t, s, time.Hour)
	require.Eventually(t, func() bool { return w.Runs() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, w.Health().IsHealthy())

	s.fail(reposync.RunStatusFailed, errors.NetworkError("remote unreachable").Build())
	require.NoError(t, w.RunNow())
	require.Eventually(t, func() bool { return w.Runs() == 2 }, 5*time.Second, 10*time.Millisecond)
	health := w.Health()
	assert.False(t, health.IsHealthy())
	assert.Contains(t, health.Message, "remote unreachable")
}
