package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/reposync"
	"git.home.luguber.info/inful/docsync/internal/services"
)

// fakeService is a Syncer with a swappable configuration.
type fakeService struct {
	fakeSyncer

	cfgMu sync.Mutex
	cfg   *config.Config
}

func (f *fakeService) Config() *config.Config {
	f.cfgMu.Lock()
	defer f.cfgMu.Unlock()
	return f.cfg
}

func (f *fakeService) UpdateConfig(cfg *config.Config) {
	f.cfgMu.Lock()
	defer f.cfgMu.Unlock()
	f.cfg = cfg
}

func daemonConfig(interval string) *config.Config {
	return &config.Config{
		Source: config.SourceConfig{Path: "/srv/source"},
		Watch:  config.WatchConfig{Interval: interval},
	}
}

func runDaemon(t *testing.T, d *Daemon) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("daemon did not stop")
			return nil
		}
	}
}

func TestDaemonRunsUntilCancelled(t *testing.T) {
	svc := &fakeService{cfg: daemonConfig("1h")}
	d, err := New(svc, Options{Request: reposync.SyncRequest{Push: true}})
	require.NoError(t, err)
	assert.Empty(t, d.MetricsAddr())

	stop := runDaemon(t, d)
	require.Eventually(t, func() bool { return d.Watcher().Runs() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, svc.request().Push)

	infos := d.ServiceInfo()
	require.Len(t, infos, 1)
	assert.Equal(t, "watcher", infos[0].Name)
	assert.Equal(t, services.StatusRunning, infos[0].Status)

	require.NoError(t, stop())
	info := d.ServiceInfo()[0]
	assert.Equal(t, services.StatusStopped, info.Status)
}

func TestDaemonRejectsInvalidInterval(t *testing.T) {
	_, err := New(&fakeService{cfg: daemonConfig("")}, Options{})
	require.Error(t, err)
}

func TestDaemonApplyConfigReschedules(t *testing.T) {
	svc := &fakeService{cfg: daemonConfig("1h")}
	d, err := New(svc, Options{})
	require.NoError(t, err)
	stop := runDaemon(t, d)
	defer func() { require.NoError(t, stop()) }()
	require.Eventually(t, func() bool { return d.Watcher().Runs() >= 1 }, 5*time.Second, 10*time.Millisecond)

	next := daemonConfig("2h")
	require.NoError(t, d.applyConfig(context.Background(), next))
	assert.Equal(t, 2*time.Hour, d.Watcher().Interval())
	assert.Same(t, next, svc.Config())

	require.Error(t, d.applyConfig(context.Background(), daemonConfig("bogus")))
	assert.Same(t, next, svc.Config())
}

func TestDaemonWithConfigReloadAndMetrics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsync.yaml")
	writeConfig(t, path, "1h")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Metrics.Listen = "127.0.0.1:0"
	cfg.Metrics.Textfile = filepath.Join(dir, "docsync.prom")

	svc := &fakeService{cfg: cfg}
	rec := metrics.NewPrometheusRecorder(prom.NewRegistry())
	d, err := New(svc, Options{ConfigPath: path, Recorder: rec, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	stop := runDaemon(t, d)
	defer func() { require.NoError(t, stop()) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.Metrics.Textfile)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool { return d.MetricsAddr() != "127.0.0.1:0" }, 5*time.Second, 10*time.Millisecond)
	code, _ := get(t, "http://"+d.MetricsAddr()+"/healthz")
	assert.Equal(t, 200, code)

	writeConfig(t, path, "90m")
	require.Eventually(t, func() bool { return d.Watcher().Interval() == 90*time.Minute }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 90*time.Minute, svc.Config().Watch.IntervalDuration())

	names := make([]string, 0, 3)
	for _, info := range d.ServiceInfo() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"config-watcher", "metrics", "watcher"}, names)
}
