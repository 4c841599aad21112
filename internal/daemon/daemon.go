// Package daemon implements watch mode: scheduled pulls of the source
// repository, configuration hot reload and an optional metrics endpoint.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/reposync"
	"git.home.luguber.info/inful/docsync/internal/services"
)

const shutdownTimeout = 15 * time.Second

// Service is the part of reposync.DefaultService the daemon drives.
type Service interface {
	Syncer
	Config() *config.Config
	UpdateConfig(cfg *config.Config)
}

// Options configure a Daemon.
type Options struct {
	// ConfigPath enables hot reload of the configuration file when set.
	ConfigPath string

	// Request is the template for every scheduled run.
	Request reposync.SyncRequest

	// Recorder backs the metrics listener and textfile; nil disables both.
	Recorder *metrics.PrometheusRecorder

	// Debounce overrides the config watcher debounce (tests).
	Debounce time.Duration
}

// Daemon owns the watch mode services.
type Daemon struct {
	svc           Service
	opts          Options
	orchestrator  *services.ServiceOrchestrator
	watcher       *Watcher
	configWatcher *ConfigWatcher
	metricsServer *MetricsServer
}

// New wires the watcher, the config watcher and the metrics server.
func New(svc Service, opts Options) (*Daemon, error) {
	cfg := svc.Config()
	watcher, err := NewWatcher(svc, cfg.Watch.IntervalDuration(), opts.Request)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		svc:          svc,
		opts:         opts,
		orchestrator: services.NewServiceOrchestrator(),
		watcher:      watcher,
	}
	watcher.OnRun(d.afterRun)
	if err := d.orchestrator.RegisterService(watcher); err != nil {
		return nil, err
	}

	if opts.ConfigPath != "" {
		cw, err := NewConfigWatcher(opts.ConfigPath, d.applyConfig)
		if err != nil {
			return nil, err
		}
		if opts.Debounce > 0 {
			cw.WithDebounce(opts.Debounce)
		}
		d.configWatcher = cw
		if err := d.orchestrator.RegisterService(cw); err != nil {
			return nil, err
		}
	}

	if opts.Recorder != nil && cfg.Metrics.Listen != "" {
		d.metricsServer = NewMetricsServer(cfg.Metrics.Listen, opts.Recorder, d.orchestrator.GetAllServiceInfo)
		if err := d.orchestrator.RegisterService(services.NewHTTPServerService("metrics", d.metricsServer)); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Run starts all services and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.orchestrator.StartAll(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	slog.Info("Shutting down watch mode")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return d.orchestrator.StopAll(stopCtx)
}

// Watcher exposes the scheduler (status, tests).
func (d *Daemon) Watcher() *Watcher { return d.watcher }

// ServiceInfo reports the state of every managed service.
func (d *Daemon) ServiceInfo() []services.ServiceInfo { return d.orchestrator.GetAllServiceInfo() }

// MetricsAddr returns the metrics listener address, or "" when disabled.
func (d *Daemon) MetricsAddr() string {
	if d.metricsServer == nil {
		return ""
	}
	return d.metricsServer.Addr()
}

// applyConfig installs a reloaded configuration.
func (d *Daemon) applyConfig(_ context.Context, cfg *config.Config) error {
	current := d.svc.Config()
	if cfg.Metrics.Listen != current.Metrics.Listen {
		slog.Warn("metrics.listen changed; restart watch mode to apply", slog.String("listen", cfg.Metrics.Listen))
	}
	if cfg.Source.URL != current.Source.URL || cfg.Source.Path != current.Source.Path {
		slog.Info("Source repository changed", logfields.URL(cfg.Source.URL), logfields.Path(cfg.Source.Path))
	}
	interval := cfg.Watch.IntervalDuration()
	if interval <= 0 {
		return errors.ValidationError("watch.interval must be a positive duration").Build()
	}
	d.svc.UpdateConfig(cfg)
	return d.watcher.Reschedule(interval)
}

func (d *Daemon) afterRun(_ *reposync.SyncResult, _ error) {
	if d.opts.Recorder == nil {
		return
	}
	path := d.svc.Config().Metrics.Textfile
	if path == "" {
		return
	}
	if err := d.opts.Recorder.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}
