package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/services"
)

// ApplyFunc applies a freshly loaded configuration.
type ApplyFunc func(ctx context.Context, cfg *config.Config) error

// ConfigWatcher monitors the configuration file and applies changes.
type ConfigWatcher struct {
	configPath   string
	apply        ApplyFunc
	watcher      *fsnotify.Watcher
	mu           sync.RWMutex
	stopChan     chan struct{}
	stopOnce     sync.Once
	reloadChan   chan struct{}
	debounceTime time.Duration

	reloads   int
	lastError error
}

// NewConfigWatcher creates a new configuration file watcher.
func NewConfigWatcher(configPath string, apply ApplyFunc) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, errors.DaemonError("failed to resolve config path").WithCause(err).Build()
	}

	return &ConfigWatcher{
		configPath:   absPath,
		apply:        apply,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

// WithDebounce sets how long the file must be quiet before a reload.
func (cw *ConfigWatcher) WithDebounce(d time.Duration) *ConfigWatcher {
	cw.debounceTime = d
	return cw
}

func (cw *ConfigWatcher) Name() string { return "config-watcher" }

func (cw *ConfigWatcher) Dependencies() []string { return []string{"watcher"} }

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	// Editors replace files on save; the directory watch survives that.
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return errors.DaemonError(fmt.Sprintf("failed to watch config directory %s", configDir)).WithCause(err).Build()
	}

	slog.Info("Starting configuration watcher", logfields.Path(cw.configPath))

	runCtx := context.WithoutCancel(ctx)
	go cw.watchLoop()
	go cw.reloadLoop(runCtx)
	return nil
}

// Stop stops the configuration watcher.
func (cw *ConfigWatcher) Stop(context.Context) error {
	cw.stopOnce.Do(func() {
		slog.Info("Stopping configuration watcher")
		close(cw.stopChan)
		if err := cw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	})
	return nil
}

// Health reports the outcome of the last reload.
func (cw *ConfigWatcher) Health() services.HealthStatus {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	if cw.lastError != nil {
		return services.Unhealthy("last reload failed: " + cw.lastError.Error())
	}
	return services.Healthy()
}

// Reloads returns how many reloads were applied.
func (cw *ConfigWatcher) Reloads() int {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.reloads
}

func (cw *ConfigWatcher) watchLoop() {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				cw.triggerReload()
			case event.Has(fsnotify.Remove):
				slog.Warn("Config file removed", logfields.Path(event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop debounces change notifications into single reloads.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-cw.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-cw.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(ctx); err != nil {
					slog.Error("Failed to reload configuration", logfields.Error(err))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// performReload loads the file and hands it to apply. An invalid file keeps
// the running configuration.
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	slog.Info("Reloading configuration", logfields.Path(cw.configPath))

	newConfig, err := config.Load(cw.configPath)
	if err == nil {
		err = cw.apply(ctx, newConfig)
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.lastError = err
	if err != nil {
		return err
	}
	cw.reloads++
	slog.Info("Configuration reloaded")
	return nil
}
