// Package commands implements the docsync command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/eventstore"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/notify"
	"git.home.luguber.info/inful/docsync/internal/reposync"
)

// Global is bound into every command's Run.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docsync.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init        InitCmd        `cmd:"" help:"Initialize a new configuration file"`
	Sync        SyncCmd        `cmd:"" help:"Pull the source repository, check out the configured ref and optionally publish"`
	Status      StatusCmd      `cmd:"" help:"Show branch, upstream and divergence of the source repository"`
	Checkout    CheckoutCmd    `cmd:"" help:"Check out a branch, tag or revision in the source repository"`
	Publish     PublishCmd     `cmd:"" help:"Commit and push the publish working copy"`
	VersionInfo VersionInfoCmd `cmd:"" name:"version-info" help:"Print the project version resolved from the source tree"`
	Watch       WatchCmd       `cmd:"" help:"Pull the source repository on an interval until interrupted"`
	History     HistoryCmd     `cmd:"" help:"List recorded sync runs"`
	Refs        RefsCmd        `cmd:"" help:"List branches and tags advertised by the source remote"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// session bundles the service with the resources it owns.
type session struct {
	cfg      *config.Config
	svc      *reposync.DefaultService
	recorder *metrics.PrometheusRecorder // nil when metrics are disabled
	store    eventstore.Store
	pub      notify.Publisher
}

// newSession builds the sync service with history, notifications and
// metrics wired from cfg.
func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	store, err := eventstore.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	pub, err := notify.New(ctx, cfg.Notify)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	s := &session{cfg: cfg, store: store, pub: pub}
	svc := reposync.NewService(cfg).WithStore(store).WithPublisher(pub)
	if cfg.Metrics.Enabled() {
		s.recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
		svc = svc.WithRecorder(s.recorder)
	}
	s.svc = svc
	return s, nil
}

// Close flushes the metrics textfile and releases the store and publisher.
func (s *session) Close() {
	s.writeMetrics()
	if err := s.pub.Close(); err != nil {
		slog.Warn("Failed to close notification publisher", logfields.Error(err))
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close history store", logfields.Error(err))
	}
}

func (s *session) writeMetrics() {
	path := s.svc.Config().Metrics.Textfile
	if s.recorder == nil || path == "" {
		return
	}
	if err := s.recorder.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

// withSession loads the configuration and runs fn against a fresh session.
// The context is cancelled on SIGINT or SIGTERM.
func withSession(root *CLI, fn func(ctx context.Context, s *session) error) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
