package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docsync/internal/daemon"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/reposync"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Push     bool `help:"Publish after every scheduled pull"`
	NoReload bool `name:"no-reload" help:"Do not reload the configuration file when it changes"`
}

func (c *WatchCmd) Run(_ *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		opts := daemon.Options{
			Request:  reposync.SyncRequest{Push: c.Push},
			Recorder: s.recorder,
		}
		if !c.NoReload {
			opts.ConfigPath = root.Config
		}
		d, err := daemon.New(s.svc, opts)
		if err != nil {
			return err
		}

		slog.Info("Starting watch mode",
			logfields.Path(s.cfg.Source.Path),
			logfields.Interval(s.cfg.Watch.Interval),
			slog.Bool("push", c.Push))
		if err := d.Run(ctx); err != nil {
			return err
		}
		slog.Info("Watch mode stopped", logfields.Count(d.Watcher().Runs()))
		return nil
	})
}
