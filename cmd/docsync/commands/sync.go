package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"git.home.luguber.info/inful/docsync/internal/reposync"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Clean   bool   `help:"Remove the source working copy and clone it again"`
	Ref     string `help:"Branch, tag or revision to check out after pulling (overrides source.ref)"`
	Push    bool   `help:"Commit and push the publish working copy afterwards"`
	Message string `short:"m" help:"Commit message for --push (overrides publish.message)"`
}

func (c *SyncCmd) Run(g *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		res, err := s.svc.Sync(ctx, reposync.SyncRequest{
			Clean:   c.Clean,
			Ref:     c.Ref,
			Push:    c.Push,
			Message: c.Message,
			Trigger: reposync.TriggerCLI,
		})
		if res != nil {
			printSyncResult(g.out(), res)
		}
		return err
	})
}

func printSyncResult(w io.Writer, res *reposync.SyncResult) {
	_, _ = fmt.Fprintf(w, "run %s: %s (%s)\n", res.RunID, res.Status, res.Duration.Round(time.Millisecond))
	if p := res.Pull; p != nil {
		if p.Changed {
			_, _ = fmt.Fprintf(w, "  pull      %s: %s..%s, %d commit(s)\n", p.Branch, shortRef(p.Previous), shortRef(p.Current), len(p.Commits))
			for _, c := range p.Commits {
				_, _ = fmt.Fprintf(w, "            %s %s\n", shortRef(c.Hash), c.Summary)
			}
		} else {
			_, _ = fmt.Fprintf(w, "  pull      %s: up to date at %s\n", p.Branch, shortRef(p.Current))
		}
	}
	if c := res.Checkout; c != nil {
		if c.Moved {
			_, _ = fmt.Fprintf(w, "  checkout  %s: %s -> %s\n", c.Ref, shortRef(c.Previous), shortRef(c.Current))
		} else {
			_, _ = fmt.Fprintf(w, "  checkout  %s: already at %s\n", c.Ref, shortRef(c.Current))
		}
	}
	if v := res.Version; v != nil {
		_, _ = fmt.Fprintf(w, "  version   %s (major %s)\n", v.Full, v.Major)
	}
	if p := res.Push; p != nil {
		printPushResult(w, p)
	}
}
