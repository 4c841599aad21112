package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docsync/internal/git"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	NoFetch bool `name:"no-fetch" help:"Compare against the last fetched upstream without contacting the remote"`
}

func (c *StatusCmd) Run(g *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		st, err := s.svc.Status(ctx, !c.NoFetch)
		if err != nil {
			return err
		}
		out := g.out()
		branch := st.Branch
		if branch == "" {
			branch = "(detached)"
		}
		_, _ = fmt.Fprintf(out, "path:      %s\n", s.cfg.Source.Path)
		_, _ = fmt.Fprintf(out, "branch:    %s at %s\n", branch, shortRef(st.Head))
		if st.Upstream != "" {
			_, _ = fmt.Fprintf(out, "upstream:  %s at %s\n", st.Upstream, shortRef(st.UpstreamHead))
		}
		_, _ = fmt.Fprintf(out, "state:     %s\n", describeStatus(st))
		if st.Dirty {
			_, _ = fmt.Fprintln(out, "worktree:  uncommitted changes")
		}

		state, err := s.svc.LastPublished(ctx)
		if err != nil {
			slog.Warn("Failed to read last published state", logfields.Error(err))
		} else if state != nil {
			_, _ = fmt.Fprintf(out, "published: %s at %s\n", shortRef(git.CommitRef(state.Head)), state.UpdatedAt.Format("2006-01-02 15:04:05Z07:00"))
		}
		return nil
	})
}

func describeStatus(st git.SyncStatus) string {
	switch {
	case st.Diverged():
		return fmt.Sprintf("diverged (%d ahead, %d behind)", st.Ahead, st.Behind)
	case st.Behind > 0:
		return fmt.Sprintf("behind by %d", st.Behind)
	case st.Ahead > 0:
		return fmt.Sprintf("ahead by %d", st.Ahead)
	case st.Upstream == "":
		return "no upstream"
	default:
		return "up to date"
	}
}

// shortRef abbreviates full hashes; names are returned unchanged.
func shortRef(ref git.CommitRef) string {
	s := ref.String()
	if s == "" {
		return "-"
	}
	if len(s) == 40 {
		return s[:8]
	}
	return s
}
