package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docsync/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" help:"Maximum number of records" default:"20"`
	All   bool `help:"Include records of every working copy, not only the source"`
}

func (c *HistoryCmd) Run(g *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		if s.cfg.History.Path == "" {
			_, _ = fmt.Fprintln(g.out(), "history is disabled (set history.path)")
			return nil
		}
		path := s.cfg.Source.Path
		if c.All {
			path = ""
		}
		records, err := s.svc.History(ctx, path, c.Limit)
		if err != nil {
			return err
		}
		return writeHistory(g.out(), records)
	})
}

func writeHistory(w io.Writer, records []eventstore.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tOPERATION\tOUTCOME\tBRANCH\tHEAD\tCOMMITS\tERROR")
	for _, r := range records {
		head := r.HeadAfter
		if r.HeadBefore != "" && r.HeadBefore != r.HeadAfter {
			head = abbrev(r.HeadBefore) + ".." + abbrev(r.HeadAfter)
		} else {
			head = abbrev(head)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Operation, r.Outcome, r.Branch, head, r.Commits, r.Error)
	}
	return tw.Flush()
}

func abbrev(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	if h == "" {
		return "-"
	}
	return h
}
