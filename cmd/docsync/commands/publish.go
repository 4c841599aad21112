package commands

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/docsync/internal/git"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Message string `short:"m" help:"Commit message (overrides publish.message)"`
}

func (c *PublishCmd) Run(g *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		res, err := s.svc.Publish(ctx, c.Message)
		if err != nil {
			return err
		}
		printPushResult(g.out(), res)
		return nil
	})
}

func printPushResult(w io.Writer, p *git.PushResult) {
	switch {
	case p.Committed:
		_, _ = fmt.Fprintf(w, "  push      %s: committed and pushed %s\n", p.Branch, shortRef(p.Commit))
	case p.UpToDate:
		_, _ = fmt.Fprintf(w, "  push      %s: nothing to publish at %s\n", p.Branch, shortRef(p.Commit))
	default:
		_, _ = fmt.Fprintf(w, "  push      %s: pushed %s\n", p.Branch, shortRef(p.Commit))
	}
}
