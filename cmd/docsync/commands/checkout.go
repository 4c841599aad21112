package commands

import (
	"context"
	"fmt"
)

// CheckoutCmd implements the 'checkout' command.
type CheckoutCmd struct {
	Ref string `arg:"" help:"Branch, remote branch, tag or revision"`
}

func (c *CheckoutCmd) Run(g *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		res, err := s.svc.Checkout(ctx, c.Ref)
		if err != nil {
			return err
		}
		if res.Moved {
			_, _ = fmt.Fprintf(g.out(), "%s: %s -> %s\n", res.Ref, shortRef(res.Previous), shortRef(res.Current))
		} else {
			_, _ = fmt.Fprintf(g.out(), "%s: already at %s\n", res.Ref, shortRef(res.Current))
		}
		return nil
	})
}
