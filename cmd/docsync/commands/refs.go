package commands

import (
	"context"
	"fmt"
	"io"
	"sort"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/git"
)

// RefsCmd implements the 'refs' command.
type RefsCmd struct {
	Tags     bool `help:"Only list tags"`
	Branches bool `help:"Only list branches"`
}

func (c *RefsCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.Source.URL == "" {
		return errors.ValidationError("source.url is required to list remote references").Build()
	}
	refs, err := git.ListRemoteReferences(context.Background(), cfg.Source.URL, cfg.Source.Auth)
	if err != nil {
		return err
	}
	writeRefs(g.out(), refs, c.Tags, c.Branches)
	return nil
}

// writeRefs prints branches before tags, each sorted by name.
func writeRefs(w io.Writer, refs []git.RemoteReference, tagsOnly, branchesOnly bool) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].IsTag != refs[j].IsTag {
			return !refs[i].IsTag
		}
		return refs[i].Name < refs[j].Name
	})
	for _, r := range refs {
		if (tagsOnly && !r.IsTag) || (branchesOnly && r.IsTag) {
			continue
		}
		kind := "branch"
		if r.IsTag {
			kind = "tag"
		}
		_, _ = fmt.Fprintf(w, "%s\t%-6s\t%s\n", abbrev(r.Hash), kind, r.Name)
	}
}
