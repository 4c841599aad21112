package commands

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/versioning"
)

// VersionInfoCmd implements the 'version-info' command.
type VersionInfoCmd struct {
	Format string `help:"Output format (env, yaml)" enum:"env,yaml" default:"env"`
}

func (c *VersionInfoCmd) Run(g *Global, root *CLI) error {
	return withSession(root, func(ctx context.Context, s *session) error {
		info, err := s.svc.Version(ctx)
		if err != nil {
			return err
		}
		return writeVersionInfo(g.out(), info, c.Format, s.cfg.Version.Prefix)
	})
}

// writeVersionInfo renders info as KEY=VALUE lines (suitable for a
// generator's environment or an env file) or as YAML.
func writeVersionInfo(w io.Writer, info versioning.Info, format, prefix string) error {
	switch format {
	case "", "env":
		for _, kv := range info.Environ(prefix) {
			if _, err := fmt.Fprintln(w, kv); err != nil {
				return errors.WrapError(err, errors.CategoryRuntime, "write version info").Build()
			}
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		if err := enc.Encode(info); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "encode version info").Build()
		}
		return nil
	default:
		return errors.ValidationError(fmt.Sprintf("unsupported format %q (env, yaml)", format)).Build()
	}
}
