package git

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	appcfg "git.home.luguber.info/inful/docsync/internal/config"
)

// RemoteReference represents a branch or tag advertised by a remote.
type RemoteReference struct {
	Name    string // Short name (e.g., "main", "v1.0.0")
	RefName string // Full reference name (e.g., "refs/heads/main", "refs/tags/v1.0.0")
	Hash    string
	IsTag   bool
}

// ListRemoteReferences lists branches and tags of repoURL without cloning it.
func ListRemoteReferences(ctx context.Context, repoURL string, authCfg *appcfg.AuthConfig) ([]RemoteReference, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: DefaultRemote,
		URLs: []string{repoURL},
	})

	listOptions := &git.ListOptions{}
	if authCfg != nil {
		auth, err := getAuth(authCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to setup authentication: %w", err)
		}
		listOptions.Auth = auth
	}

	refs, err := remote.ListContext(ctx, listOptions)
	if err != nil {
		return nil, &FetchError{Remote: DefaultRemote, URL: repoURL, Err: classifyTransportError("ls-remote", repoURL, err)}
	}

	out := make([]RemoteReference, 0, len(refs))
	for _, ref := range refs {
		// Skip symbolic references (HEAD)
		if ref.Type() == plumbing.SymbolicReference {
			continue
		}
		name := ref.Name()
		switch {
		case name.IsBranch(), name.IsTag():
		default:
			continue
		}
		out = append(out, RemoteReference{
			Name:    name.Short(),
			RefName: name.String(),
			Hash:    ref.Hash().String(),
			IsTag:   name.IsTag(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RefName < out[j].RefName })
	return out, nil
}
