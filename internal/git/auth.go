package git

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docsync/internal/auth"
	appcfg "git.home.luguber.info/inful/docsync/internal/config"
)

// getAuth returns a go-git AuthMethod for the given AuthConfig using the docsync auth manager.
// A nil config yields a nil method, letting go-git fall back to anonymous or agent access.
func getAuth(authCfg *appcfg.AuthConfig) (transport.AuthMethod, error) {
	return auth.CreateAuth(authCfg)
}
