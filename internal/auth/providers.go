package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/docsync/internal/config"
)

// Provider turns one kind of AuthConfig into a go-git AuthMethod.
type Provider interface {
	Type() config.AuthType
	// CreateAuth returns nil, nil when no authentication is needed.
	CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error)
	ValidateConfig(authCfg *config.AuthConfig) error
}

type noneProvider struct{}

func (noneProvider) Type() config.AuthType { return config.AuthTypeNone }
func (noneProvider) CreateAuth(*config.AuthConfig) (transport.AuthMethod, error) {
	return nil, nil
}
func (noneProvider) ValidateConfig(*config.AuthConfig) error { return nil }

// tokenProvider sends the token as the HTTP basic password. Most forges accept
// any username; "token" is used unless one is configured.
type tokenProvider struct{}

func (tokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (p tokenProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if err := p.ValidateConfig(authCfg); err != nil {
		return nil, err
	}
	user := authCfg.Username
	if user == "" {
		user = "token"
	}
	return &http.BasicAuth{Username: user, Password: authCfg.Token}, nil
}

func (tokenProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Token == "" {
		return fmt.Errorf("token authentication requires a token")
	}
	return nil
}

type basicProvider struct{}

func (basicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (p basicProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if err := p.ValidateConfig(authCfg); err != nil {
		return nil, err
	}
	return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
}

func (basicProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Username == "" {
		return fmt.Errorf("basic authentication requires a username")
	}
	if authCfg.Password == "" {
		return fmt.Errorf("basic authentication requires a password")
	}
	return nil
}

// sshProvider loads a private key file, or falls back to the SSH agent when
// no key path is configured and ~/.ssh/id_rsa does not exist. Password is
// used as the key passphrase.
type sshProvider struct{}

func (sshProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (sshProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	user := authCfg.Username
	if user == "" {
		user = "git"
	}
	keyPath := sshKeyPath(authCfg)
	if keyPath == "" {
		agent, err := ssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil, fmt.Errorf("no SSH key configured and agent unavailable: %w", err)
		}
		return agent, nil
	}
	keys, err := ssh.NewPublicKeysFromFile(user, keyPath, authCfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return keys, nil
}

func (sshProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.KeyPath == "" {
		return nil
	}
	if _, err := os.Stat(authCfg.KeyPath); err != nil {
		return fmt.Errorf("SSH key file does not exist: %s", authCfg.KeyPath)
	}
	return nil
}

func sshKeyPath(authCfg *config.AuthConfig) string {
	if authCfg.KeyPath != "" {
		return authCfg.KeyPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	def := filepath.Join(home, ".ssh", "id_rsa")
	if _, err := os.Stat(def); err != nil {
		return ""
	}
	return def
}
