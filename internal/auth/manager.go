// Package auth builds go-git transport credentials from configuration.
package auth

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docsync/internal/config"
)

// Manager resolves AuthConfig values through the registered providers.
type Manager struct {
	providers map[config.AuthType]Provider
}

// NewManager creates a manager with the none, token, basic and ssh providers.
func NewManager() *Manager {
	m := &Manager{providers: make(map[config.AuthType]Provider)}
	for _, p := range []Provider{noneProvider{}, tokenProvider{}, basicProvider{}, sshProvider{}} {
		m.Register(p)
	}
	return m
}

// Register adds or replaces the provider for its type.
func (m *Manager) Register(p Provider) { m.providers[p.Type()] = p }

// CreateAuth returns the AuthMethod for authCfg. A nil or zero config yields nil, nil.
func (m *Manager) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg.IsZero() {
		return nil, nil
	}
	p, ok := m.providers[authCfg.Type]
	if !ok {
		return nil, &Error{Type: authCfg.Type, Message: "unsupported authentication type"}
	}
	if err := p.ValidateConfig(authCfg); err != nil {
		return nil, &Error{Type: authCfg.Type, Message: "configuration validation failed", Cause: err}
	}
	method, err := p.CreateAuth(authCfg)
	if err != nil {
		return nil, &Error{Type: authCfg.Type, Message: "failed to create authentication", Cause: err}
	}
	return method, nil
}

// DefaultManager is a package-level instance for convenience.
var DefaultManager = NewManager()

// CreateAuth is a convenience function that uses the default manager.
func CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return DefaultManager.CreateAuth(authCfg)
}

// Error represents an authentication setup failure. It is never transient.
type Error struct {
	Type    config.AuthType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
