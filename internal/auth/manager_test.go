package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/docsync/internal/config"
)

func TestManager_CreateAuth(t *testing.T) {
	manager := NewManager()

	tests := []struct {
		name        string
		authConfig  *config.AuthConfig
		expectNil   bool
		expectError bool
	}{
		{"nil config", nil, true, false},
		{"none auth", &config.AuthConfig{Type: config.AuthTypeNone}, true, false},
		{"token auth - valid", &config.AuthConfig{Type: config.AuthTypeToken, Token: "test-token"}, false, false},
		{"token auth - missing token", &config.AuthConfig{Type: config.AuthTypeToken}, true, true},
		{"basic auth - valid", &config.AuthConfig{Type: config.AuthTypeBasic, Username: "testuser", Password: "testpass"}, false, false},
		{"basic auth - missing username", &config.AuthConfig{Type: config.AuthTypeBasic, Password: "testpass"}, true, true},
		{"ssh auth - missing key file", &config.AuthConfig{Type: config.AuthTypeSSH, KeyPath: filepath.Join(os.TempDir(), "docsync-no-such-key")}, true, true},
		{"unsupported auth type", &config.AuthConfig{Type: "unsupported"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := manager.CreateAuth(tt.authConfig)

			if tt.expectError && err == nil {
				t.Fatalf("CreateAuth() expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("CreateAuth() unexpected error: %v", err)
			}
			if tt.expectError {
				var authErr *Error
				if !errors.As(err, &authErr) {
					t.Fatalf("expected *Error, got %T", err)
				}
			}
			if tt.expectNil && auth != nil {
				t.Fatalf("CreateAuth() expected nil auth but got %T", auth)
			}
			if !tt.expectNil && auth == nil {
				t.Fatalf("CreateAuth() expected non-nil auth")
			}
		})
	}
}

func TestTokenAuthUsesTokenAsPassword(t *testing.T) {
	auth, err := CreateAuth(&config.AuthConfig{Type: config.AuthTypeToken, Token: "abc"})
	if err != nil {
		t.Fatalf("CreateAuth() error: %v", err)
	}
	basic, ok := auth.(*http.BasicAuth)
	if !ok {
		t.Fatalf("token auth should create http.BasicAuth, got %T", auth)
	}
	if basic.Username != "token" || basic.Password != "abc" {
		t.Fatalf("unexpected credentials %q/%q", basic.Username, basic.Password)
	}

	auth, err = CreateAuth(&config.AuthConfig{Type: config.AuthTypeToken, Token: "abc", Username: "x-access-token"})
	if err != nil {
		t.Fatalf("CreateAuth() error: %v", err)
	}
	if got := auth.(*http.BasicAuth).Username; got != "x-access-token" {
		t.Fatalf("expected configured username, got %q", got)
	}
}
